// Package correlate implements the security event correlation engine: a
// stateless, rule-driven pipeline that loads a bounded window of
// telemetry, groups it by correlation key, matches configurable detection
// rules, scores candidates, and emits deduplicated incidents.
package correlate

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"argus/config"
	"argus/core"
	"argus/metrics"
	"argus/narrative"
	"argus/notify"
	"argus/storage"
	"argus/threat"
)

// Engine runs one correlation pass per invocation. It keeps no state
// between runs; every index and dedup set is request-scoped.
type Engine struct {
	store     storage.Store
	intel     threat.Lookuper     // nil when threat intel is disabled
	narrative narrative.Generator // nil when narrative generation is disabled
	notifier  notify.Sink         // nil when notifications are disabled
	cfg       *config.Config
	logger    *zap.SugaredLogger

	loader *Loader
	now    func() time.Time
}

// NewEngine wires a correlation engine. intel, gen, and sink may be nil to
// disable the corresponding enrichment.
func NewEngine(store storage.Store, intel threat.Lookuper, gen narrative.Generator, sink notify.Sink, cfg *config.Config, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		store:     store,
		intel:     intel,
		narrative: gen,
		notifier:  sink,
		cfg:       cfg,
		logger:    logger,
		loader:    NewLoader(store, cfg, logger),
		now:       time.Now,
	}
}

// RunParams are the per-invocation inputs.
type RunParams struct {
	// TimeWindowHours bounds how far back telemetry is loaded. Zero or
	// negative applies the configured default.
	TimeWindowHours float64 `json:"time_window_hours"`
	// RuleIDs restricts evaluation to the named rules. Empty runs all
	// enabled rules.
	RuleIDs []string `json:"rule_ids"`
}

// RunResult is the outcome of one correlation run.
type RunResult struct {
	Incidents []core.CorrelatedIncident
	Report    RunReport
}

// Run executes one full correlation pass: load, index, evaluate, enrich,
// score, assemble, post-process. A load failure fails the run; every
// post-processing failure is collected in the report instead.
func (e *Engine) Run(ctx context.Context, params RunParams) (*RunResult, error) {
	start := time.Now()
	now := e.now()

	if timeout := e.cfg.RunTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ds, err := e.loader.Load(ctx, params.TimeWindowHours, now)
	if err != nil {
		metrics.CorrelationRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	idx := BuildIndexes(ds, now)
	intel := e.lookupThreatIntel(ctx, ds)
	rules := e.selectRules(ds.Rules, params.RuleIDs)

	processed := make(map[string]struct{})
	var incidents []core.CorrelatedIncident

	for i := range rules {
		rule := &rules[i]
		metrics.RulesEvaluated.Inc()

		for _, keyType := range rule.EffectiveKeys() {
			keys := idx.KeysForType(keyType)
			sort.Strings(keys) // deterministic evaluation order

			for _, key := range keys {
				dedupKey := rule.ID + ":" + keyType + ":" + key
				if _, done := processed[dedupKey]; done {
					continue
				}

				matched := evaluateCandidate(rule, idx.EventsForKey(keyType, key))
				if matched == nil {
					continue
				}

				enr := enrichCandidate(idx, ds, keyType, key, matched, intel)
				incident := buildIncident(rule, keyType, key, matched, enr, now)
				processed[dedupKey] = struct{}{}
				incidents = append(incidents, *incident)

				metrics.IncidentsProduced.WithLabelValues(string(incident.Severity)).Inc()
			}
		}
	}

	sortIncidents(incidents)
	report := e.postProcess(ctx, incidents)

	metrics.CorrelationRuns.WithLabelValues("success").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	e.logger.Infow("Correlation run complete",
		"incidents_found", len(incidents),
		"incidents_saved", report.IncidentsSaved,
		"failed_steps", len(report.Failed),
		"duration", time.Since(start))

	return &RunResult{Incidents: incidents, Report: report}, nil
}

// selectRules filters to the requested subset, drops invalid rules, and
// orders ascending by priority (lower evaluates first).
func (e *Engine) selectRules(rules []core.CorrelationRule, ruleIDs []string) []core.CorrelationRule {
	requested := make(map[string]struct{}, len(ruleIDs))
	for _, id := range ruleIDs {
		requested[id] = struct{}{}
	}

	selected := make([]core.CorrelationRule, 0, len(rules))
	for _, rule := range rules {
		if len(requested) > 0 {
			if _, ok := requested[rule.ID]; !ok {
				continue
			}
		}
		if err := rule.Validate(); err != nil {
			e.logger.Warnw("Skipping invalid correlation rule", "rule_id", rule.ID, "error", err)
			continue
		}
		selected = append(selected, rule)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].EffectivePriority() < selected[j].EffectivePriority()
	})
	return selected
}

// lookupThreatIntel batch-resolves verdicts for distinct IPs seen on high
// or critical events. Lookup failure degrades to no intel rather than
// failing the run.
func (e *Engine) lookupThreatIntel(ctx context.Context, ds *Dataset) map[string]threat.Result {
	if e.intel == nil {
		return nil
	}

	seen := make(map[string]struct{})
	var indicators []string
	for _, event := range ds.SecurityEvents {
		if event.IPAddress == "" || !event.Severity.AtLeast(core.SeverityHigh) {
			continue
		}
		if _, dup := seen[event.IPAddress]; dup {
			continue
		}
		seen[event.IPAddress] = struct{}{}
		indicators = append(indicators, event.IPAddress)
		if len(indicators) == threat.MaxBatchSize {
			break
		}
	}
	if len(indicators) == 0 {
		return nil
	}

	results, err := e.intel.Lookup(ctx, indicators, true)
	if err != nil {
		e.logger.Warnw("Threat intel lookup failed, continuing without intel", "error", err)
	}
	return results
}

// evaluateCandidate runs the condition, threshold, time-window, and
// sequence stages for one (rule, key) candidate. It returns the final
// matched event set in timestamp order, or nil when the rule does not fire.
func evaluateCandidate(rule *core.CorrelationRule, events []core.SecurityEvent) []core.SecurityEvent {
	if len(events) == 0 {
		return nil
	}

	// Conditions narrow sequentially: each filters the previous stage's
	// output. A required condition that empties the set kills the
	// candidate; a non-required one leaves the set unchanged.
	matched := events
	for _, cond := range rule.Conditions {
		if cond.Source != core.SourceSecurityEvents {
			continue
		}
		filtered := filterEvents(matched, cond)
		if len(filtered) == 0 {
			if cond.Required {
				return nil
			}
			continue
		}
		matched = filtered
	}

	if t := rule.Threshold; t != nil {
		if t.Count > 0 && len(matched) < t.Count {
			return nil
		}
		if t.UniqueField != "" && t.UniqueCount > 0 {
			if uniqueFieldValues(matched, t.UniqueField) < t.UniqueCount {
				return nil
			}
		}
	}

	matched = truncateToWindow(matched, rule.EffectiveTimeWindow())
	if len(matched) < 2 {
		return nil
	}

	if rule.IsSequence() {
		matched = matchSequence(rule.Sequence, matched)
		if matched == nil {
			return nil
		}
	}

	return matched
}

func filterEvents(events []core.SecurityEvent, cond core.RuleCondition) []core.SecurityEvent {
	var out []core.SecurityEvent
	for i := range events {
		value := eventFieldValue(&events[i], cond.Field)
		if MatchCondition(value, cond.Operator, cond.Value) {
			out = append(out, events[i])
		}
	}
	return out
}

func uniqueFieldValues(events []core.SecurityEvent, field string) int {
	seen := make(map[string]struct{})
	for i := range events {
		value := eventFieldValue(&events[i], field)
		if value == nil {
			continue
		}
		s := asString(value)
		if s == "" {
			continue
		}
		seen[s] = struct{}{}
	}
	return len(seen)
}

// truncateToWindow sorts events ascending by timestamp and, when the full
// span exceeds the rule window, keeps only events within the window of the
// newest event. The window slides with the latest activity; it is not a
// fixed calendar bucket.
func truncateToWindow(events []core.SecurityEvent, window time.Duration) []core.SecurityEvent {
	if len(events) == 0 {
		return events
	}

	sorted := append([]core.SecurityEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedDate.Before(sorted[j].CreatedDate)
	})

	newest := sorted[len(sorted)-1].CreatedDate
	if newest.Sub(sorted[0].CreatedDate) <= window {
		return sorted
	}

	floor := newest.Add(-window)
	var kept []core.SecurityEvent
	for _, e := range sorted {
		if !e.CreatedDate.Before(floor) {
			kept = append(kept, e)
		}
	}
	return kept
}

// matchSequence walks time-ordered events with a single pointer into the
// rule's ordered steps. Non-matching events are skipped; there is no
// backtracking. Returns the matched step events in order, or nil when the
// full sequence is not reached.
func matchSequence(steps []core.SequenceStep, events []core.SecurityEvent) []core.SecurityEvent {
	matched := make([]core.SecurityEvent, 0, len(steps))
	stepIdx := 0

	for i := range events {
		if stepIdx >= len(steps) {
			break
		}
		event := &events[i]
		step := steps[stepIdx]

		if step.EventType != "" &&
			!strings.Contains(strings.ToLower(event.EventType), strings.ToLower(step.EventType)) {
			continue
		}
		if step.SeverityMin != "" && !event.Severity.AtLeast(step.SeverityMin) {
			continue
		}
		if stepIdx > 0 && step.MaxGapMinutes > 0 {
			gap := event.CreatedDate.Sub(matched[stepIdx-1].CreatedDate)
			if gap.Minutes() > step.MaxGapMinutes {
				continue
			}
		}

		matched = append(matched, *event)
		stepIdx++
	}

	if stepIdx < len(steps) {
		return nil
	}
	return matched
}
