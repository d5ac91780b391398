package correlate

import (
	"context"

	"argus/core"
	"argus/metrics"
	"argus/narrative"
)

// ItemError records one failed post-processing step for one incident.
type ItemError struct {
	IncidentID string
	Stage      string
	Err        error
}

// RunReport aggregates post-processing outcomes. Each step is best-effort
// per incident; failures land here instead of aborting the run.
type RunReport struct {
	IncidentsFound      int
	IncidentsSaved      int
	Notified            int
	NarrativesGenerated int
	Failed              []ItemError
}

func (r *RunReport) fail(id, stage string, err error) {
	r.Failed = append(r.Failed, ItemError{IncidentID: id, Stage: stage, Err: err})
}

// postProcess runs narrative generation, persistence, notification, and
// rule usage recording for each incident. Incidents below the save
// fidelity floor are reported but not persisted.
func (e *Engine) postProcess(ctx context.Context, incidents []core.CorrelatedIncident) RunReport {
	report := RunReport{IncidentsFound: len(incidents)}

	for i := range incidents {
		incident := &incidents[i]

		if e.narrative != nil && e.wantsNarrative(incident) {
			summary, err := e.narrative.Generate(ctx, summarizeIncident(incident))
			if err != nil {
				report.fail(incident.ID, "narrative", err)
				e.logger.Warnw("Narrative generation failed", "incident_id", incident.ID, "error", err)
			} else {
				incident.Narrative = summary
				report.NarrativesGenerated++
			}
		}

		if incident.FidelityScore >= e.cfg.Engine.MinSaveFidelity {
			if err := e.store.CreateIncident(ctx, incident); err != nil {
				report.fail(incident.ID, "save", err)
				e.logger.Errorw("Failed to save incident", "incident_id", incident.ID, "error", err)
			} else {
				report.IncidentsSaved++
				metrics.IncidentsSaved.Inc()
			}
		}

		if e.notifier != nil && incident.Severity.AtLeast(core.Severity(e.cfg.Notifications.MinSeverity)) {
			if err := e.notifier.NotifyIncident(ctx, incident); err != nil {
				report.fail(incident.ID, "notify", err)
				e.logger.Warnw("Incident notification failed", "incident_id", incident.ID, "error", err)
			} else {
				report.Notified++
			}
		}

		if err := e.store.RecordRuleTrigger(ctx, incident.RuleID, incident.CreatedDate); err != nil {
			report.fail(incident.ID, "rule_usage", err)
			e.logger.Warnw("Failed to record rule trigger", "rule_id", incident.RuleID, "error", err)
		}
	}

	return report
}

func (e *Engine) wantsNarrative(incident *core.CorrelatedIncident) bool {
	return incident.FidelityScore >= e.cfg.Narrative.MinFidelity ||
		incident.Severity == core.SeverityCritical
}

// summarizeIncident condenses an incident for narrative generation.
func summarizeIncident(incident *core.CorrelatedIncident) narrative.IncidentSummary {
	seen := make(map[string]struct{})
	var eventTypes []string
	for _, entry := range incident.EventChain {
		if entry.Type == "" {
			continue
		}
		if _, dup := seen[entry.Type]; dup {
			continue
		}
		seen[entry.Type] = struct{}{}
		eventTypes = append(eventTypes, entry.Type)
	}

	return narrative.IncidentSummary{
		RuleName:        incident.RuleName,
		Severity:        string(incident.Severity),
		CorrelationKey:  incident.CorrelationKey,
		CorrelationType: incident.CorrelationType,
		Sources:         incident.SourcesInvolved,
		EventTypes:      eventTypes,
		EventCount:      len(incident.EventChain),
		TimeSpanMinutes: incident.TimeSpanMinutes,
		ThreatMatches:   len(incident.ThreatIntelMatches),
	}
}
