package correlate

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"argus/core"
)

// Event chain limits.
const (
	maxChainSecurityEvents = 20
	maxChainEndpointEvents = 10
	maxChainSummaryLength  = 100
)

// buildIncident assembles the output incident for a surviving candidate.
func buildIncident(rule *core.CorrelationRule, keyType, key string, matched []core.SecurityEvent, enr enrichment, now time.Time) *core.CorrelatedIncident {
	chain := buildEventChain(matched, enr.EndpointEvents)

	hasIntel := len(enr.IntelMatches) > 0
	severity := outputSeverity(rule, hasIntel, len(enr.Sources))
	fidelity := fidelityScore(len(enr.Sources), hasIntel, len(matched), distinctIPCount(matched))
	confidence := confidenceScore(matched, len(enr.Sources))

	incident := &core.CorrelatedIncident{
		ID:              uuid.NewString(),
		CreatedDate:     now.UTC(),
		RuleID:          rule.ID,
		RuleName:        rule.Name,
		Title:           fmt.Sprintf("%s: %s", rule.Name, key),
		Description: fmt.Sprintf("%d correlated events for %s %s across %d sources",
			len(matched), keyType, key, len(enr.Sources)),
		Severity:           severity,
		ConfidenceScore:    confidence,
		FidelityScore:      fidelity,
		CorrelationKey:     key,
		CorrelationType:    keyType,
		SourcesInvolved:    enr.Sources,
		EventChain:         chain,
		RelatedIPs:         collectDistinct(matched, func(e core.SecurityEvent) string { return e.IPAddress }),
		RelatedUsers:       collectDistinct(matched, func(e core.SecurityEvent) string { return e.UserEmail }),
		ThreatIntelMatches: enr.IntelMatches,
		MitreTechniques:    rule.MitreTechniques,
		TimeSpanMinutes:    chainSpanMinutes(chain),
	}

	for _, ep := range enr.Endpoints {
		incident.RelatedEndpoints = append(incident.RelatedEndpoints, ep.ID)
	}

	if rule.Description != "" {
		incident.Description = rule.Description + ". " + incident.Description
	}

	return incident
}

// buildEventChain merges security and endpoint events into one timeline,
// oldest first, with bounded entry counts and truncated summaries.
func buildEventChain(events []core.SecurityEvent, endpointEvents []core.EndpointEvent) []core.ChainEntry {
	var chain []core.ChainEntry

	n := len(events)
	if n > maxChainSecurityEvents {
		n = maxChainSecurityEvents
	}
	for _, e := range events[:n] {
		chain = append(chain, core.ChainEntry{
			Source:    core.SourceSecurityEvents,
			EventID:   e.ID,
			Type:      e.EventType,
			Severity:  e.Severity,
			Timestamp: e.CreatedDate,
			Summary:   truncateSummary(e.Message),
		})
	}

	n = len(endpointEvents)
	if n > maxChainEndpointEvents {
		n = maxChainEndpointEvents
	}
	for _, e := range endpointEvents[:n] {
		summary := e.Description
		if summary == "" {
			summary = e.ProcessName
		}
		chain = append(chain, core.ChainEntry{
			Source:    core.SourceEndpointEvents,
			EventID:   e.ID,
			Type:      e.Type,
			Severity:  e.Severity,
			Timestamp: e.Timestamp,
			Summary:   truncateSummary(summary),
		})
	}

	sort.SliceStable(chain, func(i, j int) bool {
		return chain[i].Timestamp.Before(chain[j].Timestamp)
	})
	return chain
}

// chainSpanMinutes is the timeline width of the chain, 0 when the chain
// has at most one entry.
func chainSpanMinutes(chain []core.ChainEntry) float64 {
	if len(chain) < 2 {
		return 0
	}
	span := chain[len(chain)-1].Timestamp.Sub(chain[0].Timestamp)
	return span.Minutes()
}

func truncateSummary(s string) string {
	if len(s) <= maxChainSummaryLength {
		return s
	}
	return s[:maxChainSummaryLength]
}

func collectDistinct(events []core.SecurityEvent, field func(core.SecurityEvent) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range events {
		v := field(e)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// sortIncidents orders produced incidents by severity descending, then
// fidelity score descending.
func sortIncidents(incidents []core.CorrelatedIncident) {
	sort.SliceStable(incidents, func(i, j int) bool {
		if incidents[i].Severity.Weight() != incidents[j].Severity.Weight() {
			return incidents[i].Severity.Weight() > incidents[j].Severity.Weight()
		}
		return incidents[i].FidelityScore > incidents[j].FidelityScore
	})
}
