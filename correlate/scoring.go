package correlate

import (
	"math"

	"argus/core"
)

// Fidelity scoring terms.
const (
	fidelityPerSource    = 15
	fidelitySourceCap    = 45
	fidelityIntelBonus   = 25
	fidelityPerEvent     = 2
	fidelityVolumeCap    = 20
	fidelityMultiIPBonus = 10
)

// fidelityScore estimates how well-corroborated a candidate is: source
// diversity (capped), threat-intel confirmation, event volume (capped),
// and multi-IP spread. Clamped to 0..100.
func fidelityScore(sourceCount int, hasIntelMatch bool, eventCount, distinctIPs int) int {
	score := fidelityPerSource * sourceCount
	if score > fidelitySourceCap {
		score = fidelitySourceCap
	}
	if hasIntelMatch {
		score += fidelityIntelBonus
	}
	volume := fidelityPerEvent * eventCount
	if volume > fidelityVolumeCap {
		volume = fidelityVolumeCap
	}
	score += volume
	if distinctIPs > 1 {
		score += fidelityMultiIPBonus
	}
	if score > 100 {
		score = 100
	}
	return score
}

// confidenceScore estimates detection certainty from average event
// severity and source diversity. Clamped to 0..100.
func confidenceScore(events []core.SecurityEvent, sourceCount int) int {
	if len(events) == 0 {
		return 0
	}

	var total int
	for _, e := range events {
		total += e.Severity.Weight()
	}
	avg := float64(total) / float64(len(events))

	score := int(math.Round(50 + 5*avg + 10*float64(sourceCount)))
	if score > 100 {
		score = 100
	}
	return score
}

// outputSeverity picks the incident severity: the rule's configured
// output, escalated to critical on threat-intel confirmation or when four
// or more sources corroborate.
func outputSeverity(rule *core.CorrelationRule, hasIntelMatch bool, sourceCount int) core.Severity {
	if hasIntelMatch || sourceCount >= 4 {
		return core.SeverityCritical
	}
	return rule.EffectiveOutputSeverity()
}

// distinctIPCount counts distinct non-empty source IPs among events.
func distinctIPCount(events []core.SecurityEvent) int {
	seen := make(map[string]struct{})
	for _, e := range events {
		if e.IPAddress != "" {
			seen[e.IPAddress] = struct{}{}
		}
	}
	return len(seen)
}
