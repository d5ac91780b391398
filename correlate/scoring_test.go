package correlate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"argus/core"
)

func TestFidelityScore(t *testing.T) {
	// Single source, no intel, 3 events, one IP: 15 + 6.
	assert.Equal(t, 21, fidelityScore(1, false, 3, 1))

	// Source term caps at 45 even with five sources.
	assert.Equal(t, 45, fidelityScore(5, false, 0, 1))

	// Intel bonus and multi-IP bonus stack.
	assert.Equal(t, 15+25+2+10, fidelityScore(1, true, 1, 2))

	// Volume term caps at 20.
	assert.Equal(t, 15+20, fidelityScore(1, false, 500, 1))

	// Everything maxed clamps at 100.
	assert.Equal(t, 100, fidelityScore(5, true, 500, 10))
}

func TestConfidenceScore(t *testing.T) {
	events := []core.SecurityEvent{
		{Severity: core.SeverityHigh},
		{Severity: core.SeverityHigh},
	}
	// 50 + 5*4 + 10*1 = 80.
	assert.Equal(t, 80, confidenceScore(events, 1))

	critical := []core.SecurityEvent{{Severity: core.SeverityCritical}}
	// 50 + 25 + 50 clamps to 100.
	assert.Equal(t, 100, confidenceScore(critical, 5))

	assert.Equal(t, 0, confidenceScore(nil, 3))
}

func TestConfidenceScoreWithinBounds(t *testing.T) {
	for _, sev := range []core.Severity{core.SeverityInfo, core.SeverityLow, core.SeverityMedium, core.SeverityHigh, core.SeverityCritical} {
		for sources := 0; sources <= 5; sources++ {
			score := confidenceScore([]core.SecurityEvent{{Severity: sev}}, sources)
			assert.GreaterOrEqual(t, score, 0)
			assert.LessOrEqual(t, score, 100)
		}
	}
}

func TestOutputSeverityEscalation(t *testing.T) {
	rule := &core.CorrelationRule{OutputSeverity: core.SeverityMedium}

	assert.Equal(t, core.SeverityMedium, outputSeverity(rule, false, 2))
	assert.Equal(t, core.SeverityCritical, outputSeverity(rule, true, 1), "intel match escalates")
	assert.Equal(t, core.SeverityCritical, outputSeverity(rule, false, 4), "four sources escalate")

	defaulted := &core.CorrelationRule{}
	assert.Equal(t, core.SeverityHigh, outputSeverity(defaulted, false, 1))
}

func TestDistinctIPCount(t *testing.T) {
	events := []core.SecurityEvent{
		{IPAddress: "10.0.0.1"},
		{IPAddress: "10.0.0.1"},
		{IPAddress: "10.0.0.2"},
		{},
	}
	assert.Equal(t, 2, distinctIPCount(events))
}
