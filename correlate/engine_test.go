package correlate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"argus/config"
	"argus/core"
	"argus/narrative"
	"argus/notify"
	"argus/storage"
	"argus/threat"
)

var testNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Engine.DefaultWindowHours = 1
	cfg.Engine.MaxSecurityEvents = 500
	cfg.Engine.MaxEndpoints = 200
	cfg.Engine.MaxEndpointEvents = 500
	cfg.Engine.MinSaveFidelity = 40
	cfg.Narrative.MinFidelity = 70
	cfg.Notifications.MinSeverity = string(core.SeverityHigh)
	return cfg
}

func testEngine(store storage.Store, intel threat.Lookuper, gen narrative.Generator, sink notify.Sink) *Engine {
	e := NewEngine(store, intel, gen, sink, testConfig(), zap.NewNop().Sugar())
	e.now = func() time.Time { return testNow }
	return e
}

func secEvent(id, eventType string, sev core.Severity, ip string, age time.Duration) core.SecurityEvent {
	return core.SecurityEvent{
		ID:          id,
		EventType:   eventType,
		Severity:    sev,
		IPAddress:   ip,
		Message:     eventType + " from " + ip,
		CreatedDate: testNow.Add(-age),
	}
}

func thresholdRule(id string, count int) core.CorrelationRule {
	return core.CorrelationRule{
		ID:              id,
		Name:            "Repeated High Severity Activity",
		Enabled:         true,
		CorrelationKeys: []string{core.CorrelationKeyIP},
		TimeWindowMin:   30,
		Conditions: []core.RuleCondition{
			{Source: core.SourceSecurityEvents, Field: "severity", Operator: core.OpIn, Value: "high,critical", Required: true},
		},
		Threshold:      &core.RuleThreshold{Count: count},
		OutputSeverity: core.SeverityHigh,
	}
}

// Three qualifying events from one IP against a count-2 threshold rule
// must produce exactly one incident with a fully populated chain.
func TestRunSingleIPThreshold(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
		secEvent("e3", "privilege_escalation", core.SeverityCritical, "10.0.0.5", 5*time.Minute),
	}
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)

	incident := result.Incidents[0]
	assert.Equal(t, "r1", incident.RuleID)
	assert.Equal(t, "10.0.0.5", incident.CorrelationKey)
	assert.Equal(t, core.CorrelationKeyIP, incident.CorrelationType)
	assert.Len(t, incident.EventChain, 3)
	assert.GreaterOrEqual(t, incident.FidelityScore, 21, "one source plus three events")
	assert.Equal(t, []string{core.SourceSecurityEvents}, incident.SourcesInvolved)
	assert.Equal(t, 1, result.Report.IncidentsFound)

	// Chain is oldest first.
	assert.Equal(t, "e1", incident.EventChain[0].EventID)
	assert.Equal(t, "e3", incident.EventChain[2].EventID)
	assert.InDelta(t, 15.0, incident.TimeSpanMinutes, 0.01)
}

// An endpoint sharing the candidate IP pulls endpoint and endpoint-event
// sources into the incident.
func TestRunEndpointEnrichment(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	store.Endpoints = []core.Endpoint{
		{ID: "ep-1", Hostname: "ws-042", LastIP: "10.0.0.5"},
	}
	store.EndpointEvents = []core.EndpointEvent{
		{ID: "ee-1", EndpointID: "ep-1", Type: "process_start", Timestamp: testNow.Add(-12 * time.Minute)},
		{ID: "ee-2", EndpointID: "ep-1", Type: "registry_write", Timestamp: testNow.Add(-8 * time.Minute)},
	}
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)

	incident := result.Incidents[0]
	assert.Contains(t, incident.SourcesInvolved, core.SourceEndpoints)
	assert.Contains(t, incident.SourcesInvolved, core.SourceEndpointEvents)
	assert.Equal(t, []string{"ep-1"}, incident.RelatedEndpoints)
	assert.Len(t, incident.EventChain, 4, "endpoint events join the chain")
}

// rule_ids restricts evaluation to the named rules only.
func TestRunRuleIDFilter(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	store.Rules = []core.CorrelationRule{
		thresholdRule("r1", 2),
		thresholdRule("r2", 2),
	}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{RuleIDs: []string{"r1"}})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)
	assert.Equal(t, "r1", result.Incidents[0].RuleID)
}

// At most one incident per (rule, key) pair even when the rule lists a
// key type twice.
func TestRunDeduplicatesRuleKeyPairs(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	rule := thresholdRule("r1", 2)
	rule.CorrelationKeys = []string{core.CorrelationKeyIP, core.CorrelationKeyIP}
	store.Rules = []core.CorrelationRule{rule}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Len(t, result.Incidents, 1)
}

// Below-threshold candidates never produce incidents.
func TestRunThresholdNotMet(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Incidents)
}

// Unique-field thresholds count distinct values, not events.
func TestRunUniqueFieldThreshold(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		{ID: "e1", EventType: "failed_login", Severity: core.SeverityHigh, IPAddress: "10.0.0.5", UserEmail: "a@corp.example", CreatedDate: testNow.Add(-20 * time.Minute)},
		{ID: "e2", EventType: "failed_login", Severity: core.SeverityHigh, IPAddress: "10.0.0.5", UserEmail: "a@corp.example", CreatedDate: testNow.Add(-15 * time.Minute)},
		{ID: "e3", EventType: "failed_login", Severity: core.SeverityHigh, IPAddress: "10.0.0.5", UserEmail: "b@corp.example", CreatedDate: testNow.Add(-10 * time.Minute)},
	}
	rule := thresholdRule("r1", 0)
	rule.Threshold = &core.RuleThreshold{UniqueField: "user_email", UniqueCount: 3}
	store.Rules = []core.CorrelationRule{rule}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Incidents, "two distinct users do not satisfy unique_count 3")

	store.SecurityEvents = append(store.SecurityEvents,
		core.SecurityEvent{ID: "e4", EventType: "failed_login", Severity: core.SeverityHigh, IPAddress: "10.0.0.5", UserEmail: "c@corp.example", CreatedDate: testNow.Add(-5 * time.Minute)})

	result, err = engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Len(t, result.Incidents, 1)
}

// The sliding window anchors at the newest event: older stragglers are
// trimmed, the candidate survives when enough events remain.
func TestRunWindowTruncation(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("old", "failed_login", core.SeverityHigh, "10.0.0.5", 50*time.Minute),
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 5*time.Minute),
	}
	rule := thresholdRule("r1", 2)
	rule.TimeWindowMin = 15
	store.Rules = []core.CorrelationRule{rule}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)

	chain := result.Incidents[0].EventChain
	require.Len(t, chain, 2)
	assert.Equal(t, "e1", chain[0].EventID)
	assert.Equal(t, "e2", chain[1].EventID)
}

// A single surviving event after truncation is noise, not an incident.
func TestRunSingleEventAfterTruncation(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("old", "failed_login", core.SeverityHigh, "10.0.0.5", 50*time.Minute),
		secEvent("new", "failed_login", core.SeverityHigh, "10.0.0.5", 5*time.Minute),
	}
	rule := thresholdRule("r1", 0)
	rule.TimeWindowMin = 15
	store.Rules = []core.CorrelationRule{rule}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Incidents)
}

func sequenceRule(id string) core.CorrelationRule {
	return core.CorrelationRule{
		ID:              id,
		Name:            "Login Then Escalation",
		Enabled:         true,
		CorrelationKeys: []string{core.CorrelationKeyIP},
		TimeWindowMin:   60,
		PatternType:     core.PatternTypeSequence,
		Sequence: []core.SequenceStep{
			{EventType: "failed_login", SeverityMin: core.SeverityMedium},
			{EventType: "successful_login", MaxGapMinutes: 10},
			{EventType: "privilege", MaxGapMinutes: 10},
		},
		OutputSeverity: core.SeverityCritical,
	}
}

func TestRunSequenceMatch(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("s1", "failed_login_attempt", core.SeverityHigh, "10.0.0.9", 30*time.Minute),
		secEvent("noise", "dns_query", core.SeverityInfo, "10.0.0.9", 28*time.Minute),
		secEvent("s2", "successful_login", core.SeverityLow, "10.0.0.9", 25*time.Minute),
		secEvent("s3", "privilege_escalation", core.SeverityHigh, "10.0.0.9", 20*time.Minute),
	}
	store.Rules = []core.CorrelationRule{sequenceRule("seq1")}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)

	chain := result.Incidents[0].EventChain
	require.Len(t, chain, 3, "only the matched steps, not the noise event")
	assert.Equal(t, "s1", chain[0].EventID)
	assert.Equal(t, "s2", chain[1].EventID)
	assert.Equal(t, "s3", chain[2].EventID)
}

// Steps out of order never match: the walk does not backtrack.
func TestRunSequenceOutOfOrder(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("s3", "privilege_escalation", core.SeverityHigh, "10.0.0.9", 30*time.Minute),
		secEvent("s2", "successful_login", core.SeverityLow, "10.0.0.9", 25*time.Minute),
		secEvent("s1", "failed_login_attempt", core.SeverityHigh, "10.0.0.9", 20*time.Minute),
	}
	store.Rules = []core.CorrelationRule{sequenceRule("seq1")}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Incidents)
}

// A gap above max_gap_minutes breaks the sequence.
func TestRunSequenceMaxGapExceeded(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("s1", "failed_login_attempt", core.SeverityHigh, "10.0.0.9", 50*time.Minute),
		secEvent("s2", "successful_login", core.SeverityLow, "10.0.0.9", 20*time.Minute),
		secEvent("s3", "privilege_escalation", core.SeverityHigh, "10.0.0.9", 15*time.Minute),
	}
	store.Rules = []core.CorrelationRule{sequenceRule("seq1")}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Incidents, "30 minute gap exceeds the 10 minute step limit")
}

// A threat-intel match escalates severity to critical and adds the intel
// source and fidelity bonus.
func TestRunThreatIntelEscalation(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}

	intel := threat.NewMockLookuper(map[string]threat.Result{
		"10.0.0.5": {Matched: true, RiskScore: 90, Families: []string{"emotet"}, Sources: []string{"feed-a"}},
	})

	engine := testEngine(store, intel, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)

	incident := result.Incidents[0]
	assert.Equal(t, core.SeverityCritical, incident.Severity)
	assert.Contains(t, incident.SourcesInvolved, core.SourceThreatIntel)
	require.Len(t, incident.ThreatIntelMatches, 1)
	assert.Equal(t, "10.0.0.5", incident.ThreatIntelMatches[0].Indicator)
	assert.Equal(t, []string{"emotet"}, incident.ThreatIntelMatches[0].Families)

	require.Len(t, intel.Calls, 1)
	assert.Equal(t, []string{"10.0.0.5"}, intel.Calls[0])
	assert.True(t, intel.DeepRequested[0])
}

// Intel lookup failure degrades to no intel; the run still succeeds.
func TestRunThreatIntelFailureNonFatal(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}

	intel := threat.NewMockLookuper(nil)
	intel.Err = errors.New("provider unavailable")

	engine := testEngine(store, intel, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)
	assert.NotEqual(t, core.SeverityCritical, result.Incidents[0].Severity)
	assert.Empty(t, result.Incidents[0].ThreatIntelMatches)
}

// Any loader failure fails the whole run with no partial results.
func TestRunLoadFailureIsFatal(t *testing.T) {
	store := storage.NewMockStore()
	store.ErrBlockedIPs = errors.New("mongo timeout")
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "blocked_ips")
}

// Invalid rules are skipped, valid ones still evaluate.
func TestRunSkipsInvalidRules(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	invalid := thresholdRule("bad", 2)
	invalid.Name = ""
	store.Rules = []core.CorrelationRule{invalid, thresholdRule("good", 2)}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)
	assert.Equal(t, "good", result.Incidents[0].RuleID)
}

// Incidents sort by severity first, fidelity second.
func TestRunIncidentOrdering(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("a1", "failed_login", core.SeverityHigh, "10.0.0.1", 20*time.Minute),
		secEvent("a2", "failed_login", core.SeverityHigh, "10.0.0.1", 10*time.Minute),
		secEvent("b1", "port_scan", core.SeverityMedium, "10.0.0.2", 20*time.Minute),
		secEvent("b2", "port_scan", core.SeverityMedium, "10.0.0.2", 10*time.Minute),
	}
	high := thresholdRule("high-rule", 2)
	medium := core.CorrelationRule{
		ID:              "medium-rule",
		Name:            "Scanning Activity",
		Enabled:         true,
		CorrelationKeys: []string{core.CorrelationKeyIP},
		TimeWindowMin:   30,
		Conditions: []core.RuleCondition{
			{Source: core.SourceSecurityEvents, Field: "event_type", Operator: core.OpContains, Value: "port_scan", Required: true},
		},
		Threshold:      &core.RuleThreshold{Count: 2},
		OutputSeverity: core.SeverityMedium,
	}
	store.Rules = []core.CorrelationRule{medium, high}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 2)
	assert.Equal(t, core.SeverityHigh, result.Incidents[0].Severity)
	assert.Equal(t, core.SeverityMedium, result.Incidents[1].Severity)
}

// Post-processing persists above the fidelity floor, notifies high and
// critical incidents, records rule usage, and generates narratives.
func TestRunPostProcessing(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}
	store.Endpoints = []core.Endpoint{{ID: "ep-1", LastIP: "10.0.0.5"}}
	store.EndpointEvents = []core.EndpointEvent{
		{ID: "ee-1", EndpointID: "ep-1", Type: "process_start", Timestamp: testNow.Add(-9 * time.Minute)},
	}

	intel := threat.NewMockLookuper(map[string]threat.Result{
		"10.0.0.5": {Matched: true, Sources: []string{"feed-a"}},
	})
	gen := &narrative.MockGenerator{}
	sink := &notify.MockSink{}

	engine := testEngine(store, intel, gen, sink)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)

	report := result.Report
	assert.Equal(t, 1, report.IncidentsFound)
	assert.Equal(t, 1, report.IncidentsSaved)
	assert.Equal(t, 1, report.Notified)
	assert.Equal(t, 1, report.NarrativesGenerated, "critical incident gets a narrative")
	assert.Empty(t, report.Failed)

	require.Len(t, store.SavedIncidents, 1)
	assert.NotNil(t, store.SavedIncidents[0].Narrative)
	assert.Equal(t, 1, store.TriggeredRules["r1"])
	require.Len(t, sink.Incidents, 1)
	require.Len(t, gen.Summaries, 1)
	assert.Equal(t, "critical", gen.Summaries[0].Severity)
}

// One failing step neither aborts the run nor blocks the other steps.
func TestRunPostProcessingBestEffort(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	store.Rules = []core.CorrelationRule{thresholdRule("r1", 2)}
	store.ErrCreateIncident = errors.New("disk full")

	sink := &notify.MockSink{}
	engine := testEngine(store, nil, nil, sink)
	engine.cfg.Engine.MinSaveFidelity = 10

	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, 1, report.IncidentsFound)
	assert.Equal(t, 0, report.IncidentsSaved)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "save", report.Failed[0].Stage)
	assert.Equal(t, 1, report.Notified, "notification still runs after a failed save")
	assert.Equal(t, 1, store.TriggeredRules["r1"])
}

// Below the save floor an incident is reported but not persisted.
func TestRunLowFidelityNotSaved(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "port_scan", core.SeverityLow, "10.0.0.7", 20*time.Minute),
		secEvent("e2", "port_scan", core.SeverityLow, "10.0.0.7", 10*time.Minute),
	}
	rule := thresholdRule("r1", 2)
	rule.Conditions = nil
	store.Rules = []core.CorrelationRule{rule}

	engine := testEngine(store, nil, nil, nil)
	engine.cfg.Engine.MinSaveFidelity = 40

	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	require.Len(t, result.Incidents, 1)
	assert.Less(t, result.Incidents[0].FidelityScore, 40)
	assert.Equal(t, 0, result.Report.IncidentsSaved)
	assert.Empty(t, store.SavedIncidents)
}

// A non-required condition with no matches leaves the running set intact;
// a required one abandons the candidate.
func TestRunConditionNarrowing(t *testing.T) {
	store := storage.NewMockStore()
	store.SecurityEvents = []core.SecurityEvent{
		secEvent("e1", "failed_login", core.SeverityHigh, "10.0.0.5", 20*time.Minute),
		secEvent("e2", "failed_login", core.SeverityHigh, "10.0.0.5", 10*time.Minute),
	}
	rule := thresholdRule("r1", 2)
	rule.Conditions = append(rule.Conditions, core.RuleCondition{
		Source: core.SourceSecurityEvents, Field: "event_type", Operator: core.OpEquals, Value: "no_such_type", Required: false,
	})
	store.Rules = []core.CorrelationRule{rule}

	engine := testEngine(store, nil, nil, nil)
	result, err := engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Len(t, result.Incidents, 1, "optional condition without matches is ignored")

	rule.Conditions[1].Required = true
	store.Rules = []core.CorrelationRule{rule}
	result, err = engine.Run(context.Background(), RunParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Incidents, "required condition without matches abandons the candidate")
}
