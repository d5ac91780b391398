package core

import (
	"time"
)

// Correlation source labels recorded in CorrelatedIncident.SourcesInvolved.
const (
	SourceSecurityEvents = "security_events"
	SourceEndpoints      = "endpoints"
	SourceEndpointEvents = "endpoint_events"
	SourceBlockedIPs     = "blocked_ips"
	SourceThreatIntel    = "threat_intel"
)

// ChainEntry is one entry of an incident's ordered event chain.
type ChainEntry struct {
	Source    string    `json:"source" bson:"source"`
	EventID   string    `json:"event_id" bson:"event_id"`
	Type      string    `json:"type" bson:"type"`
	Severity  Severity  `json:"severity" bson:"severity"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Summary   string    `json:"summary" bson:"summary"`
}

// ThreatIntelMatch records a confirmed threat-intelligence hit on an indicator.
type ThreatIntelMatch struct {
	Indicator string   `json:"indicator" bson:"indicator"`
	Source    string   `json:"source" bson:"source"`
	Families  []string `json:"families,omitempty" bson:"families,omitempty"`
}

// NarrativeSummary is the AI-generated analyst narrative attached to
// high-fidelity incidents. Best-effort; absent when generation fails.
type NarrativeSummary struct {
	AttackNarrative    string   `json:"attack_narrative,omitempty" bson:"attack_narrative,omitempty"`
	AttackStage        string   `json:"attack_stage,omitempty" bson:"attack_stage,omitempty"`
	RecommendedActions []string `json:"recommended_actions,omitempty" bson:"recommended_actions,omitempty"`
	MitreTechniques    []string `json:"mitre_techniques,omitempty" bson:"mitre_techniques,omitempty"`
}

// CorrelatedIncident is the engine's output: at most one per
// (rule, correlation key) pair per run, never mutated after creation.
type CorrelatedIncident struct {
	ID                 string             `json:"id" bson:"_id"`
	CreatedDate        time.Time          `json:"created_date" bson:"created_date"`
	RuleID             string             `json:"rule_id" bson:"rule_id"`
	RuleName           string             `json:"rule_name" bson:"rule_name"`
	Title              string             `json:"title" bson:"title"`
	Description        string             `json:"description" bson:"description"`
	Severity           Severity           `json:"severity" bson:"severity"`
	ConfidenceScore    int                `json:"confidence_score" bson:"confidence_score"`
	FidelityScore      int                `json:"fidelity_score" bson:"fidelity_score"`
	CorrelationKey     string             `json:"correlation_key" bson:"correlation_key"`
	CorrelationType    string             `json:"correlation_type" bson:"correlation_type"`
	SourcesInvolved    []string           `json:"sources_involved" bson:"sources_involved"`
	EventChain         []ChainEntry       `json:"event_chain" bson:"event_chain"`
	RelatedIPs         []string           `json:"related_ips,omitempty" bson:"related_ips,omitempty"`
	RelatedUsers       []string           `json:"related_users,omitempty" bson:"related_users,omitempty"`
	RelatedEndpoints   []string           `json:"related_endpoints,omitempty" bson:"related_endpoints,omitempty"`
	ThreatIntelMatches []ThreatIntelMatch `json:"threat_intel_matches,omitempty" bson:"threat_intel_matches,omitempty"`
	MitreTechniques    []string           `json:"mitre_techniques,omitempty" bson:"mitre_techniques,omitempty"`
	TimeSpanMinutes    float64            `json:"time_span_minutes" bson:"time_span_minutes"`
	Narrative          *NarrativeSummary  `json:"narrative,omitempty" bson:"narrative,omitempty"`
}

// DedupKey returns the (rule, key type, key value) identity used to
// guarantee at most one incident per pair per run.
func (i *CorrelatedIncident) DedupKey() string {
	return i.RuleID + ":" + i.CorrelationType + ":" + i.CorrelationKey
}

// Notification is an outbound alert record raised for critical and high
// severity incidents.
type Notification struct {
	ID          string    `json:"id" bson:"_id"`
	CreatedDate time.Time `json:"created_date" bson:"created_date"`
	Title       string    `json:"title" bson:"title"`
	Message     string    `json:"message" bson:"message"`
	Severity    Severity  `json:"severity" bson:"severity"`
	IncidentID  string    `json:"incident_id,omitempty" bson:"incident_id,omitempty"`
}
