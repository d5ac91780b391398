package core

import (
	"time"
)

// Severity levels for security telemetry, ordered by weight.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityWeights maps severity names to their ordinal weight.
var severityWeights = map[Severity]int{
	SeverityInfo:     1,
	SeverityLow:      2,
	SeverityMedium:   3,
	SeverityHigh:     4,
	SeverityCritical: 5,
}

// Weight returns the ordinal weight of a severity (info=1 .. critical=5).
// Unknown severities weigh 1 so malformed telemetry never outranks real signal.
func (s Severity) Weight() int {
	if w, ok := severityWeights[s]; ok {
		return w
	}
	return 1
}

// AtLeast reports whether s is at least as severe as min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Weight() >= min.Weight()
}

// SecurityEvent is a single piece of security telemetry. Events are
// immutable once created; the engine only reads them.
type SecurityEvent struct {
	ID          string                 `json:"id" bson:"_id"`
	CreatedDate time.Time              `json:"created_date" bson:"created_date"`
	EventType   string                 `json:"event_type" bson:"event_type"`
	Severity    Severity               `json:"severity" bson:"severity"`
	IPAddress   string                 `json:"ip_address,omitempty" bson:"ip_address,omitempty"`
	UserEmail   string                 `json:"user_email,omitempty" bson:"user_email,omitempty"`
	Message     string                 `json:"message" bson:"message"`
	Details     map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
}

// EndpointEvent is telemetry reported by an endpoint agent.
type EndpointEvent struct {
	ID          string    `json:"id" bson:"_id"`
	EndpointID  string    `json:"endpoint_id" bson:"endpoint_id"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
	Type        string    `json:"type" bson:"type"`
	Severity    Severity  `json:"severity" bson:"severity"`
	ProcessName string    `json:"process_name,omitempty" bson:"process_name,omitempty"`
	FilePath    string    `json:"file_path,omitempty" bson:"file_path,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
}

// Endpoint is a monitored host. Mutated externally, never by the engine.
type Endpoint struct {
	ID         string `json:"id" bson:"_id"`
	Hostname   string `json:"hostname" bson:"hostname"`
	LastIP     string `json:"last_ip,omitempty" bson:"last_ip,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty" bson:"owner_email,omitempty"`
}

// BlockedIP is a block-list entry. Read-only to the engine.
type BlockedIP struct {
	IPAddress    string    `json:"ip_address" bson:"ip_address"`
	Active       bool      `json:"active" bson:"active"`
	BlockedUntil time.Time `json:"blocked_until" bson:"blocked_until"`
}

// CurrentlyBlocked reports whether the entry is active and not yet expired.
func (b BlockedIP) CurrentlyBlocked(now time.Time) bool {
	return b.Active && (b.BlockedUntil.IsZero() || b.BlockedUntil.After(now))
}
