package storage

import (
	"context"
	"time"

	"argus/core"
)

// SecurityEventStorageInterface defines bounded reads over security events.
type SecurityEventStorageInterface interface {
	// GetRecentSecurityEvents returns events created at or after since,
	// newest first, capped at limit.
	GetRecentSecurityEvents(ctx context.Context, since time.Time, limit int) ([]core.SecurityEvent, error)
}

// EndpointStorageInterface defines bounded reads over endpoints and their telemetry.
type EndpointStorageInterface interface {
	GetEndpoints(ctx context.Context, limit int) ([]core.Endpoint, error)
	// GetRecentEndpointEvents returns endpoint events at or after since,
	// newest first, capped at limit.
	GetRecentEndpointEvents(ctx context.Context, since time.Time, limit int) ([]core.EndpointEvent, error)
}

// BlockedIPStorageInterface defines reads over the IP block list.
type BlockedIPStorageInterface interface {
	GetActiveBlockedIPs(ctx context.Context) ([]core.BlockedIP, error)
}

// CorrelationRuleStorageInterface defines reads and usage bookkeeping over
// correlation rules.
type CorrelationRuleStorageInterface interface {
	GetEnabledCorrelationRules(ctx context.Context) ([]core.CorrelationRule, error)
	GetCorrelationRule(ctx context.Context, id string) (*core.CorrelationRule, error)
	// UpsertCorrelationRule inserts or replaces a rule by id.
	UpsertCorrelationRule(ctx context.Context, rule *core.CorrelationRule) error
	// RecordRuleTrigger increments trigger_count and sets last_triggered.
	// Bookkeeping only; failure never affects detection.
	RecordRuleTrigger(ctx context.Context, id string, at time.Time) error
}

// IncidentStorageInterface defines writes for produced incidents.
type IncidentStorageInterface interface {
	CreateIncident(ctx context.Context, incident *core.CorrelatedIncident) error
}

// NotificationStorageInterface defines writes for outbound notifications.
type NotificationStorageInterface interface {
	CreateNotification(ctx context.Context, notification *core.Notification) error
}

// Store aggregates every repository the correlation engine consumes.
type Store interface {
	SecurityEventStorageInterface
	EndpointStorageInterface
	BlockedIPStorageInterface
	CorrelationRuleStorageInterface
	IncidentStorageInterface
	NotificationStorageInterface
}
