package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"argus/core"
)

// MockStore is an in-memory Store for tests. Fields prefixed Err force the
// corresponding operation to fail.
type MockStore struct {
	mu sync.Mutex

	SecurityEvents []core.SecurityEvent
	Endpoints      []core.Endpoint
	EndpointEvents []core.EndpointEvent
	BlockedIPs     []core.BlockedIP
	Rules          []core.CorrelationRule

	SavedIncidents     []core.CorrelatedIncident
	SavedNotifications []core.Notification
	TriggeredRules     map[string]int

	ErrSecurityEvents error
	ErrEndpoints      error
	ErrEndpointEvents error
	ErrBlockedIPs     error
	ErrRules          error
	ErrCreateIncident error
	ErrNotification   error
	ErrRecordTrigger  error
}

// NewMockStore creates an empty in-memory store.
func NewMockStore() *MockStore {
	return &MockStore{TriggeredRules: make(map[string]int)}
}

func (m *MockStore) GetRecentSecurityEvents(_ context.Context, since time.Time, limit int) ([]core.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrSecurityEvents != nil {
		return nil, m.ErrSecurityEvents
	}

	var out []core.SecurityEvent
	for _, e := range m.SecurityEvents {
		if !e.CreatedDate.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedDate.After(out[j].CreatedDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) GetEndpoints(_ context.Context, limit int) ([]core.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrEndpoints != nil {
		return nil, m.ErrEndpoints
	}

	out := append([]core.Endpoint(nil), m.Endpoints...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) GetRecentEndpointEvents(_ context.Context, since time.Time, limit int) ([]core.EndpointEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrEndpointEvents != nil {
		return nil, m.ErrEndpointEvents
	}

	var out []core.EndpointEvent
	for _, e := range m.EndpointEvents {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockStore) GetActiveBlockedIPs(_ context.Context) ([]core.BlockedIP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrBlockedIPs != nil {
		return nil, m.ErrBlockedIPs
	}

	var out []core.BlockedIP
	for _, b := range m.BlockedIPs {
		if b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *MockStore) GetEnabledCorrelationRules(_ context.Context) ([]core.CorrelationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrRules != nil {
		return nil, m.ErrRules
	}

	var out []core.CorrelationRule
	for _, r := range m.Rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockStore) GetCorrelationRule(_ context.Context, id string) (*core.CorrelationRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrRules != nil {
		return nil, m.ErrRules
	}

	for i := range m.Rules {
		if m.Rules[i].ID == id {
			rule := m.Rules[i]
			return &rule, nil
		}
	}
	return nil, ErrRuleNotFound
}

func (m *MockStore) UpsertCorrelationRule(_ context.Context, rule *core.CorrelationRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrRules != nil {
		return m.ErrRules
	}

	for i := range m.Rules {
		if m.Rules[i].ID == rule.ID {
			m.Rules[i] = *rule
			return nil
		}
	}
	m.Rules = append(m.Rules, *rule)
	return nil
}

func (m *MockStore) RecordRuleTrigger(_ context.Context, id string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrRecordTrigger != nil {
		return m.ErrRecordTrigger
	}
	m.TriggeredRules[id]++
	return nil
}

func (m *MockStore) CreateIncident(_ context.Context, incident *core.CorrelatedIncident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrCreateIncident != nil {
		return m.ErrCreateIncident
	}
	m.SavedIncidents = append(m.SavedIncidents, *incident)
	return nil
}

func (m *MockStore) CreateNotification(_ context.Context, notification *core.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ErrNotification != nil {
		return m.ErrNotification
	}
	m.SavedNotifications = append(m.SavedNotifications, *notification)
	return nil
}
