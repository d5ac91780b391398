package notify

import (
	"context"
	"sync"

	"argus/core"
)

// MockSink is an in-memory Sink for tests.
type MockSink struct {
	mu        sync.Mutex
	Err       error
	Incidents []core.CorrelatedIncident
}

func (m *MockSink) NotifyIncident(_ context.Context, incident *core.CorrelatedIncident) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.Incidents = append(m.Incidents, *incident)
	return nil
}
