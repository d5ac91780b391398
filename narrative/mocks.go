package narrative

import (
	"context"
	"sync"

	"argus/core"
)

// MockGenerator is an in-memory Generator for tests.
type MockGenerator struct {
	mu        sync.Mutex
	Narrative *core.NarrativeSummary
	Err       error

	// Summaries records every summary passed to Generate.
	Summaries []IncidentSummary
}

func (m *MockGenerator) Generate(_ context.Context, summary IncidentSummary) (*core.NarrativeSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Summaries = append(m.Summaries, summary)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Narrative != nil {
		return m.Narrative, nil
	}
	return &core.NarrativeSummary{AttackNarrative: "mock narrative"}, nil
}
