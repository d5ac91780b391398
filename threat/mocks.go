package threat

import (
	"context"
	"sync"
)

// MockLookuper is an in-memory Lookuper for tests.
type MockLookuper struct {
	mu      sync.Mutex
	Results map[string]Result
	Err     error

	// Calls records the indicator batches passed to Lookup.
	Calls [][]string
	// DeepRequested records the deep flag of each call.
	DeepRequested []bool
}

// NewMockLookuper creates a MockLookuper answering with the given results.
func NewMockLookuper(results map[string]Result) *MockLookuper {
	if results == nil {
		results = make(map[string]Result)
	}
	return &MockLookuper{Results: results}
}

func (m *MockLookuper) Lookup(_ context.Context, indicators []string, deep bool) (map[string]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, append([]string(nil), indicators...))
	m.DeepRequested = append(m.DeepRequested, deep)

	if m.Err != nil {
		return nil, m.Err
	}

	out := make(map[string]Result)
	for _, ind := range indicators {
		if res, ok := m.Results[ind]; ok {
			out[ind] = res
		}
	}
	return out, nil
}
