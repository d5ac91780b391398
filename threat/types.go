package threat

import "context"

// Result is the threat-intelligence verdict for one indicator.
type Result struct {
	Matched   bool     `json:"matched"`
	RiskScore int      `json:"risk_score"`
	Families  []string `json:"families,omitempty"`
	Sources   []string `json:"sources,omitempty"`
}

// Lookuper checks indicators of compromise against a threat-intelligence
// provider. Implementations must be safe for concurrent use.
type Lookuper interface {
	// Lookup resolves verdicts for the given indicators. deep requests the
	// provider's expensive deep-lookup mode. The result map contains an
	// entry for every indicator the provider answered for; absent entries
	// mean no verdict.
	Lookup(ctx context.Context, indicators []string, deep bool) (map[string]Result, error)
}
