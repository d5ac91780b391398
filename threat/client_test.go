package threat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"argus/config"
)

func testClient(t *testing.T, url string) *Client {
	t.Helper()
	cfg := &config.Config{}
	cfg.ThreatIntel.URL = url
	cfg.ThreatIntel.Timeout = 5
	cfg.ThreatIntel.CacheTTL = 60
	cfg.ThreatIntel.CacheSize = 16
	cfg.ThreatIntel.MaxBatch = 20
	return NewClient(cfg, zap.NewNop().Sugar())
}

func TestClient_Lookup(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)

		var req lookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.DeepLookup)

		resp := lookupResponse{Results: map[string]Result{}}
		for _, ind := range req.Indicators {
			if ind == "203.0.113.9" {
				resp.Results[ind] = Result{Matched: true, RiskScore: 90, Families: []string{"emotet"}, Sources: []string{"feed_a"}}
			} else {
				resp.Results[ind] = Result{Matched: false}
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	results, err := client.Lookup(context.Background(), []string{"203.0.113.9", "10.0.0.5"}, true)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results["203.0.113.9"].Matched)
	assert.False(t, results["10.0.0.5"].Matched)

	// Second lookup is served from cache; no extra provider call.
	_, err = client.Lookup(context.Background(), []string{"203.0.113.9"}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestClient_LookupCapsBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req lookupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Indicators), MaxBatchSize)
		require.NoError(t, json.NewEncoder(w).Encode(lookupResponse{Results: map[string]Result{}}))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	indicators := make([]string, 30)
	for i := range indicators {
		indicators[i] = "198.51.100." + string(rune('0'+i%10)) + string(rune('0'+i/10))
	}
	_, err := client.Lookup(context.Background(), indicators, false)
	require.NoError(t, err)
}

func TestClient_LookupProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.Lookup(context.Background(), []string{"203.0.113.9"}, false)
	assert.Error(t, err)
}

func TestClient_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	for i := 0; i < 5; i++ {
		_, err := client.Lookup(context.Background(), []string{"203.0.113.9"}, false)
		assert.Error(t, err)
	}

	// Circuit is open now; the error comes from the breaker, not the provider.
	_, err := client.Lookup(context.Background(), []string{"203.0.113.9"}, false)
	assert.ErrorContains(t, err, "circuit breaker")
}
