package threat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"argus/config"
	"argus/core"
	"argus/metrics"
)

// MaxBatchSize caps indicators per lookup request.
const MaxBatchSize = 20

// Client is an HTTP threat-intelligence lookup client with response
// caching and circuit breaking.
type Client struct {
	url            string
	apiKey         string
	maxBatch       int
	httpClient     *http.Client
	cache          *lru.LRU[string, Result]
	circuitBreaker *core.CircuitBreaker
	logger         *zap.SugaredLogger
}

// NewClient creates a threat-intel client from configuration.
func NewClient(cfg *config.Config, logger *zap.SugaredLogger) *Client {
	maxBatch := cfg.ThreatIntel.MaxBatch
	if maxBatch <= 0 || maxBatch > MaxBatchSize {
		maxBatch = MaxBatchSize
	}

	cacheSize := cfg.ThreatIntel.CacheSize
	if cacheSize <= 0 {
		cacheSize = 4096
	}
	cacheTTL := time.Duration(cfg.ThreatIntel.CacheTTL) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Client{
		url:      cfg.ThreatIntel.URL,
		apiKey:   cfg.ThreatIntel.APIKey,
		maxBatch: maxBatch,
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.ThreatIntel.Timeout) * time.Second,
			Transport: transport,
		},
		cache:          lru.NewLRU[string, Result](cacheSize, nil, cacheTTL),
		circuitBreaker: core.NewCircuitBreaker(core.DefaultCircuitBreakerConfig()),
		logger:         logger,
	}
}

type lookupRequest struct {
	Indicators []string `json:"indicators"`
	DeepLookup bool     `json:"deep_lookup"`
}

type lookupResponse struct {
	Results map[string]Result `json:"results"`
}

// Lookup resolves verdicts for up to MaxBatchSize indicators, serving
// cached answers first and batching the rest into one provider call.
func (c *Client) Lookup(ctx context.Context, indicators []string, deep bool) (map[string]Result, error) {
	if len(indicators) > c.maxBatch {
		indicators = indicators[:c.maxBatch]
	}

	results := make(map[string]Result, len(indicators))
	var misses []string
	for _, ind := range indicators {
		if cached, ok := c.cache.Get(ind); ok {
			results[ind] = cached
			continue
		}
		misses = append(misses, ind)
	}
	if len(misses) == 0 {
		return results, nil
	}

	if err := c.circuitBreaker.Allow(); err != nil {
		metrics.ThreatIntelLookups.WithLabelValues("circuit_open").Inc()
		return results, fmt.Errorf("threat intel lookup skipped: %w", err)
	}

	fetched, err := c.doLookup(ctx, misses, deep)
	if err != nil {
		c.circuitBreaker.RecordFailure()
		metrics.ThreatIntelLookups.WithLabelValues("error").Inc()
		return results, err
	}
	c.circuitBreaker.RecordSuccess()
	metrics.ThreatIntelLookups.WithLabelValues("success").Inc()

	for ind, res := range fetched {
		c.cache.Add(ind, res)
		results[ind] = res
	}
	return results, nil
}

func (c *Client) doLookup(ctx context.Context, indicators []string, deep bool) (map[string]Result, error) {
	body, err := json.Marshal(lookupRequest{Indicators: indicators, DeepLookup: deep})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("threat intel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a bounded amount of body for diagnostics only.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("threat intel provider returned %d: %s", resp.StatusCode, string(msg))
	}

	var decoded lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	return decoded.Results, nil
}
