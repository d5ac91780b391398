// Package narrative generates analyst-facing attack narratives for
// high-fidelity incidents via an external LLM service. All calls are
// best-effort; a failure leaves the incident without a narrative.
package narrative

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"argus/config"
	"argus/core"
	"argus/metrics"
)

// IncidentSummary is the condensed incident view sent to the generator.
type IncidentSummary struct {
	RuleName        string   `json:"rule_name"`
	Severity        string   `json:"severity"`
	CorrelationKey  string   `json:"correlation_key"`
	CorrelationType string   `json:"correlation_type"`
	Sources         []string `json:"sources"`
	EventTypes      []string `json:"event_types"`
	EventCount      int      `json:"event_count"`
	TimeSpanMinutes float64  `json:"time_span_minutes"`
	ThreatMatches   int      `json:"threat_matches"`
}

// Generator produces a narrative for an incident summary.
type Generator interface {
	Generate(ctx context.Context, summary IncidentSummary) (*core.NarrativeSummary, error)
}

// Client is the HTTP implementation of Generator.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient creates a narrative client from configuration.
func NewClient(cfg *config.Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		url:    cfg.Narrative.URL,
		apiKey: cfg.Narrative.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Narrative.Timeout) * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		logger: logger,
	}
}

// Generate requests a narrative for the given summary.
func (c *Client) Generate(ctx context.Context, summary IncidentSummary) (*core.NarrativeSummary, error) {
	body, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to encode incident summary: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create narrative request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.NarrativeFailures.Inc()
		return nil, fmt.Errorf("narrative request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.NarrativeFailures.Inc()
		return nil, fmt.Errorf("narrative service returned %d", resp.StatusCode)
	}

	var narrative core.NarrativeSummary
	if err := json.NewDecoder(resp.Body).Decode(&narrative); err != nil {
		metrics.NarrativeFailures.Inc()
		return nil, fmt.Errorf("failed to decode narrative response: %w", err)
	}
	return &narrative, nil
}
