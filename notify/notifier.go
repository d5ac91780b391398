// Package notify raises outbound notifications for qualifying incidents:
// a Notification record in the entity store plus an optional webhook POST.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"argus/config"
	"argus/core"
	"argus/metrics"
	"argus/storage"
	"argus/util"
)

// Sink raises a notification for an incident. Best-effort: callers log and
// continue on error.
type Sink interface {
	NotifyIncident(ctx context.Context, incident *core.CorrelatedIncident) error
}

// Notifier is the production Sink.
type Notifier struct {
	store          storage.NotificationStorageInterface
	webhookURL     string
	headers        map[string]string
	minSeverity    core.Severity
	httpClient     *http.Client
	circuitBreaker *core.CircuitBreaker
	logger         *zap.SugaredLogger
}

// NewNotifier creates a notifier from configuration.
func NewNotifier(cfg *config.Config, store storage.NotificationStorageInterface, logger *zap.SugaredLogger) *Notifier {
	minSeverity := core.Severity(cfg.Notifications.MinSeverity)
	if minSeverity == "" {
		minSeverity = core.SeverityHigh
	}
	return &Notifier{
		store:          store,
		webhookURL:     cfg.Notifications.WebhookURL,
		headers:        cfg.Notifications.Headers,
		minSeverity:    minSeverity,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		circuitBreaker: core.NewCircuitBreaker(core.CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute, MaxHalfOpenRequests: 1}),
		logger:         logger,
	}
}

// NotifyIncident records a notification for the incident and posts the
// configured webhook. Incidents below the severity floor are skipped.
func (n *Notifier) NotifyIncident(ctx context.Context, incident *core.CorrelatedIncident) error {
	if !incident.Severity.AtLeast(n.minSeverity) {
		return nil
	}

	notification := &core.Notification{
		ID:          uuid.NewString(),
		CreatedDate: time.Now().UTC(),
		Title:       fmt.Sprintf("Correlated incident: %s", incident.Title),
		Message: fmt.Sprintf("%s (key %s, fidelity %d, confidence %d)",
			incident.RuleName, incident.CorrelationKey, incident.FidelityScore, incident.ConfidenceScore),
		Severity:   incident.Severity,
		IncidentID: incident.ID,
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		metrics.NotificationFailures.Inc()
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if n.webhookURL == "" {
		return nil
	}
	if err := n.postWebhook(ctx, notification, incident); err != nil {
		metrics.NotificationFailures.Inc()
		n.logger.Warnw("Webhook delivery failed",
			"incident_id", incident.ID,
			"error", util.SanitizeError(err))
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	return nil
}

type webhookPayload struct {
	Title           string   `json:"title"`
	Message         string   `json:"message"`
	Severity        string   `json:"severity"`
	IncidentID      string   `json:"incident_id"`
	RuleName        string   `json:"rule_name"`
	CorrelationKey  string   `json:"correlation_key"`
	FidelityScore   int      `json:"fidelity_score"`
	ConfidenceScore int      `json:"confidence_score"`
	MitreTechniques []string `json:"mitre_techniques,omitempty"`
}

func (n *Notifier) postWebhook(ctx context.Context, notification *core.Notification, incident *core.CorrelatedIncident) error {
	if err := n.circuitBreaker.Allow(); err != nil {
		return err
	}

	payload := webhookPayload{
		Title:           notification.Title,
		Message:         notification.Message,
		Severity:        string(notification.Severity),
		IncidentID:      incident.ID,
		RuleName:        incident.RuleName,
		CorrelationKey:  incident.CorrelationKey,
		FidelityScore:   incident.FidelityScore,
		ConfidenceScore: incident.ConfidenceScore,
		MitreTechniques: incident.MitreTechniques,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.headers {
		req.Header.Set(k, v)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.circuitBreaker.RecordFailure()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.circuitBreaker.RecordFailure()
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	n.circuitBreaker.RecordSuccess()
	return nil
}
