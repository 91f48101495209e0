// Package notifications delivers operational alerts to an external webhook.
package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"flashsell-engine/config"
	"flashsell-engine/logging"
)

// AlertTypeSweepFailure marks a daily sweep whose failure ratio crossed the threshold
const AlertTypeSweepFailure = "HOT_PRODUCT_SWEEP_FAILURE"

// SweepAlert describes a degraded daily sweep
type SweepAlert struct {
	Date             string
	Succeeded        int
	Failed           int
	Total            int
	FailedCategories []int64
}

// WebhookPayload represents the JSON payload sent to the webhook
type WebhookPayload struct {
	AlertType  string                 `json:"AlertType"`
	DetectedAt time.Time              `json:"DetectedAt"`
	Message    string                 `json:"Message"`
	Metadata   map[string]interface{} `json:"Metadata,omitempty"`
}

// WebhookNotifier posts alerts to a single configured webhook
type WebhookNotifier struct {
	cfg    config.AlertConfig
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a notifier. Alerts are only logged when cfg.WebhookURL is empty.
func NewWebhookNotifier(cfg config.AlertConfig) *WebhookNotifier {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 1
	}
	return &WebhookNotifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		now: time.Now,
	}
}

// CreatePayload generates the webhook payload from a sweep alert
func (n *WebhookNotifier) CreatePayload(alert SweepAlert) WebhookPayload {
	message := fmt.Sprintf("Hot product sweep %s degraded: %d of %d categories failed (succeeded=%d)",
		alert.Date, alert.Failed, alert.Total, alert.Succeeded)

	return WebhookPayload{
		AlertType:  AlertTypeSweepFailure,
		DetectedAt: n.now().UTC(),
		Message:    message,
		Metadata: map[string]interface{}{
			"date":              alert.Date,
			"succeeded":         alert.Succeeded,
			"failed":            alert.Failed,
			"total":             alert.Total,
			"failed_categories": alert.FailedCategories,
		},
	}
}

// SendSweepAlert delivers the alert, retrying up to RetryCount attempts
func (n *WebhookNotifier) SendSweepAlert(ctx context.Context, alert SweepAlert) error {
	if n.cfg.WebhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(n.CreatePayload(alert))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= n.cfg.RetryCount; attempt++ {
		lastErr = n.deliver(ctx, payload)
		if lastErr == nil {
			logging.Info().Str("date", alert.Date).Int("attempt", attempt).Msg("sweep alert delivered")
			return nil
		}

		logging.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", n.cfg.RetryCount).
			Msg("sweep alert delivery failed")

		// Wait before retry
		if attempt < n.cfg.RetryCount {
			select {
			case <-time.After(n.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("deliver sweep alert after %d attempts: %w", n.cfg.RetryCount, lastErr)
}

func (n *WebhookNotifier) deliver(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "FlashSell-Engine/1.0")
	if n.cfg.AuthHeader != "" {
		req.Header.Set(n.cfg.AuthHeader, n.cfg.AuthValue)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
