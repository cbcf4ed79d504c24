package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

// Compile-time interface guard.
var _ Notifier = (*WebhookNotifier)(nil)

// WebhookConfig holds configuration for webhook notification delivery.
type WebhookConfig struct {
	URL     string
	Secret  string
	Headers map[string]string
}

// webhookPayload is the JSON body sent to webhook endpoints.
type webhookPayload struct {
	Device    engine.DeviceInfo   `json:"device"`
	Alerts    []engine.AlertEvent `json:"alerts"`
	Timestamp time.Time           `json:"timestamp"`
}

// WebhookNotifier delivers alert batches via HTTP POST to a configured URL.
type WebhookNotifier struct {
	client *http.Client
	cfg    WebhookConfig
}

// NewWebhookNotifier creates a webhook notifier with the given config.
func NewWebhookNotifier(cfg WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
	}
}

// Notify posts the alert batch to the configured webhook URL.
func (w *WebhookNotifier) Notify(ctx context.Context, device engine.DeviceInfo, alerts []engine.AlertEvent) error {
	payload := webhookPayload{
		Device:    device,
		Alerts:    alerts,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "switchmon-webhook/0.1")

	// HMAC-SHA256 signature when a shared secret is configured.
	if w.cfg.Secret != "" {
		mac := hmac.New(sha256.New, []byte(w.cfg.Secret))
		mac.Write(body)
		req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST %s: %w", w.cfg.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain body for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook POST %s: status %d", w.cfg.URL, resp.StatusCode)
	}
	return nil
}

// Type returns the notifier type identifier.
func (w *WebhookNotifier) Type() string {
	return "webhook"
}
