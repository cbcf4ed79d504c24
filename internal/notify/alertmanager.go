package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

// Compile-time interface guard.
var _ Notifier = (*AlertmanagerNotifier)(nil)

// AlertmanagerConfig holds configuration for Alertmanager-compatible
// webhook delivery.
type AlertmanagerConfig struct {
	URL string
}

// alertmanagerAlert matches the Alertmanager v2 POST /api/v2/alerts format.
type alertmanagerAlert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
}

// AlertmanagerNotifier delivers alerts in Prometheus Alertmanager format.
type AlertmanagerNotifier struct {
	client *http.Client
	cfg    AlertmanagerConfig
}

// NewAlertmanagerNotifier creates an Alertmanager-format notifier.
func NewAlertmanagerNotifier(cfg AlertmanagerConfig) *AlertmanagerNotifier {
	return &AlertmanagerNotifier{
		client: &http.Client{Timeout: 10 * time.Second},
		cfg:    cfg,
	}
}

// Notify posts the alert batch to the configured Alertmanager URL.
func (n *AlertmanagerNotifier) Notify(ctx context.Context, device engine.DeviceInfo, alerts []engine.AlertEvent) error {
	payload := make([]alertmanagerAlert, 0, len(alerts))
	for i := range alerts {
		alert := &alerts[i]
		payload = append(payload, alertmanagerAlert{
			Labels: map[string]string{
				"alertname": "SwitchHealthAlert",
				"device":    deviceLabel(device),
				"check":     alert.Check,
				"metric":    alert.Metric,
				"severity":  string(alert.Severity),
				"source":    "switchmon",
			},
			Annotations: map[string]string{
				"summary": alert.Message,
			},
			StartsAt: alert.Timestamp,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alertmanager payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alertmanager request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("alertmanager POST %s: %w", n.cfg.URL, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain body for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alertmanager POST %s: status %d", n.cfg.URL, resp.StatusCode)
	}
	return nil
}

// Type returns the notifier type identifier.
func (n *AlertmanagerNotifier) Type() string {
	return "alertmanager"
}

func deviceLabel(d engine.DeviceInfo) string {
	if d.Hostname != "" {
		return d.Hostname
	}
	return d.Host
}
