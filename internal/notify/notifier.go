// Package notify delivers alert events to configured notification channels.
// Delivery is fire-and-forget from the engine's perspective: failures are
// logged and never abort report generation.
package notify

import (
	"context"
	"fmt"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

// Notifier delivers a batch of alert events through one channel type.
type Notifier interface {
	// Notify sends the alerts. Implementations should honor ctx.
	Notify(ctx context.Context, device engine.DeviceInfo, alerts []engine.AlertEvent) error
	// Type returns the notifier type identifier (e.g., "webhook").
	Type() string
}

// Channel is one configured notification target.
type Channel struct {
	Name    string
	Type    string
	Enabled bool
	URL     string
	Secret  string
	Headers map[string]string
}

// Build constructs a notifier for a channel definition.
func Build(ch Channel) (Notifier, error) {
	switch ch.Type {
	case "webhook":
		return NewWebhookNotifier(WebhookConfig{
			URL:     ch.URL,
			Secret:  ch.Secret,
			Headers: ch.Headers,
		}), nil
	case "alertmanager":
		return NewAlertmanagerNotifier(AlertmanagerConfig{URL: ch.URL}), nil
	default:
		return nil, fmt.Errorf("unknown notifier type %q", ch.Type)
	}
}
