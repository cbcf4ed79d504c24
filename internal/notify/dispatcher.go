package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/event"
)

// Dispatcher fans alert batches out to every enabled notification channel.
// One channel failing never blocks the others, and no failure propagates
// back to the caller.
type Dispatcher struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewDispatcher builds notifiers for the enabled channels. Channels that
// fail to build are logged and skipped.
func NewDispatcher(channels []Channel, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{logger: logger}
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		notifier, err := Build(ch)
		if err != nil {
			logger.Warn("skipping notification channel",
				zap.String("channel", ch.Name),
				zap.String("type", ch.Type),
				zap.Error(err),
			)
			continue
		}
		d.notifiers = append(d.notifiers, notifier)
	}
	return d
}

// Channels returns the number of usable channels.
func (d *Dispatcher) Channels() int { return len(d.notifiers) }

// Dispatch delivers the alert batch to all channels. Empty batches are not
// delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, device engine.DeviceInfo, alerts []engine.AlertEvent) {
	if len(alerts) == 0 || len(d.notifiers) == 0 {
		return
	}
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, device, alerts); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("type", notifier.Type()),
				zap.Int("alerts", len(alerts)),
				zap.Error(err),
			)
			continue
		}
		d.logger.Info("alerts dispatched",
			zap.String("type", notifier.Type()),
			zap.Int("alerts", len(alerts)),
		)
	}
}

// BindTo subscribes the dispatcher to completed reports on the bus. Returns
// the unsubscribe function.
func (d *Dispatcher) BindTo(bus *event.Bus) func() {
	return bus.Subscribe(event.TopicReportCompleted, func(ctx context.Context, ev event.Event) {
		report, ok := ev.Payload.(*engine.HealthReport)
		if !ok {
			d.logger.Warn("unexpected payload type for report event",
				zap.String("topic", ev.Topic),
			)
			return
		}
		d.Dispatch(ctx, report.Device, report.Alerts)
	})
}
