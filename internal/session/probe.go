package session

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Probe checks ICMP reachability of the device before any SSH dial is
// attempted, so an unreachable host fails fast with a ConnectError instead
// of waiting out the TCP timeout.
func Probe(ctx context.Context, host string, count int, timeout time.Duration, logger *zap.Logger) error {
	if count <= 0 {
		count = 3
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	pinger, err := probing.NewPinger(host)
	if err != nil {
		return &ConnectError{Host: host, Err: fmt.Errorf("create pinger: %w", err)}
	}
	pinger.Count = count
	pinger.Timeout = timeout
	pinger.SetPrivileged(true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			logger.Debug("ping failed", zap.String("host", host), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return &ConnectError{Host: host, Err: ctx.Err()}
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return &ConnectError{Host: host, Err: fmt.Errorf("no ICMP reply after %d probes", count)}
	}

	logger.Debug("device reachable",
		zap.String("host", host),
		zap.Duration("avg_rtt", stats.AvgRtt),
		zap.Float64("packet_loss", stats.PacketLoss),
	)
	return nil
}
