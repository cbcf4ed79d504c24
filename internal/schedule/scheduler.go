// Package schedule drives repeated health check passes on a fixed interval.
package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PassFunc runs one full health check pass.
type PassFunc func(ctx context.Context)

// Scheduler invokes the pass function periodically. Passes never overlap:
// the device session is single-channel and a pass is atomic from the
// engine's perspective.
type Scheduler struct {
	fn       PassFunc
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler.
func New(fn PassFunc, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		fn:       fn,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the polling loop. The first pass runs immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
		s.fn(ctx)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("scheduler stopped")
				return
			case <-ticker.C:
				s.fn(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
