package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/session"
)

// deviceErrorMarkers are IOS responses that mean the command itself was
// rejected. A rejected command is never retried.
var deviceErrorMarkers = []string{
	"% Invalid input detected",
	"% Incomplete command",
	"% Ambiguous command",
	"% Unknown command",
	"% Authorization failed",
	"% Bad IP address",
}

// Runner executes single commands over a session with bounded retry and
// classifies the outcome. It never mutates shared report state; it is a
// request/response mapper.
type Runner struct {
	defaultTimeout time.Duration
	retry          RetryPolicy
	limiter        *rate.Limiter
	logger         *zap.Logger
}

// NewRunner creates a runner. commandInterval paces successive sends to the
// device (IOS consoles drop input when commands arrive back to back); zero
// disables pacing.
func NewRunner(defaultTimeout time.Duration, retry RetryPolicy, commandInterval time.Duration, logger *zap.Logger) *Runner {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.Multiplier <= 0 {
		retry.Multiplier = 1.0
	}
	var limiter *rate.Limiter
	if commandInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(commandInterval), 1)
	}
	return &Runner{
		defaultTimeout: defaultTimeout,
		retry:          retry,
		limiter:        limiter,
		logger:         logger,
	}
}

// Run executes one command, retrying timeouts and transport failures up to
// the retry budget. Device rejections are terminal. The last failure's
// detail is what the returned outcome carries.
func (r *Runner) Run(ctx context.Context, sess session.Session, spec CommandSpec) CommandOutcome {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}

	delays := r.backoffPolicy()

	var last CommandOutcome
	for attempt := 1; ; attempt++ {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				last = CommandOutcome{Kind: OutcomeTransport, Err: err.Error(), Attempts: attempt}
				return last
			}
		}

		start := time.Now()
		raw, err := sess.Send(ctx, spec.Command, timeout)
		elapsed := time.Since(start)

		if err == nil {
			if marker := deviceErrorIn(raw); marker != "" {
				r.logger.Warn("device rejected command",
					zap.String("command", spec.Command),
					zap.String("response", marker),
				)
				return CommandOutcome{
					Kind:     OutcomeDevice,
					RawText:  raw,
					Err:      marker,
					Duration: elapsed,
					Attempts: attempt,
				}
			}
			return CommandOutcome{
				Kind:     OutcomeSuccess,
				RawText:  raw,
				Duration: elapsed,
				Attempts: attempt,
			}
		}

		kind := OutcomeTransport
		if errors.Is(err, session.ErrTimeout) {
			kind = OutcomeTimeout
		}
		last = CommandOutcome{
			Kind:     kind,
			Err:      err.Error(),
			Duration: elapsed,
			Attempts: attempt,
		}

		r.logger.Warn("command attempt failed",
			zap.String("command", spec.Command),
			zap.String("kind", kind.String()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.retry.MaxAttempts),
			zap.Error(err),
		)

		if attempt >= r.retry.MaxAttempts {
			return last
		}
		// A confirmed-dead session cannot recover within this pass;
		// burning the remaining budget on it only delays the report.
		if kind == OutcomeTransport && !sess.Alive() {
			return last
		}

		select {
		case <-time.After(delays.NextBackOff()):
		case <-ctx.Done():
			return last
		}
	}
}

// backoffPolicy builds the per-call delay sequence: fixed when the multiplier
// is 1, exponential otherwise.
func (r *Runner) backoffPolicy() backoff.BackOff {
	if r.retry.Multiplier == 1.0 {
		return backoff.NewConstantBackOff(r.retry.Backoff)
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.retry.Backoff
	bo.Multiplier = r.retry.Multiplier
	bo.RandomizationFactor = 0
	bo.MaxInterval = 5 * time.Minute
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// deviceErrorIn scans the leading lines of a response for an IOS rejection
// marker and returns the matching line, or "" when the response is clean.
func deviceErrorIn(raw string) string {
	seen := 0
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, marker := range deviceErrorMarkers {
			if strings.HasPrefix(line, marker) {
				return line
			}
		}
		seen++
		if seen >= 3 {
			break
		}
	}
	return ""
}
