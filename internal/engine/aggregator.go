package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/event"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/session"
)

// Aggregator drives every configured check against one session and merges
// the results into a single HealthReport. Once a pass has started, a report
// is always produced: session loss aborts remaining checks but the partial
// report is still the authoritative output.
type Aggregator struct {
	executor *Executor
	device   DeviceInfo
	bus      *event.Bus
	logger   *zap.Logger
}

// NewAggregator creates an aggregator. bus may be nil when nothing consumes
// engine events.
func NewAggregator(executor *Executor, device DeviceInfo, bus *event.Bus, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		executor: executor,
		device:   device,
		bus:      bus,
		logger:   logger,
	}
}

// RunAll executes all checks in configured order and returns the merged
// report. Disabled checks still appear, trivially ok. When the session dies
// mid-pass the remaining enabled checks are marked failed with a synthetic
// transport outcome.
func (a *Aggregator) RunAll(ctx context.Context, sess session.Session, defs []CheckDefinition) *HealthReport {
	report := &HealthReport{
		Device:        a.device,
		RunID:         uuid.NewString(),
		ExecutionTime: time.Now().UTC(),
		Checks:        NewCheckMap(),
		OverallStatus: StatusOK,
	}

	a.logger.Info("starting health check pass",
		zap.String("run_id", report.RunID),
		zap.String("device", a.device.Host),
		zap.Int("checks", len(defs)),
	)

	lost := false
	for _, def := range defs {
		var result CheckResult
		switch {
		case !def.Enabled:
			// Disabled checks do not touch the session even after loss.
			result = a.executor.Execute(ctx, sess, def)
		case lost:
			result = sessionLostResult(def)
		default:
			result = a.executor.Execute(ctx, sess, def)
			if !sess.Alive() {
				lost = true
				a.logger.Error("session lost, aborting remaining checks",
					zap.String("run_id", report.RunID),
					zap.String("after_check", def.Name),
				)
			}
		}

		resultCopy := result
		report.Checks.Set(def.Name, &resultCopy)
		report.Alerts = append(report.Alerts, result.Alerts...)
		report.OverallStatus = WorseOf(report.OverallStatus, result.Status)
	}

	report.FinishedAt = time.Now().UTC()

	a.logger.Info("health check pass finished",
		zap.String("run_id", report.RunID),
		zap.String("overall_status", report.OverallStatus.String()),
		zap.Int("alerts", len(report.Alerts)),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.ExecutionTime)),
	)

	a.publish(ctx, report)
	return report
}

// sessionLostResult marks a check that never ran because the session died
// earlier in the pass.
func sessionLostResult(def CheckDefinition) CheckResult {
	result := CheckResult{
		Check:     def.Name,
		Timestamp: time.Now().UTC(),
		Status:    StatusFailed,
	}
	for _, spec := range def.Commands {
		result.Commands = append(result.Commands, CommandResult{
			Command:     spec.Command,
			Description: spec.Description,
			Status:      OutcomeTransport,
			Error:       "session lost before command could run",
		})
	}
	return result
}

// publish emits engine events. Subscriber failures never propagate back into
// report generation.
func (a *Aggregator) publish(ctx context.Context, report *HealthReport) {
	if a.bus == nil {
		return
	}
	now := time.Now().UTC()
	for i := range report.Alerts {
		a.bus.Publish(ctx, event.Event{
			Topic:     event.TopicAlertRaised,
			Source:    "engine",
			Timestamp: now,
			Payload:   report.Alerts[i],
		})
	}
	a.bus.Publish(ctx, event.Event{
		Topic:     event.TopicReportCompleted,
		Source:    "engine",
		Timestamp: now,
		Payload:   report,
	})
}
