package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/session"
)

// Parsers resolves structured parsing per command. Implemented by
// parser.Registry; defined here (consumer-side) so the engine does not
// depend on the parsing grammar.
type Parsers interface {
	// Parse returns the structured fields for a command's raw output.
	// registered is false when no parser is known for the command, which
	// is not an error: the raw text is kept verbatim.
	Parse(command, raw string) (fields map[string]any, registered bool, err error)
}

// Executor runs the ordered command list of one check category and builds
// its CheckResult. Nothing in it is fatal: it always returns a result, even
// when every command failed.
type Executor struct {
	runner  *Runner
	parsers Parsers
	// criticalDegrades forces a check with a critical threshold alert to
	// report at least degraded even when every command succeeded.
	criticalDegrades bool
	logger           *zap.Logger
}

// NewExecutor creates an executor. parsers may be nil, in which case all
// output stays raw.
func NewExecutor(runner *Runner, parsers Parsers, criticalDegrades bool, logger *zap.Logger) *Executor {
	return &Executor{
		runner:           runner,
		parsers:          parsers,
		criticalDegrades: criticalDegrades,
		logger:           logger,
	}
}

// Execute runs one check. Commands run strictly in declared order; a single
// command failure never aborts the check. Cancellation and session loss are
// observed between commands, never mid-command.
func (e *Executor) Execute(ctx context.Context, sess session.Session, def CheckDefinition) CheckResult {
	result := CheckResult{
		Check:     def.Name,
		Timestamp: time.Now().UTC(),
		Status:    StatusOK,
	}

	// Disabled checks never run commands and never raise alerts.
	if !def.Enabled {
		return result
	}

	e.logger.Info("executing health check",
		zap.String("check", def.Name),
		zap.Int("commands", len(def.Commands)),
	)

	var succeeded, failed, parseErrors int
	skip := ""

	for _, spec := range def.Commands {
		if skip == "" {
			if err := ctx.Err(); err != nil {
				skip = fmt.Sprintf("cancelled: %v", err)
			} else if !sess.Alive() {
				skip = "session lost"
			}
		}
		if skip != "" {
			failed++
			result.Commands = append(result.Commands, CommandResult{
				Command:     spec.Command,
				Description: spec.Description,
				Status:      OutcomeTransport,
				Error:       skip,
			})
			continue
		}

		outcome := e.runner.Run(ctx, sess, spec)
		cr := CommandResult{
			Command:     spec.Command,
			Description: spec.Description,
			Status:      outcome.Kind,
			DurationMs:  float64(outcome.Duration) / float64(time.Millisecond),
			Attempts:    outcome.Attempts,
		}

		if outcome.Kind != OutcomeSuccess {
			failed++
			cr.Error = outcome.Err
			result.Commands = append(result.Commands, cr)
			result.Alerts = append(result.Alerts, commandErrorAlert(def.Name, spec, outcome))
			continue
		}

		succeeded++
		cr.Output = outcome.RawText

		if spec.Parse && e.parsers != nil {
			fields, registered, err := e.parsers.Parse(spec.Command, outcome.RawText)
			switch {
			case !registered:
				// No parser for this command: raw text retained, no
				// metrics evaluated.
			case err != nil:
				parseErrors++
				cr.ParseError = err.Error()
				e.logger.Warn("output parsing failed",
					zap.String("check", def.Name),
					zap.String("command", spec.Command),
					zap.Error(err),
				)
			default:
				cr.Fields = fields
				cr.Output = ""
				rec := &Record{Command: spec.Command, Fields: fields}
				result.Alerts = append(result.Alerts,
					Evaluate(def.Name, rec, def.Thresholds, time.Now().UTC())...)
			}
		}

		result.Commands = append(result.Commands, cr)
	}

	result.Status = checkStatus(len(def.Commands), succeeded, failed, parseErrors)

	if e.criticalDegrades && result.Status == StatusOK {
		for i := range result.Alerts {
			if result.Alerts[i].Severity == SeverityCritical {
				result.Status = StatusDegraded
				break
			}
		}
	}

	e.logger.Info("health check finished",
		zap.String("check", def.Name),
		zap.String("status", result.Status.String()),
		zap.Int("alerts", len(result.Alerts)),
	)
	return result
}

// checkStatus applies the aggregation invariant: failed iff every command
// failed, degraded when failures or parse errors mixed with successes,
// ok otherwise.
func checkStatus(total, succeeded, failed, parseErrors int) Status {
	switch {
	case total == 0:
		return StatusOK
	case failed == total:
		return StatusFailed
	case failed > 0 || parseErrors > 0:
		return StatusDegraded
	default:
		return StatusOK
	}
}

// commandErrorAlert synthesizes the warning raised when a command could not
// be executed, identifying the failing command.
func commandErrorAlert(check string, spec CommandSpec, outcome CommandOutcome) AlertEvent {
	return AlertEvent{
		ID:        uuid.NewString(),
		Severity:  SeverityWarning,
		Check:     check,
		Metric:    "command_error",
		Value:     outcome.Kind.String(),
		Message:   fmt.Sprintf("command execution error: %q (%s): %s", spec.Command, outcome.Kind, outcome.Err),
		Timestamp: time.Now().UTC(),
	}
}
