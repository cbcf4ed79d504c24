// Package engine implements the health-check execution and evaluation engine:
// it sequences diagnostic commands over a live device session, classifies
// failures, turns command output into typed records, applies threshold policy,
// and aggregates everything into one serializable health report.
package engine

import (
	"fmt"
	"time"
)

// Status is the aggregated health state of a check or a whole report.
// Ordering matters: ok < degraded < failed.
type Status int

const (
	StatusOK Status = iota
	StatusDegraded
	StatusFailed
)

var statusNames = map[Status]string{
	StatusOK:       "ok",
	StatusDegraded: "degraded",
	StatusFailed:   "failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalJSON encodes the status as its lowercase name.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a lowercase status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	return s.decode(string(data[1 : len(data)-1]))
}

// MarshalYAML encodes the status as its lowercase name.
func (s Status) MarshalYAML() (any, error) { return s.String(), nil }

func (s *Status) decode(name string) error {
	for st, n := range statusNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", name)
}

// WorseOf returns the more severe of two statuses.
func WorseOf(a, b Status) Status {
	if b > a {
		return b
	}
	return a
}

// Severity of an alert event.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// CommandSpec describes one diagnostic command within a check. Immutable
// once loaded from configuration.
type CommandSpec struct {
	Command     string
	Description string
	// Parse requests structured parsing of the output. Commands without a
	// registered parser keep their raw text verbatim.
	Parse bool
	// Timeout overrides the runner's default per-command timeout when > 0.
	Timeout time.Duration
}

// Direction declares which side of a threshold is unhealthy for a metric.
type Direction string

const (
	// DirectionAbove means higher values are worse (CPU load, temperature).
	DirectionAbove Direction = "above"
	// DirectionBelow means lower values are worse (fan RPM, remaining power).
	DirectionBelow Direction = "below"
)

// Threshold holds the warning/critical bounds for one metric. A nil bound
// means that severity is not evaluated for the metric.
type Threshold struct {
	Warning   *float64
	Critical  *float64
	Direction Direction
}

// Policy maps metric names to thresholds. Metrics present in a record but
// absent from the policy are ignored.
type Policy map[string]Threshold

// CheckDefinition is one named health-check category: an ordered command
// list plus the threshold policy applied to its parsed metrics. Owned by
// configuration, read-only to the engine.
type CheckDefinition struct {
	Name       string
	Enabled    bool
	Commands   []CommandSpec
	Thresholds Policy
	// Format is an output-format hint carried through to rendering.
	Format string
}

// RetryPolicy bounds the command runner's retry loop.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Multiplier grows the backoff between attempts; 1.0 keeps it fixed.
	Multiplier float64
}

// OutcomeKind classifies the result of attempting one command (including
// its retries).
type OutcomeKind int

const (
	// OutcomeSuccess: the device produced a response.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeTimeout: the device did not respond in time. Health-relevant
	// in itself (may indicate overload).
	OutcomeTimeout
	// OutcomeTransport: the session broke. Likely requires reconnect.
	OutcomeTransport
	// OutcomeDevice: the device responded but rejected the command. Never
	// retried; retrying an invalid command cannot succeed.
	OutcomeDevice
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeSuccess:   "success",
	OutcomeTimeout:   "timeout",
	OutcomeTransport: "transport_error",
	OutcomeDevice:    "device_error",
}

func (k OutcomeKind) String() string {
	if name, ok := outcomeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(k))
}

// MarshalJSON encodes the outcome kind as its snake_case name.
func (k OutcomeKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON decodes a snake_case outcome kind name.
func (k *OutcomeKind) UnmarshalJSON(data []byte) error {
	name := string(data[1 : len(data)-1])
	for kind, n := range outcomeNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown outcome kind %q", name)
}

// MarshalYAML encodes the outcome kind as its snake_case name.
func (k OutcomeKind) MarshalYAML() (any, error) { return k.String(), nil }

// CommandOutcome is the classified result of one command attempt sequence.
// Produced by the runner; exactly one per command per check execution.
type CommandOutcome struct {
	Kind     OutcomeKind
	RawText  string
	Err      string
	Duration time.Duration
	Attempts int
}

// Record holds structured metrics extracted from one command's raw output,
// tagged with the originating command.
type Record struct {
	Command string
	Fields  map[string]any
}

// AlertEvent is one out-of-bound condition. Append-only once created.
type AlertEvent struct {
	ID        string    `json:"id" yaml:"id"`
	Severity  Severity  `json:"severity" yaml:"severity"`
	Check     string    `json:"check" yaml:"check"`
	Metric    string    `json:"metric" yaml:"metric"`
	Value     any       `json:"value,omitempty" yaml:"value,omitempty"`
	Threshold float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Message   string    `json:"message" yaml:"message"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// CommandResult is one command's contribution to a check result, in the
// shape the report serializes: parsed fields replace raw output when
// structured parsing succeeded.
type CommandResult struct {
	Command     string         `json:"command" yaml:"command"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Status      OutcomeKind    `json:"status" yaml:"status"`
	Output      string         `json:"output,omitempty" yaml:"output,omitempty"`
	Fields      map[string]any `json:"parsed_fields,omitempty" yaml:"parsed_fields,omitempty"`
	Error       string         `json:"error,omitempty" yaml:"error,omitempty"`
	ParseError  string         `json:"parse_error,omitempty" yaml:"parse_error,omitempty"`
	DurationMs  float64        `json:"duration_ms" yaml:"duration_ms"`
	Attempts    int            `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// CheckResult is the outcome of executing one check category. Built by the
// executor, handed off by value to the aggregator.
type CheckResult struct {
	Check     string          `json:"check_name" yaml:"check_name"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
	Commands  []CommandResult `json:"commands" yaml:"commands"`
	Status    Status          `json:"status" yaml:"status"`
	Alerts    []AlertEvent    `json:"alerts,omitempty" yaml:"alerts,omitempty"`
}

// DeviceInfo identifies the monitored device in reports.
type DeviceInfo struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Host     string `json:"host" yaml:"host"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

// HealthReport is the complete result of one execution pass. Immutable after
// aggregation completes.
type HealthReport struct {
	Device        DeviceInfo   `json:"device_info" yaml:"device_info"`
	RunID         string       `json:"run_id" yaml:"run_id"`
	ExecutionTime time.Time    `json:"execution_time" yaml:"execution_time"`
	FinishedAt    time.Time    `json:"finished_at" yaml:"finished_at"`
	Checks        *CheckMap    `json:"checks" yaml:"checks"`
	OverallStatus Status       `json:"overall_status" yaml:"overall_status"`
	Alerts        []AlertEvent `json:"alerts,omitempty" yaml:"alerts,omitempty"`
}
