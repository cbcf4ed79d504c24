package engine

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/session"
)

// fakeParsers returns scripted fields per command.
type fakeParsers struct {
	fields map[string]map[string]any
	errs   map[string]error
}

func (p *fakeParsers) Parse(command, _ string) (map[string]any, bool, error) {
	if err, ok := p.errs[command]; ok {
		return nil, true, err
	}
	fields, ok := p.fields[command]
	if !ok {
		return nil, false, nil
	}
	return fields, true, nil
}

func testExecutor(parsers Parsers) *Executor {
	return NewExecutor(testRunner(1), parsers, true, zap.NewNop())
}

func TestExecutor_DisabledCheckIsEmptyAndOK(t *testing.T) {
	sess := newFakeSession()
	def := CheckDefinition{
		Name:    "cpu",
		Enabled: false,
		Commands: []CommandSpec{
			{Command: "show processes cpu", Parse: true},
		},
		Thresholds: Policy{"cpu_percent_5m": {Critical: fptr(0), Direction: DirectionAbove}},
	}

	result := testExecutor(nil).Execute(context.Background(), sess, def)

	if result.Status != StatusOK {
		t.Errorf("Status = %v, want ok", result.Status)
	}
	if len(result.Commands) != 0 {
		t.Errorf("Commands = %d, want 0", len(result.Commands))
	}
	if len(result.Alerts) != 0 {
		t.Errorf("Alerts = %d, want 0 (disabled checks never alert)", len(result.Alerts))
	}
	if len(sess.sent) != 0 {
		t.Errorf("session saw %d commands, want 0", len(sess.sent))
	}
}

func TestExecutor_AllCommandsFailedIsFailed(t *testing.T) {
	sess := newFakeSession(
		scriptStep{err: session.ErrTimeout},
		scriptStep{err: session.ErrTimeout},
	)
	def := CheckDefinition{
		Name:    "fans",
		Enabled: true,
		Commands: []CommandSpec{
			{Command: "show env fan"},
			{Command: "show env temperature status"},
		},
	}

	result := testExecutor(nil).Execute(context.Background(), sess, def)

	if result.Status != StatusFailed {
		t.Errorf("Status = %v, want failed", result.Status)
	}
	if len(result.Alerts) != 2 {
		t.Fatalf("Alerts = %d, want 2 synthetic command error alerts", len(result.Alerts))
	}
	for _, alert := range result.Alerts {
		if alert.Severity != SeverityWarning {
			t.Errorf("synthetic alert severity = %q, want warning", alert.Severity)
		}
		if alert.Metric != "command_error" {
			t.Errorf("synthetic alert metric = %q, want command_error", alert.Metric)
		}
	}
}

func TestExecutor_MixedOutcomesIsDegraded(t *testing.T) {
	sess := newFakeSession(
		scriptStep{raw: "fine"},
		scriptStep{err: session.ErrTimeout},
	)
	def := CheckDefinition{
		Name:    "power",
		Enabled: true,
		Commands: []CommandSpec{
			{Command: "show env power all"},
			{Command: "show power inline"},
		},
	}

	result := testExecutor(nil).Execute(context.Background(), sess, def)

	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", result.Status)
	}
	if len(result.Commands) != 2 {
		t.Fatalf("Commands = %d, want 2", len(result.Commands))
	}
	if result.Commands[0].Status != OutcomeSuccess || result.Commands[1].Status != OutcomeTimeout {
		t.Errorf("command statuses = %v, %v", result.Commands[0].Status, result.Commands[1].Status)
	}
}

func TestExecutor_ParseErrorDegradesButContinues(t *testing.T) {
	sess := newFakeSession(
		scriptStep{raw: "garbled"},
		scriptStep{raw: "also ran"},
	)
	parsers := &fakeParsers{
		errs: map[string]error{"show processes cpu": fmt.Errorf("no CPU utilization line found")},
	}
	def := CheckDefinition{
		Name:    "cpu",
		Enabled: true,
		Commands: []CommandSpec{
			{Command: "show processes cpu", Parse: true},
			{Command: "show processes cpu history"},
		},
	}

	result := testExecutor(parsers).Execute(context.Background(), sess, def)

	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", result.Status)
	}
	if result.Commands[0].ParseError == "" {
		t.Error("ParseError is empty, want recorded parse failure")
	}
	if result.Commands[1].Status != OutcomeSuccess {
		t.Errorf("second command status = %v, want success (parse errors are non-fatal)", result.Commands[1].Status)
	}
	if len(result.Alerts) != 0 {
		t.Errorf("Alerts = %d, want 0 (parse errors do not evaluate thresholds)", len(result.Alerts))
	}
}

func TestExecutor_NoRegisteredParserKeepsRawText(t *testing.T) {
	sess := newFakeSession(scriptStep{raw: "uptime is 4 weeks"})
	def := CheckDefinition{
		Name:     "uptime",
		Enabled:  true,
		Commands: []CommandSpec{{Command: "show uptime", Parse: true}},
	}

	result := testExecutor(&fakeParsers{}).Execute(context.Background(), sess, def)

	if result.Status != StatusOK {
		t.Errorf("Status = %v, want ok", result.Status)
	}
	if result.Commands[0].Output != "uptime is 4 weeks" {
		t.Errorf("Output = %q, want raw text retained", result.Commands[0].Output)
	}
	if result.Commands[0].Fields != nil {
		t.Errorf("Fields = %v, want nil", result.Commands[0].Fields)
	}
}

func TestExecutor_CriticalAlertForcesDegraded(t *testing.T) {
	sess := newFakeSession(scriptStep{raw: "cpu output"})
	parsers := &fakeParsers{
		fields: map[string]map[string]any{
			"show processes cpu": {"cpu_percent_5m": float64(97)},
		},
	}
	def := CheckDefinition{
		Name:     "cpu",
		Enabled:  true,
		Commands: []CommandSpec{{Command: "show processes cpu", Parse: true}},
		Thresholds: Policy{
			"cpu_percent_5m": {Warning: fptr(80), Critical: fptr(95), Direction: DirectionAbove},
		},
	}

	result := testExecutor(parsers).Execute(context.Background(), sess, def)

	if len(result.Alerts) != 1 || result.Alerts[0].Severity != SeverityCritical {
		t.Fatalf("Alerts = %+v, want one critical", result.Alerts)
	}
	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded (critical alert downgrades an otherwise clean check)", result.Status)
	}
}

func TestExecutor_WarningAlertKeepsOK(t *testing.T) {
	sess := newFakeSession(scriptStep{raw: "cpu output"})
	parsers := &fakeParsers{
		fields: map[string]map[string]any{
			"show processes cpu": {"cpu_percent_5m": float64(85)},
		},
	}
	def := CheckDefinition{
		Name:     "cpu",
		Enabled:  true,
		Commands: []CommandSpec{{Command: "show processes cpu", Parse: true}},
		Thresholds: Policy{
			"cpu_percent_5m": {Warning: fptr(80), Critical: fptr(95), Direction: DirectionAbove},
		},
	}

	result := testExecutor(parsers).Execute(context.Background(), sess, def)

	if len(result.Alerts) != 1 || result.Alerts[0].Severity != SeverityWarning {
		t.Fatalf("Alerts = %+v, want one warning", result.Alerts)
	}
	if result.Status != StatusOK {
		t.Errorf("Status = %v, want ok (warnings alone do not downgrade)", result.Status)
	}
}

func TestExecutor_SessionLossMidCheckSkipsRemainder(t *testing.T) {
	sess := newFakeSession(
		scriptStep{raw: "first ok"},
		scriptStep{err: &session.TransportError{Op: "read", Err: fmt.Errorf("reset")}, dies: true},
	)
	def := CheckDefinition{
		Name:    "stack",
		Enabled: true,
		Commands: []CommandSpec{
			{Command: "show switch"},
			{Command: "show switch detail"},
			{Command: "show switch stack-ports"},
		},
	}

	result := testExecutor(nil).Execute(context.Background(), sess, def)

	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded (one success, two failures)", result.Status)
	}
	if len(result.Commands) != 3 {
		t.Fatalf("Commands = %d, want 3 (skipped commands still recorded)", len(result.Commands))
	}
	if result.Commands[2].Status != OutcomeTransport {
		t.Errorf("skipped command status = %v, want transport_error", result.Commands[2].Status)
	}
	if len(sess.sent) != 2 {
		t.Errorf("session saw %d commands, want 2 (no sends after loss)", len(sess.sent))
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		succeeded   int
		failed      int
		parseErrors int
		want        Status
	}{
		{"empty", 0, 0, 0, 0, StatusOK},
		{"all ok", 3, 3, 0, 0, StatusOK},
		{"all failed", 3, 0, 3, 0, StatusFailed},
		{"mixed", 3, 2, 1, 0, StatusDegraded},
		{"parse error only", 2, 2, 0, 1, StatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checkStatus(tt.total, tt.succeeded, tt.failed, tt.parseErrors)
			if got != tt.want {
				t.Errorf("checkStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorseOf(t *testing.T) {
	if got := WorseOf(StatusOK, StatusDegraded); got != StatusDegraded {
		t.Errorf("WorseOf(ok, degraded) = %v", got)
	}
	if got := WorseOf(StatusFailed, StatusDegraded); got != StatusFailed {
		t.Errorf("WorseOf(failed, degraded) = %v", got)
	}
	if got := WorseOf(StatusOK, StatusOK); got != StatusOK {
		t.Errorf("WorseOf(ok, ok) = %v", got)
	}
}
