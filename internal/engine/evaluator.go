package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Evaluate compares a record's metrics against the policy and returns one
// alert per breached metric. Critical is checked first and suppresses
// warning, so a value breaching both bounds yields only the critical event.
// Metrics absent from the policy are ignored; non-numeric values are
// ignored. Pure apart from ID generation: no I/O, no retained state.
func Evaluate(check string, rec *Record, policy Policy, now time.Time) []AlertEvent {
	if rec == nil || len(policy) == 0 {
		return nil
	}

	// Deterministic alert ordering regardless of map iteration.
	metrics := make([]string, 0, len(rec.Fields))
	for name := range rec.Fields {
		if _, ok := policy[name]; ok {
			metrics = append(metrics, name)
		}
	}
	sort.Strings(metrics)

	var alerts []AlertEvent
	for _, name := range metrics {
		value, ok := toFloat(rec.Fields[name])
		if !ok {
			continue
		}
		th := policy[name]

		if th.Critical != nil && breached(value, *th.Critical, th.Direction) {
			alerts = append(alerts, newAlert(check, name, value, *th.Critical, SeverityCritical, th.Direction, now))
			continue
		}
		if th.Warning != nil && breached(value, *th.Warning, th.Direction) {
			alerts = append(alerts, newAlert(check, name, value, *th.Warning, SeverityWarning, th.Direction, now))
		}
	}
	return alerts
}

func newAlert(check, metric string, value, bound float64, sev Severity, dir Direction, now time.Time) AlertEvent {
	verb := "exceeds"
	if dir == DirectionBelow {
		verb = "is below"
	}
	return AlertEvent{
		ID:        uuid.NewString(),
		Severity:  sev,
		Check:     check,
		Metric:    metric,
		Value:     value,
		Threshold: bound,
		Message:   fmt.Sprintf("%s=%v %s %s threshold %v", metric, value, verb, sev, bound),
		Timestamp: now,
	}
}

// breached applies the per-metric comparison direction. The bound itself is
// in range; only crossing it alerts.
func breached(value, bound float64, dir Direction) bool {
	if dir == DirectionBelow {
		return value < bound
	}
	return value > bound
}

// toFloat coerces the numeric types parsers and JSON decoding produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
