// Package metrics exposes Prometheus instrumentation for the health engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

// Metrics holds the engine's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	passes          *prometheus.CounterVec
	commandFailures *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	passDuration    prometheus.Histogram
	overallStatus   prometheus.Gauge
}

// New creates the collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchmon_passes_total",
			Help: "Completed health check passes by overall status.",
		}, []string{"status"}),
		commandFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchmon_command_failures_total",
			Help: "Failed command executions by outcome kind.",
		}, []string{"kind"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "switchmon_alerts_total",
			Help: "Alert events raised by severity.",
		}, []string{"severity"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "switchmon_pass_duration_seconds",
			Help:    "Duration of a full health check pass.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		overallStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "switchmon_overall_status",
			Help: "Overall status of the last pass (0=ok, 1=degraded, 2=failed).",
		}),
	}

	m.registry.MustRegister(
		m.passes, m.commandFailures, m.alerts, m.passDuration, m.overallStatus,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveReport records one completed pass.
func (m *Metrics) ObserveReport(report *engine.HealthReport) {
	m.passes.WithLabelValues(report.OverallStatus.String()).Inc()
	m.passDuration.Observe(report.FinishedAt.Sub(report.ExecutionTime).Seconds())
	m.overallStatus.Set(float64(report.OverallStatus))

	for _, name := range report.Checks.Names() {
		result, _ := report.Checks.Get(name)
		for _, cmd := range result.Commands {
			if cmd.Status != engine.OutcomeSuccess {
				m.commandFailures.WithLabelValues(cmd.Status.String()).Inc()
			}
		}
	}
	for i := range report.Alerts {
		m.alerts.WithLabelValues(string(report.Alerts[i].Severity)).Inc()
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Timeout: 10 * time.Second,
	})
}
