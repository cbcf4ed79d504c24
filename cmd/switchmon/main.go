// Command switchmon polls a Cisco switch over SSH, runs the configured
// health checks, and produces a consolidated health report plus alert
// events for out-of-bound conditions.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/config"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/event"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/history"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/metrics"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/notify"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/parser"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/render"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/schedule"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/server"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/session"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/version"
)

// Exit codes: 0 healthy, 1 degraded or failed, 2 no report (connect failure
// or bad configuration).
const (
	exitOK        = 0
	exitUnhealthy = 1
	exitNoReport  = 2
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(version.Info())
		return
	}

	configPath := flag.String("config", "", "path to configuration file")
	daemon := flag.Bool("daemon", false, "run continuously on the configured schedule (also enabled by schedule.enabled)")
	outputDir := flag.String("output", "", "override output directory")
	format := flag.String("format", "", "override output format (json, yaml, text)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(exitNoReport)
	}
	cfg, err := config.Parse(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(exitNoReport)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *format != "" {
		cfg.Output.Format = *format
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(exitNoReport)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("switchmon starting",
		zap.String("version", version.Short()),
		zap.String("device", cfg.Device.Host),
	)
	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	} else {
		logger.Warn("no configuration file found, using defaults")
	}

	os.Exit(run(cfg, logger, *daemon || cfg.Schedule.Enabled))
}

// monitor wires the engine to its collaborators for the lifetime of the
// process.
type monitor struct {
	cfg        *config.Config
	aggregator *engine.Aggregator
	store      *history.Store
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func run(cfg *config.Config, logger *zap.Logger, daemon bool) int {
	bus := event.NewBus(logger.Named("event"))

	dispatcher := notify.NewDispatcher(channels(cfg), logger.Named("notify"))
	if dispatcher.Channels() > 0 {
		defer dispatcher.BindTo(bus)()
	}

	var store *history.Store
	if cfg.History.Path != "" {
		var err error
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Error("failed to open history database", zap.Error(err))
			return exitNoReport
		}
		defer store.Close()
	}

	runner := engine.NewRunner(
		cfg.Connection.CommandTimeout,
		cfg.RetryPolicy(),
		cfg.Connection.CommandInterval,
		logger.Named("runner"),
	)
	executor := engine.NewExecutor(runner, parser.Default(), cfg.Engine.CriticalDegrades, logger.Named("executor"))
	aggregator := engine.NewAggregator(executor, cfg.DeviceInfo(), bus, logger.Named("aggregator"))

	m := &monitor{
		cfg:        cfg,
		aggregator: aggregator,
		store:      store,
		metrics:    metrics.New(),
		logger:     logger,
	}

	if !daemon {
		report, err := m.pass(context.Background())
		if err != nil {
			logger.Error("health check pass failed", zap.Error(err))
			return exitNoReport
		}
		if report.OverallStatus != engine.StatusOK {
			return exitUnhealthy
		}
		return exitOK
	}

	return m.daemon()
}

// daemon runs the scheduler and HTTP surface until interrupted.
func (m *monitor) daemon() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interval := m.cfg.Schedule.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	sched := schedule.New(func(ctx context.Context) {
		if _, err := m.pass(ctx); err != nil {
			m.logger.Error("health check pass failed", zap.Error(err))
		}
	}, interval, m.logger.Named("schedule"))
	sched.Start(ctx)

	var srv *server.Server
	if m.cfg.Server.Enabled {
		srv = server.New(server.Config{
			Host: m.cfg.Server.Host,
			Port: m.cfg.Server.Port,
		}, m.store, m.metrics, m.logger.Named("server"))
		srv.Start()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	m.logger.Info("shutting down", zap.String("signal", s.String()))

	cancel()
	sched.Stop()
	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("http server shutdown", zap.Error(err))
		}
	}
	return exitOK
}

// pass executes one full health check pass: probe, connect, run all checks,
// write the report, persist, record metrics. The session is released on
// every path.
func (m *monitor) pass(ctx context.Context) (*engine.HealthReport, error) {
	conn := m.cfg.Connection

	if conn.Probe {
		if err := session.Probe(ctx, m.cfg.Device.Host, conn.ProbeCount, conn.ProbeTimeout, m.logger.Named("probe")); err != nil {
			return nil, err
		}
	}

	sess, err := session.Dial(ctx, session.Config{
		Host:           m.cfg.Device.Host,
		Port:           conn.Port,
		Username:       conn.Username,
		Password:       conn.Password,
		EnableSecret:   conn.EnableSecret,
		ConnectTimeout: conn.ConnectTimeout,
	}, m.logger.Named("session"))
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	report := m.aggregator.RunAll(ctx, sess, m.cfg.CheckDefinitions())

	path, err := render.WriteFile(report, m.cfg.Output.Format, m.cfg.Output.Dir)
	if err != nil {
		m.logger.Error("failed to write report", zap.Error(err))
	} else {
		m.logger.Info("report written", zap.String("path", path))
		fmt.Printf("Health check completed. Results saved to: %s\n", path)
	}

	m.metrics.ObserveReport(report)

	if m.store != nil {
		if err := m.store.InsertReport(ctx, report); err != nil {
			m.logger.Error("failed to persist report", zap.Error(err))
		}
		if pruned, err := m.store.Prune(ctx, m.cfg.History.Retention); err != nil {
			m.logger.Warn("history prune failed", zap.Error(err))
		} else if pruned > 0 {
			m.logger.Debug("history pruned", zap.Int64("reports", pruned))
		}
	}

	return report, nil
}

func channels(cfg *config.Config) []notify.Channel {
	out := make([]notify.Channel, 0, len(cfg.Notifications))
	for _, ch := range cfg.Notifications {
		out = append(out, notify.Channel{
			Name:    ch.Name,
			Type:    ch.Type,
			Enabled: ch.Enabled,
			URL:     ch.URL,
			Secret:  ch.Secret,
			Headers: ch.Headers,
		})
	}
	return out
}
