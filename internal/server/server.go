// Package server exposes the daemon-mode HTTP surface: liveness, Prometheus
// metrics, and the latest persisted health report.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/history"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/metrics"
)

// Config holds the listen address settings.
type Config struct {
	Host string
	Port int
}

// Server is the monitor's HTTP endpoint. It is read-only: all mutation
// happens through configuration and the polling loop.
type Server struct {
	httpServer *http.Server
	store      *history.Store
	logger     *zap.Logger
}

// New creates the server. store may be nil when history is disabled; the
// report endpoint then returns 404.
func New(cfg Config, store *history.Store, m *metrics.Metrics, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /api/v1/report/latest", s.handleLatestReport)
	mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	mux.Handle("GET /metrics", m.Handler())

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}
	report, err := s.store.LatestReport(r.Context())
	if err != nil {
		s.logger.Error("load latest report", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load report"})
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history is disabled"})
		return
	}
	alerts, err := s.store.ListAlerts(r.Context(), 100)
	if err != nil {
		s.logger.Error("list alerts", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list alerts"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
