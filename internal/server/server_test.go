package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/history"
	"github.com/mylappaninfra/cisco-switch-monitoring/internal/metrics"
)

func newTestServer(t *testing.T, store *history.Store) *httptest.Server {
	t.Helper()
	s := New(Config{Host: "127.0.0.1", Port: 0}, store, metrics.New(), zap.NewNop())
	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t, nil)

	var body map[string]string
	if code := getJSON(t, srv.URL+"/healthz", &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestServer_ReportWithoutHistory(t *testing.T) {
	srv := newTestServer(t, nil)

	if code := getJSON(t, srv.URL+"/api/v1/report/latest", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when history is disabled", code)
	}
	if code := getJSON(t, srv.URL+"/api/v1/alerts", nil); code != http.StatusNotFound {
		t.Errorf("alerts status = %d, want 404 when history is disabled", code)
	}
}

func TestServer_LatestReport(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := newTestServer(t, store)

	// Empty database first.
	if code := getJSON(t, srv.URL+"/api/v1/report/latest", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any pass", code)
	}

	now := time.Now().UTC().Truncate(time.Second)
	checks := engine.NewCheckMap()
	checks.Set("power", &engine.CheckResult{Check: "power", Status: engine.StatusOK, Timestamp: now})
	report := &engine.HealthReport{
		Device:        engine.DeviceInfo{Hostname: "core-sw-01", Host: "192.0.2.10"},
		RunID:         "run-7",
		ExecutionTime: now,
		FinishedAt:    now.Add(5 * time.Second),
		Checks:        checks,
		OverallStatus: engine.StatusOK,
	}
	if err := store.InsertReport(context.Background(), report); err != nil {
		t.Fatalf("insert report: %v", err)
	}

	var got engine.HealthReport
	if code := getJSON(t, srv.URL+"/api/v1/report/latest", &got); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if got.RunID != "run-7" || got.OverallStatus != engine.StatusOK {
		t.Errorf("report = %+v", got)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
