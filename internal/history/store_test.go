package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func storedReport(runID string, started time.Time, status engine.Status) *engine.HealthReport {
	checks := engine.NewCheckMap()
	checks.Set("cpu", &engine.CheckResult{
		Check:     "cpu",
		Timestamp: started,
		Status:    status,
		Commands: []engine.CommandResult{
			{Command: "show processes cpu", Status: engine.OutcomeSuccess},
		},
	})
	report := &engine.HealthReport{
		Device:        engine.DeviceInfo{Hostname: "core-sw-01", Host: "192.0.2.10"},
		RunID:         runID,
		ExecutionTime: started,
		FinishedAt:    started.Add(10 * time.Second),
		Checks:        checks,
		OverallStatus: status,
	}
	if status != engine.StatusOK {
		report.Alerts = []engine.AlertEvent{
			{
				ID:        runID + "-alert",
				Severity:  engine.SeverityCritical,
				Check:     "cpu",
				Metric:    "cpu_percent_5m",
				Message:   "cpu_percent_5m out of bounds",
				Timestamp: started,
			},
		}
	}
	return report
}

func TestStore_InsertAndLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.InsertReport(ctx, storedReport("run-1", base.Add(-2*time.Hour), engine.StatusOK)))
	require.NoError(t, s.InsertReport(ctx, storedReport("run-2", base.Add(-1*time.Hour), engine.StatusDegraded)))

	latest, err := s.LatestReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-2", latest.RunID)
	assert.Equal(t, engine.StatusDegraded, latest.OverallStatus)
	assert.Equal(t, []string{"cpu"}, latest.Checks.Names(), "report body round-trips intact")
}

func TestStore_LatestOnEmptyDatabase(t *testing.T) {
	s := openTestStore(t)

	latest, err := s.LatestReport(context.Background())
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestStore_DuplicateRunIDRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	report := storedReport("run-1", time.Now().UTC(), engine.StatusOK)

	require.NoError(t, s.InsertReport(ctx, report))
	require.Error(t, s.InsertReport(ctx, report))
}

func TestStore_ListAlerts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.InsertReport(ctx, storedReport("run-1", base.Add(-2*time.Hour), engine.StatusFailed)))
	require.NoError(t, s.InsertReport(ctx, storedReport("run-2", base.Add(-1*time.Hour), engine.StatusFailed)))

	alerts, err := s.ListAlerts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "run-2-alert", alerts[0].ID, "newest first")
	assert.Equal(t, engine.SeverityCritical, alerts[0].Severity)

	limited, err := s.ListAlerts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestStore_Prune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.InsertReport(ctx, storedReport("run-old", now.Add(-72*time.Hour), engine.StatusFailed)))
	require.NoError(t, s.InsertReport(ctx, storedReport("run-new", now.Add(-1*time.Hour), engine.StatusOK)))

	removed, err := s.Prune(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	latest, err := s.LatestReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-new", latest.RunID)

	// Cascade removed the pruned report's alerts.
	alerts, err := s.ListAlerts(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// Zero retention disables pruning.
	removed, err = s.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.InsertReport(context.Background(), storedReport("run-1", time.Now().UTC(), engine.StatusOK)))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	latest, err := s.LatestReport(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run-1", latest.RunID)
}

func TestStore_NewerSchemaRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE meta SET value = ? WHERE key = 'schema_version'`, "v99.0.0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.ErrorIs(t, err, ErrNewerSchema)
}
