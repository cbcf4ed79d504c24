package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mylappaninfra/cisco-switch-monitoring/internal/engine"
)

// InsertReport persists one completed report and its alerts.
func (s *Store) InsertReport(ctx context.Context, report *engine.HealthReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO reports (run_id, device, overall_status, started_at, finished_at, body)
		VALUES (?, ?, ?, ?, ?, ?)`,
		report.RunID, report.Device.Host, report.OverallStatus.String(),
		report.ExecutionTime, report.FinishedAt, string(body),
	); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	for i := range report.Alerts {
		alert := &report.Alerts[i]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO alerts (id, run_id, severity, check_name, metric, message, raised_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			alert.ID, report.RunID, string(alert.Severity), alert.Check,
			alert.Metric, alert.Message, alert.Timestamp,
		); err != nil {
			return fmt.Errorf("insert alert %s: %w", alert.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report: %w", err)
	}
	return nil
}

// LatestReport returns the most recent report, or nil, nil when none exists.
func (s *Store) LatestReport(ctx context.Context) (*engine.HealthReport, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM reports ORDER BY started_at DESC LIMIT 1`,
	).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest report: %w", err)
	}

	var report engine.HealthReport
	if err := json.Unmarshal([]byte(body), &report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &report, nil
}

// ListAlerts returns the most recent alerts, newest first.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]engine.AlertEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, severity, check_name, metric, message, raised_at
		FROM alerts ORDER BY raised_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []engine.AlertEvent
	for rows.Next() {
		var a engine.AlertEvent
		var sev string
		if err := rows.Scan(&a.ID, &sev, &a.Check, &a.Metric, &a.Message, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan alert row: %w", err)
		}
		a.Severity = engine.Severity(sev)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Prune deletes reports (and their alerts, via cascade) older than the
// retention window. Returns the number of reports removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-retention)
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	return res.RowsAffected()
}
