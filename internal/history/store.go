// Package history persists completed health reports and their alerts to a
// local SQLite database so past passes can be queried and served.
package history

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/mod/semver"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// schemaVersion is stored in the meta table. Opening a database written by
// a newer schema fails instead of corrupting it.
const schemaVersion = "v1.0.0"

// ErrNewerSchema is returned when the database was created by a newer
// version of the monitor than the running binary.
var ErrNewerSchema = fmt.Errorf("history database was created by a newer version")

// Store provides report and alert persistence.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection. WAL enables
	// concurrent readers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	// modernc.org/sqlite requires SQL statements, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reports (
			run_id         TEXT PRIMARY KEY,
			device         TEXT NOT NULL,
			overall_status TEXT NOT NULL,
			started_at     TIMESTAMP NOT NULL,
			finished_at    TIMESTAMP NOT NULL,
			body           TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_started ON reports(started_at)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id        TEXT PRIMARY KEY,
			run_id    TEXT NOT NULL REFERENCES reports(run_id) ON DELETE CASCADE,
			severity  TEXT NOT NULL,
			check_name TEXT NOT NULL,
			metric    TEXT NOT NULL,
			message   TEXT NOT NULL,
			raised_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_run ON alerts(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	var stored string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec(
			`INSERT INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion,
		); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case semver.Compare(stored, schemaVersion) > 0:
		return fmt.Errorf("%w (db %s, binary %s)", ErrNewerSchema, stored, schemaVersion)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
