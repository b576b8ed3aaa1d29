package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path and runs migrations.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS date_selections (
		scope      TEXT PRIMARY KEY,
		preset     TEXT NOT NULL,
		start_at   TEXT NOT NULL DEFAULT '',
		end_at     TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS deployments (
		id           TEXT PRIMARY KEY,
		team         TEXT NOT NULL,
		repo         TEXT NOT NULL DEFAULT '',
		sha          TEXT NOT NULL DEFAULT '',
		environment  TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL,
		committed_at TEXT NOT NULL DEFAULT '',
		deployed_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deployments_team_deployed ON deployments(team, deployed_at);

	CREATE TABLE IF NOT EXISTS incidents (
		id          TEXT PRIMARY KEY,
		team        TEXT NOT NULL,
		title       TEXT NOT NULL DEFAULT '',
		opened_at   TEXT NOT NULL,
		resolved_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_incidents_team_opened ON incidents(team, opened_at);
	CREATE INDEX IF NOT EXISTS idx_incidents_team_resolved ON incidents(team, resolved_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

// timeLayout is fixed width so stored instants sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}
