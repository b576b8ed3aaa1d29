package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// GetSetting retrieves a single setting by key. A missing key yields "".
func (d *DB) GetSetting(key string) (string, error) {
	var value string
	err := d.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a setting.
func (d *DB) SetSetting(key, value string) error {
	_, err := d.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func syncCursorKey(team, repo string) string {
	return "sync_cursor:" + team + ":" + repo
}

// GetSyncCursor returns when repo was last backfilled for team, or the zero
// time if it never was.
func (d *DB) GetSyncCursor(team, repo string) (time.Time, error) {
	v, err := d.GetSetting(syncCursorKey(team, repo))
	if err != nil {
		return time.Time{}, err
	}
	t, err := parseTime(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sync cursor for %s/%s: %w", team, repo, err)
	}
	return t, nil
}

// SetSyncCursor records a completed backfill of repo for team.
func (d *DB) SetSyncCursor(team, repo string, at time.Time) error {
	return d.SetSetting(syncCursorKey(team, repo), formatTime(at))
}
