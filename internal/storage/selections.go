package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rigdev/pulse/internal/daterange"
)

// Custom bounds keep their UTC offset so a reloaded selection resolves to
// the same calendar days.
const boundLayout = time.RFC3339Nano

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(boundLayout)
}

func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(boundLayout, s)
}

// GetSelection returns the stored date selection for scope, or nil if none
// was saved.
func (d *DB) GetSelection(scope string) (*daterange.Selection, error) {
	var preset, startAt, endAt string
	err := d.db.QueryRow(
		"SELECT preset, start_at, end_at FROM date_selections WHERE scope = ?", scope,
	).Scan(&preset, &startAt, &endAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get selection for %q: %w", scope, err)
	}

	sel := daterange.Selection{Preset: daterange.Preset(preset)}
	if sel.Start, err = parseBound(startAt); err != nil {
		return nil, fmt.Errorf("parse selection start for %q: %w", scope, err)
	}
	if sel.End, err = parseBound(endAt); err != nil {
		return nil, fmt.Errorf("parse selection end for %q: %w", scope, err)
	}
	return &sel, nil
}

// SaveSelection validates and upserts the selection for scope. Saving a
// selection equal to the stored one writes nothing and reports false.
func (d *DB) SaveSelection(scope string, sel daterange.Selection) (bool, error) {
	if err := sel.Validate(); err != nil {
		return false, err
	}
	sel = sel.Normalized()

	current, err := d.GetSelection(scope)
	if err != nil {
		return false, err
	}
	if current != nil && current.Equal(sel) {
		return false, nil
	}

	_, err = d.db.Exec(
		`INSERT INTO date_selections (scope, preset, start_at, end_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET
			preset = excluded.preset,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			updated_at = excluded.updated_at`,
		scope, string(sel.Preset), formatBound(sel.Start), formatBound(sel.End), time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("save selection for %q: %w", scope, err)
	}
	return true, nil
}
