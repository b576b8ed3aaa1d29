package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rigdev/pulse/internal/metrics"
)

// SaveIncident upserts an incident by ID.
func (d *DB) SaveIncident(inc *metrics.Incident) error {
	if inc.ID == "" {
		return fmt.Errorf("save incident: id is required")
	}
	var resolvedAt any
	if inc.ResolvedAt != nil {
		resolvedAt = formatTime(*inc.ResolvedAt)
	}
	_, err := d.db.Exec(
		`INSERT INTO incidents (id, team, title, opened_at, resolved_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			team = excluded.team,
			title = excluded.title,
			opened_at = excluded.opened_at,
			resolved_at = excluded.resolved_at`,
		inc.ID, inc.Team, inc.Title, formatTime(inc.OpenedAt), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("save incident %s: %w", inc.ID, err)
	}
	return nil
}

// ResolveIncident marks an incident resolved at the given time. It reports
// false if the incident is unknown.
func (d *DB) ResolveIncident(id string, at time.Time) (bool, error) {
	res, err := d.db.Exec("UPDATE incidents SET resolved_at = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("resolve incident %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve incident %s: %w", id, err)
	}
	return n > 0, nil
}

// GetIncident retrieves an incident by its ID.
func (d *DB) GetIncident(id string) (*metrics.Incident, error) {
	row := d.db.QueryRow(
		"SELECT id, team, title, opened_at, resolved_at FROM incidents WHERE id = ?", id)
	inc, err := scanIncident(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}
	return inc, nil
}

// ListIncidents returns the team's incidents opened or resolved between from
// and to, inclusive, oldest first.
func (d *DB) ListIncidents(team string, from, to time.Time) ([]metrics.Incident, error) {
	lo, hi := formatTime(from), formatTime(to)
	rows, err := d.db.Query(
		`SELECT id, team, title, opened_at, resolved_at
		 FROM incidents
		 WHERE team = ? AND ((opened_at >= ? AND opened_at <= ?) OR (resolved_at >= ? AND resolved_at <= ?))
		 ORDER BY opened_at`,
		team, lo, hi, lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("list incidents for %q: %w", team, err)
	}
	defer rows.Close()

	var incidents []metrics.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIncident(s scanner) (*metrics.Incident, error) {
	var (
		inc        metrics.Incident
		openedAt   string
		resolvedAt sql.NullString
	)
	if err := s.Scan(&inc.ID, &inc.Team, &inc.Title, &openedAt, &resolvedAt); err != nil {
		return nil, err
	}
	var err error
	if inc.OpenedAt, err = parseTime(openedAt); err != nil {
		return nil, err
	}
	if resolvedAt.Valid && resolvedAt.String != "" {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return nil, err
		}
		inc.ResolvedAt = &t
	}
	return &inc, nil
}
