package storage

import (
	"fmt"
	"time"

	"github.com/rigdev/pulse/internal/metrics"
)

// SaveDeployment upserts a deployment by ID.
func (d *DB) SaveDeployment(dep *metrics.Deployment) error {
	if dep.ID == "" {
		return fmt.Errorf("save deployment: id is required")
	}
	_, err := d.db.Exec(
		`INSERT INTO deployments (id, team, repo, sha, environment, status, committed_at, deployed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			team = excluded.team,
			repo = excluded.repo,
			sha = excluded.sha,
			environment = excluded.environment,
			status = excluded.status,
			committed_at = excluded.committed_at,
			deployed_at = excluded.deployed_at`,
		dep.ID, dep.Team, dep.Repo, dep.SHA, dep.Environment, string(dep.Status),
		formatTime(dep.CommittedAt), formatTime(dep.DeployedAt),
	)
	if err != nil {
		return fmt.Errorf("save deployment %s: %w", dep.ID, err)
	}
	return nil
}

// ListDeployments returns the team's deployments made between from and to,
// inclusive, oldest first.
func (d *DB) ListDeployments(team string, from, to time.Time) ([]metrics.Deployment, error) {
	rows, err := d.db.Query(
		`SELECT id, team, repo, sha, environment, status, committed_at, deployed_at
		 FROM deployments
		 WHERE team = ? AND deployed_at >= ? AND deployed_at <= ?
		 ORDER BY deployed_at`,
		team, formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list deployments for %q: %w", team, err)
	}
	defer rows.Close()

	var deploys []metrics.Deployment
	for rows.Next() {
		var (
			dep                     metrics.Deployment
			status                  string
			committedAt, deployedAt string
		)
		if err := rows.Scan(&dep.ID, &dep.Team, &dep.Repo, &dep.SHA, &dep.Environment,
			&status, &committedAt, &deployedAt); err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		dep.Status = metrics.DeployStatus(status)
		if dep.CommittedAt, err = parseTime(committedAt); err != nil {
			return nil, fmt.Errorf("parse committed_at of %s: %w", dep.ID, err)
		}
		if dep.DeployedAt, err = parseTime(deployedAt); err != nil {
			return nil, fmt.Errorf("parse deployed_at of %s: %w", dep.ID, err)
		}
		deploys = append(deploys, dep)
	}
	return deploys, rows.Err()
}
