package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rigdev/pulse/internal/metrics"
)

// Source fetches deployment and incident history from a code host.
type Source interface {
	// Deployments returns deployments of repo with a final status created at
	// or after since. Team is left empty.
	Deployments(ctx context.Context, repo string, since time.Time) ([]metrics.Deployment, error)

	// Incidents returns issues of repo carrying label that were updated at or
	// after since. Team is left empty.
	Incidents(ctx context.Context, repo, label string, since time.Time) ([]metrics.Incident, error)

	// CommitTime returns when sha was committed.
	CommitTime(ctx context.Context, repo, sha string) (time.Time, error)
}

// DeploymentID is the record ID of a code host deployment. Webhook and
// backfill share it so both paths upsert the same row.
func DeploymentID(repo string, id int64) string {
	return fmt.Sprintf("%s/deployments/%d", strings.ToLower(repo), id)
}

// IncidentID is the record ID of an incident issue.
func IncidentID(repo string, number int) string {
	return fmt.Sprintf("%s/issues/%d", strings.ToLower(repo), number)
}

// StatusFromState maps a deployment status state onto a deploy outcome.
// Pending, queued and inactive states report false.
func StatusFromState(state string) (metrics.DeployStatus, bool) {
	switch strings.ToLower(state) {
	case "success":
		return metrics.DeploySucceeded, true
	case "failure", "error":
		return metrics.DeployFailed, true
	default:
		return "", false
	}
}

// SplitRepo splits "owner/name".
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repo %q is not in owner/name form", repo)
	}
	return owner, name, nil
}
