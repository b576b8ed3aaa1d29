package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Batch is a file of pre-classified records.
type Batch struct {
	Deployments []metrics.Deployment `json:"deployments"`
	Incidents   []metrics.Incident   `json:"incidents"`
}

// ImportResult counts what an import stored.
type ImportResult struct {
	Deployments int `json:"deployments"`
	Incidents   int `json:"incidents"`
}

// ReadBatch decodes a JSON batch.
func ReadBatch(r io.Reader) (*Batch, error) {
	var b Batch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return &b, nil
}

// Import validates every record and then stores them. Records without an ID
// get a random one; records without a team are routed by repo.
func (i *Ingester) Import(b *Batch) (*ImportResult, error) {
	if err := prepare(b, i.config()); err != nil {
		return nil, err
	}

	res := &ImportResult{}
	for k := range b.Deployments {
		if err := i.store.SaveDeployment(&b.Deployments[k]); err != nil {
			return res, err
		}
		res.Deployments++
	}
	for k := range b.Incidents {
		if err := i.store.SaveIncident(&b.Incidents[k]); err != nil {
			return res, err
		}
		res.Incidents++
	}

	i.log.WithFields(logrus.Fields{
		"deployments": res.Deployments,
		"incidents":   res.Incidents,
	}).Info("batch imported")
	return res, nil
}

// prepare fills IDs and teams and collects every problem.
func prepare(b *Batch, cfg *config.Config) error {
	var errs []string

	resolveTeam := func(team, repo string) (string, string) {
		if team != "" {
			if cfg.Team(team) == nil {
				return "", fmt.Sprintf("unknown team %q", team)
			}
			return team, ""
		}
		if repo != "" {
			if tc := cfg.TeamForRepo(repo); tc != nil {
				return tc.Name, ""
			}
			return "", fmt.Sprintf("no team tracks repo %q", repo)
		}
		return "", "team is required"
	}

	for k := range b.Deployments {
		d := &b.Deployments[k]
		if d.ID == "" {
			d.ID = uuid.New().String()
		}
		team, problem := resolveTeam(d.Team, d.Repo)
		if problem != "" {
			errs = append(errs, fmt.Sprintf("deployments[%d]: %s", k, problem))
		}
		d.Team = team
		if d.Status != metrics.DeploySucceeded && d.Status != metrics.DeployFailed {
			errs = append(errs, fmt.Sprintf("deployments[%d]: status %q must be %q or %q",
				k, d.Status, metrics.DeploySucceeded, metrics.DeployFailed))
		}
		if d.DeployedAt.IsZero() {
			errs = append(errs, fmt.Sprintf("deployments[%d]: deployed_at is required", k))
		}
		if !d.CommittedAt.IsZero() && d.CommittedAt.After(d.DeployedAt) {
			errs = append(errs, fmt.Sprintf("deployments[%d]: committed_at is after deployed_at", k))
		}
	}

	for k := range b.Incidents {
		inc := &b.Incidents[k]
		if inc.ID == "" {
			inc.ID = uuid.New().String()
		}
		team, problem := resolveTeam(inc.Team, "")
		if problem != "" {
			errs = append(errs, fmt.Sprintf("incidents[%d]: %s", k, problem))
		}
		inc.Team = team
		if inc.OpenedAt.IsZero() {
			errs = append(errs, fmt.Sprintf("incidents[%d]: opened_at is required", k))
		}
		if inc.ResolvedAt != nil && inc.ResolvedAt.Before(inc.OpenedAt) {
			errs = append(errs, fmt.Sprintf("incidents[%d]: resolved_at is before opened_at", k))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("import: %s", strings.Join(errs, "; "))
	}
	return nil
}
