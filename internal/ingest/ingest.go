package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rigdev/pulse/internal/adapter/git"
	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultBackfill is how far back a first sync reaches.
const DefaultBackfill = 90 * 24 * time.Hour

// ErrNoSource is returned by Sync when no code host is configured.
var ErrNoSource = errors.New("no code host configured")

// Store is the persistence ingested records are written to.
type Store interface {
	SaveDeployment(dep *metrics.Deployment) error
	SaveIncident(inc *metrics.Incident) error
	ResolveIncident(id string, at time.Time) (bool, error)
	GetSyncCursor(team, repo string) (time.Time, error)
	SetSyncCursor(team, repo string, at time.Time) error
}

// Ingester routes deployments and incidents to their team and stores them.
type Ingester struct {
	store  Store
	config func() *config.Config
	log    logrus.FieldLogger
	now    func() time.Time

	mu     sync.RWMutex
	source git.Source
}

// New returns an Ingester. source may be nil, in which case commit times are
// not looked up and Sync fails with ErrNoSource. cfg is called on every use
// so reloads take effect.
func New(store Store, source git.Source, cfg func() *config.Config, log logrus.FieldLogger) *Ingester {
	return &Ingester{store: store, source: source, config: cfg, log: log, now: time.Now}
}

// SetSource replaces the code host, for example after the GitHub settings
// were reloaded. A nil source disables lookups and Sync.
func (i *Ingester) SetSource(source git.Source) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.source = source
}

func (i *Ingester) currentSource() git.Source {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.source
}

// RecordDeployment stores a deployment reported for repo. It reports false
// when no team tracks the repo and environment. The commit time is looked up
// when a code host is configured; CommittedAt is kept if that fails.
func (i *Ingester) RecordDeployment(ctx context.Context, dep metrics.Deployment) (bool, error) {
	team := i.config().TeamForRepo(dep.Repo)
	if team == nil || !team.TracksEnvironment(dep.Environment) {
		return false, nil
	}
	dep.Team = team.Name

	if src := i.currentSource(); src != nil && dep.SHA != "" {
		committed, err := src.CommitTime(ctx, dep.Repo, dep.SHA)
		if err != nil {
			i.log.WithError(err).WithFields(logrus.Fields{"repo": dep.Repo, "sha": dep.SHA}).
				Warn("commit time lookup failed, using deployment creation time")
		} else {
			dep.CommittedAt = committed
		}
	}

	if err := i.store.SaveDeployment(&dep); err != nil {
		return false, err
	}
	i.log.WithFields(logrus.Fields{
		"team":        dep.Team,
		"repo":        dep.Repo,
		"environment": dep.Environment,
		"status":      dep.Status,
	}).Info("deployment recorded")
	return true, nil
}

// RecordIncident upserts an incident reported for repo. It reports false
// when no team tracking the repo has incident tracking enabled.
func (i *Ingester) RecordIncident(repo string, inc metrics.Incident) (bool, error) {
	team := i.config().TeamForRepo(repo)
	if team == nil || !team.Incidents {
		return false, nil
	}
	inc.Team = team.Name

	if err := i.store.SaveIncident(&inc); err != nil {
		return false, err
	}
	i.log.WithFields(logrus.Fields{
		"team":     inc.Team,
		"incident": inc.ID,
		"resolved": inc.ResolvedAt != nil,
	}).Info("incident recorded")
	return true, nil
}

// ResolveIncident closes an incident. An incident that was never recorded is
// stored in its resolved state.
func (i *Ingester) ResolveIncident(repo string, inc metrics.Incident, at time.Time) (bool, error) {
	ok, err := i.store.ResolveIncident(inc.ID, at)
	if err != nil {
		return false, err
	}
	if ok {
		i.log.WithField("incident", inc.ID).Info("incident resolved")
		return true, nil
	}
	inc.ResolvedAt = &at
	return i.RecordIncident(repo, inc)
}

// SyncResult counts what a sync stored.
type SyncResult struct {
	Team        string `json:"team"`
	Repos       int    `json:"repos"`
	Deployments int    `json:"deployments"`
	Incidents   int    `json:"incidents"`
}

// Sync backfills the team's repos from the code host. A zero since resumes
// from each repo's stored cursor, or DefaultBackfill ago on the first run.
func (i *Ingester) Sync(ctx context.Context, teamName string, since time.Time) (*SyncResult, error) {
	source := i.currentSource()
	if source == nil {
		return nil, ErrNoSource
	}
	cfg := i.config()
	team := cfg.Team(teamName)
	if team == nil {
		return nil, fmt.Errorf("sync: unknown team %q", teamName)
	}

	res := &SyncResult{Team: team.Name}
	for _, repo := range team.Repos {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		started := i.now()
		from, err := i.syncStart(team.Name, repo, since, started)
		if err != nil {
			return res, err
		}

		deploys, err := source.Deployments(ctx, repo, from)
		if err != nil {
			return res, fmt.Errorf("sync %s: %w", repo, err)
		}
		for _, dep := range deploys {
			if !team.TracksEnvironment(dep.Environment) {
				continue
			}
			dep.Team = team.Name
			if err := i.store.SaveDeployment(&dep); err != nil {
				return res, err
			}
			res.Deployments++
		}

		if team.Incidents {
			incidents, err := source.Incidents(ctx, repo, cfg.GitHub.IncidentLabel, from)
			if err != nil {
				return res, fmt.Errorf("sync %s: %w", repo, err)
			}
			for _, inc := range incidents {
				inc.Team = team.Name
				if err := i.store.SaveIncident(&inc); err != nil {
					return res, err
				}
				res.Incidents++
			}
		}

		if err := i.store.SetSyncCursor(team.Name, repo, started); err != nil {
			return res, err
		}
		res.Repos++
		i.log.WithFields(logrus.Fields{"team": team.Name, "repo": repo, "since": from}).Debug("repo synced")
	}

	i.log.WithFields(logrus.Fields{
		"team":        res.Team,
		"repos":       res.Repos,
		"deployments": res.Deployments,
		"incidents":   res.Incidents,
	}).Info("sync complete")
	return res, nil
}

func (i *Ingester) syncStart(team, repo string, since, now time.Time) (time.Time, error) {
	if !since.IsZero() {
		return since, nil
	}
	cursor, err := i.store.GetSyncCursor(team, repo)
	if err != nil {
		return time.Time{}, err
	}
	if cursor.IsZero() {
		return now.Add(-DefaultBackfill), nil
	}
	return cursor, nil
}
