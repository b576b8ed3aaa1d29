package dashboard

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/rigdev/pulse/internal/score"
	"github.com/rigdev/pulse/internal/trend"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTeam is returned for teams missing from the configuration.
var ErrUnknownTeam = errors.New("unknown team")

// Store is the persistence the dashboard reads from.
type Store interface {
	ListDeployments(team string, from, to time.Time) ([]metrics.Deployment, error)
	ListIncidents(team string, from, to time.Time) ([]metrics.Incident, error)
	GetSelection(scope string) (*daterange.Selection, error)
	SaveSelection(scope string, sel daterange.Selection) (bool, error)
}

// FamilyResult is one metric card.
type FamilyResult struct {
	Family        metrics.Family      `json:"family"`
	Label         string              `json:"label"`
	LowerIsBetter bool                `json:"lower_is_better"`
	Value         *float64            `json:"value"`
	Previous      *float64            `json:"previous"`
	Tier          metrics.Tier        `json:"tier"`
	Cadence       *metrics.Cadence    `json:"cadence,omitempty"`
	Comparison    *compare.Comparison `json:"comparison,omitempty"`
	Trend         []trend.Point       `json:"trend"`
}

// Dashboard is everything shown for a team and window.
type Dashboard struct {
	Team      string              `json:"team"`
	Selection daterange.Selection `json:"selection"`
	Window    daterange.Window    `json:"window"`
	Previous  daterange.Window    `json:"previous_window"`
	Capped    bool                `json:"capped"`
	Families  []FamilyResult      `json:"families"`
	Score     score.Score         `json:"score"`
	ScoreBand score.Band          `json:"score_band"`
	Summary   metrics.Summary     `json:"summary"`
}

// TeamInfo describes a configured team.
type TeamInfo struct {
	Name    string          `json:"name"`
	Repos   []string        `json:"repos"`
	Sources metrics.Sources `json:"sources"`
}

// RangeState is a team's stored selection and the window it resolves to.
type RangeState struct {
	Selection daterange.Selection `json:"selection"`
	Window    daterange.Window    `json:"window"`
	Capped    bool                `json:"capped"`
	Changed   bool                `json:"changed"`
}

// Service builds dashboards. Reload swaps the configuration while requests
// are being served.
type Service struct {
	store Store
	log   logrus.FieldLogger
	now   func() time.Time

	mu         sync.RWMutex
	cfg        *config.Config
	classifier *metrics.Classifier
	comparator *compare.Comparator
	aggregator *score.Aggregator
	resolver   daterange.Resolver
}

// New returns a Service. A nil now uses time.Now.
func New(cfg *config.Config, store Store, log logrus.FieldLogger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	s := &Service{store: store, log: log, now: now}
	s.Reload(cfg)
	return s
}

// Reload applies a new configuration.
func (s *Service) Reload(cfg *config.Config) {
	classifier := metrics.NewClassifier(cfg.ClassifierThresholds())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.classifier = classifier
	s.comparator = cfg.Comparator()
	s.aggregator = score.New(classifier, cfg.Score.Standard)
	s.resolver = cfg.Resolver()
}

type snapshot struct {
	cfg        *config.Config
	classifier *metrics.Classifier
	comparator *compare.Comparator
	aggregator *score.Aggregator
	resolver   daterange.Resolver
}

func (s *Service) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		cfg:        s.cfg,
		classifier: s.classifier,
		comparator: s.comparator,
		aggregator: s.aggregator,
		resolver:   s.resolver,
	}
}

// Config returns the active configuration.
func (s *Service) Config() *config.Config {
	return s.snapshot().cfg
}

// Classifier returns the active classifier.
func (s *Service) Classifier() *metrics.Classifier {
	return s.snapshot().classifier
}

// Comparator returns the active comparator.
func (s *Service) Comparator() *compare.Comparator {
	return s.snapshot().comparator
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.now()
}

// Teams lists the configured teams.
func (s *Service) Teams() []TeamInfo {
	cfg := s.snapshot().cfg
	teams := make([]TeamInfo, 0, len(cfg.Teams))
	for i := range cfg.Teams {
		t := &cfg.Teams[i]
		teams = append(teams, TeamInfo{Name: t.Name, Repos: t.Repos, Sources: t.Sources()})
	}
	return teams
}

// Range returns the team's stored selection, or the default one, resolved
// at the current time.
func (s *Service) Range(team string) (*RangeState, error) {
	snap := s.snapshot()
	if snap.cfg.Team(team) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, team)
	}
	sel, err := s.storedSelection(snap, team)
	if err != nil {
		return nil, err
	}
	res, err := snap.resolver.Resolve(sel, s.now())
	if err != nil {
		return nil, err
	}
	return &RangeState{Selection: sel, Window: res.Window, Capped: res.Capped}, nil
}

// SetRange stores a new selection for the team. Changed is false when the
// selection equals the stored one.
func (s *Service) SetRange(team string, sel daterange.Selection) (*RangeState, error) {
	snap := s.snapshot()
	if snap.cfg.Team(team) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, team)
	}
	res, err := snap.resolver.Resolve(sel, s.now())
	if err != nil {
		return nil, err
	}
	changed, err := s.store.SaveSelection(team, sel)
	if err != nil {
		return nil, fmt.Errorf("save range: %w", err)
	}
	if changed {
		s.log.WithFields(logrus.Fields{"team": team, "preset": sel.Preset}).Info("date range updated")
	}
	return &RangeState{Selection: sel.Normalized(), Window: res.Window, Capped: res.Capped, Changed: changed}, nil
}

func (s *Service) storedSelection(snap snapshot, team string) (daterange.Selection, error) {
	stored, err := s.store.GetSelection(team)
	if err != nil {
		return daterange.Selection{}, fmt.Errorf("load range: %w", err)
	}
	if stored == nil {
		return snap.cfg.DefaultSelection(), nil
	}
	return *stored, nil
}

// Build computes the team's dashboard. A nil selection uses the stored one.
func (s *Service) Build(team string, sel *daterange.Selection) (*Dashboard, error) {
	snap := s.snapshot()
	tc := snap.cfg.Team(team)
	if tc == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTeam, team)
	}

	var selection daterange.Selection
	if sel != nil {
		selection = sel.Normalized()
	} else {
		stored, err := s.storedSelection(snap, team)
		if err != nil {
			return nil, err
		}
		selection = stored
	}

	res, err := snap.resolver.Resolve(selection, s.now())
	if err != nil {
		return nil, err
	}
	window := res.Window
	prevWindow := window.Previous()

	deploys, err := s.store.ListDeployments(team, prevWindow.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}
	incidents, err := s.store.ListIncidents(team, prevWindow.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}

	src := tc.Sources()
	current := metrics.Summarize(deploys, incidents, window, src)
	previous := metrics.Summarize(deploys, incidents, prevWindow, src)
	applyFailureRateBaseline(&current, previous, src)
	applyFailureRateBaseline(&previous, current, src)

	curSeries := metrics.DailySeries(deploys, incidents, window, src)
	prevSeries := metrics.DailySeries(deploys, incidents, prevWindow, src)

	d := &Dashboard{
		Team:      team,
		Selection: selection,
		Window:    window,
		Previous:  prevWindow,
		Capped:    res.Capped,
		Summary:   current,
	}

	for _, f := range metrics.Families() {
		fr, err := buildFamily(snap, f, current.Value(f), previous.Value(f))
		if err != nil {
			return nil, err
		}
		fr.Trend = trend.Merge(curSeries[f], prevSeries[f])
		d.Families = append(d.Families, fr)
	}

	d.Score, err = snap.aggregator.Aggregate(current.Values())
	if err != nil {
		return nil, err
	}
	d.ScoreBand = d.Score.Band()

	s.log.WithFields(logrus.Fields{
		"team":        team,
		"start":       window.Start,
		"end":         window.End,
		"capped":      res.Capped,
		"deployments": current.Deployments,
		"score":       d.Score.Average,
	}).Debug("dashboard built")

	return d, nil
}

func buildFamily(snap snapshot, f metrics.Family, cur, prev *float64) (FamilyResult, error) {
	fr := FamilyResult{
		Family:        f,
		Label:         f.Label(),
		LowerIsBetter: f.LowerIsBetter(),
		Value:         cur,
		Previous:      prev,
	}

	tier, err := snap.classifier.Classify(f, cur)
	if err != nil {
		return FamilyResult{}, err
	}
	fr.Tier = tier

	if f == metrics.DeploymentFrequency && cur != nil {
		c := metrics.CadenceOf(*cur)
		fr.Cadence = &c
	}

	if cur != nil && prev != nil {
		// Failure rates are already percentages; compare them as points.
		opts := compare.Options{DifferenceBased: f == metrics.ChangeFailureRate}
		cmp, err := snap.comparator.Compare(*cur, *prev, opts)
		if err != nil {
			return FamilyResult{}, err
		}
		fr.Comparison = &cmp
	}
	return fr, nil
}

// applyFailureRateBaseline reports a 0% failure rate for a window without
// deployments when the other window had some. Without deployments on either
// side the rate stays unavailable.
func applyFailureRateBaseline(s *metrics.Summary, other metrics.Summary, src metrics.Sources) {
	if !src.Deployments || s.ChangeFailureRate != nil || other.Deployments == 0 {
		return
	}
	zero := 0.0
	s.ChangeFailureRate = &zero
}
