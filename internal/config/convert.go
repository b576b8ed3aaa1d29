package config

import (
	"strings"

	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/metrics"
)

// ClassifierThresholds returns the configured cutoffs. Unset tables keep the
// standard cutoffs, and boundary inclusivity always follows them.
func (c *Config) ClassifierThresholds() metrics.Thresholds {
	th := metrics.DefaultThresholds()
	if t := c.Thresholds.LeadTime; t != (DurationTable{}) {
		th.LeadTime.Elite.Limit = t.Elite.Seconds()
		th.LeadTime.High.Limit = t.High.Seconds()
		th.LeadTime.Medium.Limit = t.Medium.Seconds()
	}
	if t := c.Thresholds.MeanTimeToRestore; t != (DurationTable{}) {
		th.MeanTimeToRestore.Elite.Limit = t.Elite.Seconds()
		th.MeanTimeToRestore.High.Limit = t.High.Seconds()
		th.MeanTimeToRestore.Medium.Limit = t.Medium.Seconds()
	}
	if t := c.Thresholds.ChangeFailureRate; t != (RateTable{}) {
		th.ChangeFailureRate.Elite.Limit = t.Elite
		th.ChangeFailureRate.High.Limit = t.High
		th.ChangeFailureRate.Medium.Limit = t.Medium
	}
	return th
}

// Comparator builds the configured period comparator.
func (c *Config) Comparator() *compare.Comparator {
	return compare.New(compare.Config{
		Materiality:       c.Comparison.Materiality,
		MultiplierPercent: c.Comparison.MultiplierPercent,
	})
}

// Resolver builds the configured window resolver.
func (c *Config) Resolver() daterange.Resolver {
	return daterange.NewResolver(c.Window.MaxDays)
}

// DefaultSelection is used for teams that never stored a selection.
func (c *Config) DefaultSelection() daterange.Selection {
	p, err := daterange.ParsePreset(c.Window.DefaultPreset)
	if err != nil || p == daterange.Custom {
		p = daterange.TwoWeeks
	}
	return daterange.Selection{Preset: p}
}

// Team returns the team named name, or nil.
func (c *Config) Team(name string) *TeamConfig {
	for i := range c.Teams {
		if c.Teams[i].Name == name {
			return &c.Teams[i]
		}
	}
	return nil
}

// TeamForRepo returns the first team tracking repo, or nil.
func (c *Config) TeamForRepo(repo string) *TeamConfig {
	for i := range c.Teams {
		if c.Teams[i].HasRepo(repo) {
			return &c.Teams[i]
		}
	}
	return nil
}

// Sources reports which integrations feed the team.
func (t *TeamConfig) Sources() metrics.Sources {
	return metrics.Sources{
		Deployments:             len(t.Repos) > 0,
		Incidents:               t.Incidents,
		RecoveryFromDeployments: t.RecoveryFromDeployments,
	}
}

// HasRepo reports whether the team tracks repo. Matching ignores case.
func (t *TeamConfig) HasRepo(repo string) bool {
	for _, r := range t.Repos {
		if strings.EqualFold(r, repo) {
			return true
		}
	}
	return false
}

// TracksEnvironment reports whether deployments to env count for the team.
func (t *TeamConfig) TracksEnvironment(env string) bool {
	if len(t.Environments) == 0 {
		return true
	}
	for _, e := range t.Environments {
		if strings.EqualFold(e, env) {
			return true
		}
	}
	return false
}
