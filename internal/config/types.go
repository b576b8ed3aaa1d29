package config

import "time"

// Config is the top-level configuration for Pulse.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
	Window     WindowConfig     `yaml:"window"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Comparison ComparisonConfig `yaml:"comparison"`
	Score      ScoreConfig      `yaml:"score"`
	GitHub     GitHubConfig     `yaml:"github"`
	Notify     NotifyConfig     `yaml:"notify"`
	Teams      []TeamConfig     `yaml:"teams"`
}

// ServerConfig holds API and webhook server settings.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	WebhookPort   int    `yaml:"webhook_port"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// StorageConfig holds the sqlite location. Empty means the CLI default.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// WindowConfig holds date window settings.
type WindowConfig struct {
	DefaultPreset string `yaml:"default_preset"`
	MaxDays       int    `yaml:"max_days"`
}

// ThresholdsConfig overrides the classification cutoffs.
type ThresholdsConfig struct {
	LeadTime          DurationTable `yaml:"lead_time"`
	MeanTimeToRestore DurationTable `yaml:"mean_time_to_restore"`
	ChangeFailureRate RateTable     `yaml:"change_failure_rate"`
}

// DurationTable holds cutoffs for a duration family.
type DurationTable struct {
	Elite  time.Duration `yaml:"elite"`
	High   time.Duration `yaml:"high"`
	Medium time.Duration `yaml:"medium"`
}

// RateTable holds percent cutoffs.
type RateTable struct {
	Elite  float64 `yaml:"elite"`
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
}

// ComparisonConfig tunes period-over-period comparison.
type ComparisonConfig struct {
	Materiality       float64 `yaml:"materiality"`
	MultiplierPercent float64 `yaml:"multiplier_percent"`
}

// ScoreConfig holds score settings.
type ScoreConfig struct {
	Standard float64 `yaml:"standard"`
}

// GitHubConfig holds GitHub API settings used for backfill and commit lookups.
type GitHubConfig struct {
	Token         string `yaml:"token"`
	BaseURL       string `yaml:"base_url"`
	IncidentLabel string `yaml:"incident_label"`
}

// NotifyConfig selects where score band changes are announced. An empty
// type disables notifications.
type NotifyConfig struct {
	Type       string `yaml:"type"` // slack|discord
	WebhookURL string `yaml:"webhook_url"`
}

// TeamConfig describes one team and the integrations feeding it.
type TeamConfig struct {
	Name         string   `yaml:"name"`
	Repos        []string `yaml:"repos"`        // owner/name
	Environments []string `yaml:"environments"` // empty means every environment
	Incidents    bool     `yaml:"incidents"`
	// RecoveryFromDeployments derives restore time from failed deployments
	// when the team has no incident tracking.
	RecoveryFromDeployments bool `yaml:"recovery_from_deployments"`
}
