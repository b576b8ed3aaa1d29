package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rigdev/pulse/internal/daterange"
)

// validLogLevels is the set of supported log levels.
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats is the set of supported log formats.
var validLogFormats = map[string]bool{
	"text": true,
	"json": true,
}

var validNotifyTypes = map[string]bool{
	"slack":   true,
	"discord": true,
}

// Validate checks the Config for completeness and correctness.
// Every problem is reported, each prefixed with "config: ".
func Validate(cfg *Config) error {
	var errs []string

	// --- Server ---
	errs = append(errs, validatePort("server.port", cfg.Server.Port)...)
	errs = append(errs, validatePort("server.webhook_port", cfg.Server.WebhookPort)...)
	if cfg.Server.Port != 0 && cfg.Server.Port == cfg.Server.WebhookPort {
		errs = append(errs, fmt.Sprintf(
			"config: server.port and server.webhook_port must differ, both are %d", cfg.Server.Port))
	}

	// --- Logging ---
	if cfg.Log.Level != "" && !validLogLevels[cfg.Log.Level] {
		errs = append(errs, fmt.Sprintf(
			"config: log.level '%s' is invalid; must be one of: trace, debug, info, warn, error",
			cfg.Log.Level))
	}
	if cfg.Log.Format != "" && !validLogFormats[cfg.Log.Format] {
		errs = append(errs, fmt.Sprintf(
			"config: log.format '%s' is invalid; must be one of: text, json", cfg.Log.Format))
	}

	// --- Window ---
	if cfg.Window.DefaultPreset != "" {
		p, err := daterange.ParsePreset(cfg.Window.DefaultPreset)
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf(
				"config: window.default_preset '%s' is not a known preset", cfg.Window.DefaultPreset))
		case p == daterange.Custom:
			errs = append(errs, "config: window.default_preset cannot be 'custom'")
		}
	}
	if cfg.Window.MaxDays < 0 {
		errs = append(errs, fmt.Sprintf("config: window.max_days must be positive, got %d", cfg.Window.MaxDays))
	}

	// --- Thresholds ---
	errs = append(errs, validateDurationTable("thresholds.lead_time", cfg.Thresholds.LeadTime)...)
	errs = append(errs, validateDurationTable("thresholds.mean_time_to_restore", cfg.Thresholds.MeanTimeToRestore)...)
	errs = append(errs, validateRateTable("thresholds.change_failure_rate", cfg.Thresholds.ChangeFailureRate)...)

	// --- Comparison and score ---
	if cfg.Comparison.Materiality < 0 {
		errs = append(errs, fmt.Sprintf(
			"config: comparison.materiality must not be negative, got %v", cfg.Comparison.Materiality))
	}
	if cfg.Comparison.MultiplierPercent < 0 {
		errs = append(errs, fmt.Sprintf(
			"config: comparison.multiplier_percent must not be negative, got %v", cfg.Comparison.MultiplierPercent))
	}
	if cfg.Score.Standard < 0 || cfg.Score.Standard > 10 {
		errs = append(errs, fmt.Sprintf(
			"config: score.standard must be between 0 and 10, got %v", cfg.Score.Standard))
	}

	// --- Notify ---
	if cfg.Notify.Type != "" && !validNotifyTypes[cfg.Notify.Type] {
		errs = append(errs, fmt.Sprintf(
			"config: notify.type '%s' is invalid; must be one of: slack, discord", cfg.Notify.Type))
	}
	if cfg.Notify.Type != "" && cfg.Notify.WebhookURL == "" {
		errs = append(errs, "config: notify.webhook_url is required when notify.type is set")
	}

	// --- Teams ---
	if len(cfg.Teams) == 0 {
		errs = append(errs, "config: teams requires at least one team")
	}
	seen := map[string]bool{}
	for i, t := range cfg.Teams {
		errs = append(errs, validateTeam(i, &t, seen)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePort(field string, port int) []string {
	if port < 0 || port > 65535 {
		return []string{fmt.Sprintf("config: %s must be between 1 and 65535, got %d", field, port)}
	}
	return nil
}

// validateDurationTable checks that set cutoffs are ascending. Unset tables
// use the standard cutoffs.
func validateDurationTable(prefix string, t DurationTable) []string {
	if t == (DurationTable{}) {
		return nil
	}
	var errs []string
	for _, c := range []struct {
		name string
		v    time.Duration
	}{{"elite", t.Elite}, {"high", t.High}, {"medium", t.Medium}} {
		if c.v <= 0 {
			errs = append(errs, fmt.Sprintf("config: %s.%s must be a positive duration", prefix, c.name))
		}
	}
	if len(errs) == 0 && (t.Elite > t.High || t.High > t.Medium) {
		errs = append(errs, fmt.Sprintf("config: %s cutoffs must be ascending (elite <= high <= medium)", prefix))
	}
	return errs
}

func validateRateTable(prefix string, t RateTable) []string {
	if t == (RateTable{}) {
		return nil
	}
	var errs []string
	for _, c := range []struct {
		name string
		v    float64
	}{{"elite", t.Elite}, {"high", t.High}, {"medium", t.Medium}} {
		if c.v < 0 || c.v > 100 {
			errs = append(errs, fmt.Sprintf("config: %s.%s must be between 0 and 100, got %v", prefix, c.name, c.v))
		}
	}
	if len(errs) == 0 && (t.Elite > t.High || t.High > t.Medium) {
		errs = append(errs, fmt.Sprintf("config: %s cutoffs must be ascending (elite <= high <= medium)", prefix))
	}
	return errs
}

// validateTeam checks a single team definition.
func validateTeam(idx int, t *TeamConfig, seen map[string]bool) []string {
	var errs []string
	prefix := fmt.Sprintf("config: teams[%d]", idx)

	if t.Name == "" {
		errs = append(errs, prefix+".name is required")
	} else if seen[t.Name] {
		errs = append(errs, fmt.Sprintf("%s.name '%s' is duplicated", prefix, t.Name))
	}
	seen[t.Name] = true

	for j, repo := range t.Repos {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			errs = append(errs, fmt.Sprintf("%s.repos[%d] '%s' must be in owner/name form", prefix, j, repo))
		}
	}
	if t.RecoveryFromDeployments && len(t.Repos) == 0 {
		errs = append(errs, prefix+".recovery_from_deployments requires at least one repo")
	}
	return errs
}
