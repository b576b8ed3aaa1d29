package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/score"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort          = 3000
	DefaultWebhookPort   = 8080
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultIncidentLabel = "incident"
)

// envVarPattern matches ${VAR_NAME} patterns in config content.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig reads a YAML configuration file, substitutes environment
// variables, applies defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is LoadConfig without the file read.
func Parse(data []byte) (*Config, error) {
	// Check for unresolved variables: any ${VAR} where the env var is not set.
	if err := validateEnvVars(data); err != nil {
		return nil, err
	}

	resolved := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		varName := match[2 : len(match)-1] // strip ${ and }
		return os.Getenv(varName)
	})

	var cfg Config
	if err := yaml.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse YAML: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyDefaults fills zero values. Threshold tables are left zero here and
// fall back to the standard cutoffs on conversion.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.WebhookPort == 0 {
		cfg.Server.WebhookPort = DefaultWebhookPort
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Window.DefaultPreset == "" {
		cfg.Window.DefaultPreset = string(daterange.TwoWeeks)
	}
	if cfg.Window.MaxDays == 0 {
		cfg.Window.MaxDays = daterange.DefaultMaxDays
	}
	if cfg.Comparison.Materiality == 0 {
		cfg.Comparison.Materiality = compare.DefaultMateriality
	}
	if cfg.Comparison.MultiplierPercent == 0 {
		cfg.Comparison.MultiplierPercent = compare.DefaultMultiplierPercent
	}
	if cfg.Score.Standard == 0 {
		cfg.Score.Standard = score.DefaultStandard
	}
	if cfg.GitHub.IncidentLabel == "" {
		cfg.GitHub.IncidentLabel = DefaultIncidentLabel
	}
}

// validateEnvVars checks that all ${VAR} references in raw data
// correspond to environment variables that are actually set.
func validateEnvVars(data []byte) error {
	matches := envVarPattern.FindAllStringSubmatch(string(data), -1)
	var unresolved []string
	seen := map[string]bool{}
	for _, m := range matches {
		varName := m[1]
		if seen[varName] {
			continue
		}
		seen[varName] = true
		if _, ok := os.LookupEnv(varName); !ok {
			unresolved = append(unresolved, "${"+varName+"}")
		}
	}
	if len(unresolved) > 0 {
		return fmt.Errorf("config: unresolved variables found: %s",
			strings.Join(unresolved, ", "))
	}
	return nil
}
