package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testdataDir returns the absolute path to the testdata directory.
func testdataDir(t *testing.T) string {
	t.Helper()
	// Tests run from the package directory; testdata is at repo root.
	dir, err := filepath.Abs(filepath.Join("..", "..", "testdata"))
	require.NoError(t, err)
	return dir
}

func setEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "test-github-token")
	t.Setenv("PULSE_WEBHOOK_SECRET", "test-secret")
}

func TestLoadValidConfig(t *testing.T) {
	setEnvVars(t)
	cfg, err := LoadConfig(filepath.Join(testdataDir(t), "valid.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "test-secret", cfg.Server.WebhookSecret, "env var substitution")
	assert.Equal(t, "test-github-token", cfg.GitHub.Token)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "oneMonth", cfg.Window.DefaultPreset)
	assert.Equal(t, 24*time.Hour, cfg.Thresholds.LeadTime.Elite)
	assert.Equal(t, 15.0, cfg.Thresholds.ChangeFailureRate.Medium)
	assert.Equal(t, NotifyConfig{Type: "slack", WebhookURL: "https://hooks.slack.example/services/T000/B000"}, cfg.Notify)
	require.Len(t, cfg.Teams, 2)
	assert.Equal(t, []string{"acme/payments", "acme/ledger"}, cfg.Teams[0].Repos)
	assert.True(t, cfg.Teams[1].RecoveryFromDeployments)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(testdataDir(t), "minimal.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultWebhookPort, cfg.Server.WebhookPort)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, string(daterange.TwoWeeks), cfg.Window.DefaultPreset)
	assert.Equal(t, daterange.DefaultMaxDays, cfg.Window.MaxDays)
	assert.Equal(t, compare.DefaultMateriality, cfg.Comparison.Materiality)
	assert.Equal(t, compare.DefaultMultiplierPercent, cfg.Comparison.MultiplierPercent)
	assert.Equal(t, 6.3, cfg.Score.Standard)
	assert.Equal(t, DefaultIncidentLabel, cfg.GitHub.IncidentLabel)
	assert.Equal(t, metrics.DefaultThresholds(), cfg.ClassifierThresholds())
}

func TestLoadInvalidAccumulatesErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(testdataDir(t), "invalid_values.yaml"))
	require.Error(t, err)

	for _, want := range []string{
		"server.port and server.webhook_port must differ",
		"log.level 'verbose'",
		"window.default_preset 'lastDecade'",
		"thresholds.mean_time_to_restore cutoffs must be ascending",
		"teams[0].repos[0] 'payments'",
		"teams[1].name 'payments' is duplicated",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadUnresolvedEnvVar(t *testing.T) {
	os.Unsetenv("PULSE_TEST_UNSET_TOKEN")
	_, err := LoadConfig(filepath.Join(testdataDir(t), "missing_env.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "${PULSE_TEST_UNSET_TOKEN}")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read file")
}

func TestParseBadYAML(t *testing.T) {
	_, err := Parse([]byte("teams: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestClassifierThresholdsOverride(t *testing.T) {
	cfg, err := Parse([]byte(`
thresholds:
  mean_time_to_restore: {elite: 30m, high: 4h, medium: 48h}
teams:
  - name: platform
`))
	require.NoError(t, err)

	th := cfg.ClassifierThresholds()
	assert.Equal(t, (30 * time.Minute).Seconds(), th.MeanTimeToRestore.Elite.Limit)
	assert.False(t, th.MeanTimeToRestore.Elite.Inclusive)
	assert.Equal(t, metrics.DefaultThresholds().LeadTime, th.LeadTime)

	tier, err := metrics.NewClassifier(th).Classify(metrics.MeanTimeToRestore, ptr((2 * time.Hour).Seconds()))
	require.NoError(t, err)
	assert.Equal(t, metrics.High, tier)
}

func TestTeamLookups(t *testing.T) {
	setEnvVars(t)
	cfg, err := LoadConfig(filepath.Join(testdataDir(t), "valid.yaml"))
	require.NoError(t, err)

	team := cfg.Team("payments")
	require.NotNil(t, team)
	assert.Nil(t, cfg.Team("unknown"))

	assert.Equal(t, metrics.Sources{Deployments: true, Incidents: true}, team.Sources())
	assert.True(t, team.TracksEnvironment("Production"))
	assert.False(t, team.TracksEnvironment("staging"))
	assert.True(t, cfg.Team("search").TracksEnvironment("staging"))

	assert.Equal(t, "payments", cfg.TeamForRepo("ACME/ledger").Name)
	assert.Equal(t, "search", cfg.TeamForRepo("acme/search").Name)
	assert.Nil(t, cfg.TeamForRepo("acme/other"))

	assert.Equal(t, daterange.Selection{Preset: daterange.OneMonth}, cfg.DefaultSelection())
	assert.Equal(t, 95, cfg.Resolver().MaxDays)
	assert.Equal(t, 0.5, cfg.Comparator().Materiality())
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams:\n  - name: one\n"), 0o644))

	log, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, log, func(cfg *Config) {
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	require.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "config: watching for changes" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("teams:\n  - name: two\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "two", cfg.Teams[0].Name)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchFollowsRenameSaves(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pulse.yaml")
	require.NoError(t, os.WriteFile(path, []byte("teams:\n  - name: one\n"), 0o644))

	log, hook := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, log, func(cfg *Config) {
			select {
			case reloaded <- cfg.Teams[0].Name:
			default:
			}
		})
	}()

	require.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Message == "config: watching for changes" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	// Editors write a temporary file and rename it over the original.
	saveByRename := func(name string) {
		tmp := filepath.Join(dir, ".pulse.yaml.swp")
		require.NoError(t, os.WriteFile(tmp, []byte("teams:\n  - name: "+name+"\n"), 0o644))
		require.NoError(t, os.Rename(tmp, path))
	}
	waitFor := func(name string) {
		t.Helper()
		timeout := time.After(5 * time.Second)
		for {
			select {
			case got := <-reloaded:
				if got == name {
					return
				}
			case <-timeout:
				t.Fatalf("config %q was not reloaded", name)
			}
		}
	}

	saveByRename("two")
	waitFor("two")
	saveByRename("three")
	waitFor("three")

	cancel()
	assert.NoError(t, <-done)
}

func ptr(v float64) *float64 { return &v }
