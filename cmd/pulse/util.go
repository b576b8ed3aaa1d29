package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rigdev/pulse/internal/adapter/git"
	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/logging"
	"github.com/rigdev/pulse/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// initConfig binds PULSE_* environment variables and loads the env file.
func initConfig() {
	viper.SetEnvPrefix("PULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Existing environment variables win over the file.
	if envFile := viper.GetString("env-file"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", envFile, err)
		}
	}
}

func defaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pulse", "pulse.db")
}

// dbPath picks --db, then storage.path, then the default.
func dbPath(cfg *config.Config) string {
	path := viper.GetString("db")
	if path == "" && cfg != nil {
		path = cfg.Storage.Path
	}
	if path == "" {
		return defaultDBPath()
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, rest)
	}
	return path
}

func loadConfig() (*config.Config, error) {
	return config.LoadConfig(viper.GetString("config"))
}

// loadOptionalConfig returns nil when the config file does not exist.
func loadOptionalConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return config.LoadConfig(path)
}

// newLogger applies --log-level and --log-format over the config.
func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	level, format := config.DefaultLogLevel, config.DefaultLogFormat
	if cfg != nil {
		level, format = cfg.Log.Level, cfg.Log.Format
	}
	if v := viper.GetString("log-level"); v != "" {
		level = v
	}
	if v := viper.GetString("log-format"); v != "" {
		format = v
	}
	return logging.New(level, format)
}

// env is what most commands need.
type env struct {
	cfg *config.Config
	log *logrus.Logger
	db  *storage.DB
}

func setup() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	db, err := storage.Open(dbPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) currentConfig() *config.Config {
	return e.cfg
}

func (e *env) Close() error {
	return e.db.Close()
}

// newSource returns the GitHub adapter.
func newSource(cfg *config.Config) (git.Source, error) {
	gh, err := git.NewGitHub(cfg.GitHub.Token, cfg.GitHub.BaseURL)
	if err != nil {
		return nil, err
	}
	return gh, nil
}

// selectionFlags reads --preset, --start and --end. No flags means nil.
func selectionFlags(cmd *cobra.Command) (*daterange.Selection, error) {
	preset, _ := cmd.Flags().GetString("preset")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	if preset == "" && start == "" && end == "" {
		return nil, nil
	}
	sel, err := daterange.ParseSelection(preset, start, end)
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

func formatDay(w daterange.Window) string {
	return fmt.Sprintf("%s .. %s", w.Start.Format(daterange.DateKeyLayout), w.End.Format(daterange.DateKeyLayout))
}
