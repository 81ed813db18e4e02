// Package config loads and saves the timeq TOML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/pipeline"
)

// DataDirEnv overrides general.data_dir when set.
const DataDirEnv = "TIMEQ_DATA_DIR"

const deadlineLayout = "2006-01-02"

// Config holds all timeq configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Project    ProjectConfig    `toml:"project"`
	Appearance AppearanceConfig `toml:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir           string  `toml:"data_dir,omitempty"`
	HoursPerWorkday   float64 `toml:"hours_per_workday"`
	CurrencySymbol    string  `toml:"currency_symbol"`
	IncludeEdgeMonths bool    `toml:"include_edge_months"`
	MonthOrder        string  `toml:"month_order,omitempty"`
}

// ProjectConfig describes the billing model reports are computed against.
type ProjectConfig struct {
	Type        string  `toml:"type"`
	BudgetHours float64 `toml:"budget_hours,omitempty"`
	DefaultRate float64 `toml:"default_rate,omitempty"`
	// Deadline is a YYYY-MM-DD date.
	Deadline string `toml:"deadline,omitempty"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DaemonConfig holds `timeq serve` defaults.
type DaemonConfig struct {
	Addr     string `toml:"addr"`
	Interval string `toml:"interval"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			HoursPerWorkday: 8,
			CurrencySymbol:  "$",
			MonthOrder:      "newest",
		},
		Project: ProjectConfig{
			Type: string(model.ProjectHourly),
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:     "127.0.0.1:8477",
			Interval: "15s",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "timeq")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "timeq")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultDataDir is used when neither the config nor the environment names
// a data directory.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "timeq")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// DataDir returns the entry directory: the environment first, then the
// config, then the default.
func DataDir(cfg Config) string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	if cfg.General.DataDir != "" {
		return expandHome(cfg.General.DataDir)
	}
	return DefaultDataDir()
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Validate reports every problem with cfg at once.
func Validate(cfg Config) error {
	var errs []error
	if cfg.General.HoursPerWorkday <= 0 {
		errs = append(errs, fmt.Errorf("general.hours_per_workday must be positive, got %v", cfg.General.HoursPerWorkday))
	}
	switch cfg.General.MonthOrder {
	case "", "newest", "oldest":
	default:
		errs = append(errs, fmt.Errorf("general.month_order must be newest or oldest, got %q", cfg.General.MonthOrder))
	}
	if !model.ProjectType(cfg.Project.Type).Valid() {
		errs = append(errs, fmt.Errorf("project.type %q is not one of hourly, fixed-hours, retainer", cfg.Project.Type))
	}
	if cfg.Project.BudgetHours < 0 {
		errs = append(errs, errors.New("project.budget_hours must not be negative"))
	}
	if cfg.Project.DefaultRate < 0 {
		errs = append(errs, errors.New("project.default_rate must not be negative"))
	}
	if _, err := deadline(cfg); err != nil {
		errs = append(errs, err)
	}
	if cfg.Daemon.Interval != "" {
		if d, err := time.ParseDuration(cfg.Daemon.Interval); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("daemon.interval %q is not a positive duration", cfg.Daemon.Interval))
		}
	}
	return errors.Join(errs...)
}

func deadline(cfg Config) (*time.Time, error) {
	if cfg.Project.Deadline == "" {
		return nil, nil
	}
	t, err := time.Parse(deadlineLayout, cfg.Project.Deadline)
	if err != nil {
		return nil, fmt.Errorf("project.deadline %q is not a YYYY-MM-DD date", cfg.Project.Deadline)
	}
	return &t, nil
}

// PollInterval returns daemon.interval, falling back to 15s.
func PollInterval(cfg Config) time.Duration {
	if d, err := time.ParseDuration(cfg.Daemon.Interval); err == nil && d > 0 {
		return d
	}
	return 15 * time.Second
}

// ExecutorConfig maps cfg onto the executor's inputs. cfg should already
// have passed Validate; an unparsable deadline is ignored.
func ExecutorConfig(cfg Config, now time.Time) pipeline.Config {
	pc := pipeline.Config{
		HoursPerWorkday:   cfg.General.HoursPerWorkday,
		ProjectType:       model.ProjectType(cfg.Project.Type),
		BudgetHours:       cfg.Project.BudgetHours,
		DefaultRate:       cfg.Project.DefaultRate,
		Now:               now,
		IncludeEdgeMonths: cfg.General.IncludeEdgeMonths,
	}
	if cfg.General.MonthOrder == "oldest" {
		pc.Order = pipeline.OldestFirst
	}
	if d, err := deadline(cfg); err == nil {
		pc.Deadline = d
	}
	return pc
}
