package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/pipeline"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if Exists() {
		t.Error("Exists() = true without a file")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := DefaultConfig()
	cfg.General.DataDir = "/srv/hours"
	cfg.Project = ProjectConfig{Type: "retainer", BudgetHours: 120, DefaultRate: 95, Deadline: "2024-12-31"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !Exists() {
		t.Fatal("config file not written")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "timeq", "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	body := "[project]\ntype = \"fixed-hours\"\nbudget_hours = 300\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Project.Type != "fixed-hours" || cfg.Project.BudgetHours != 300 {
		t.Errorf("project = %+v", cfg.Project)
	}
	if cfg.General.HoursPerWorkday != 8 || cfg.Daemon.Interval != "15s" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_Malformed(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	path := filepath.Join(dir, "timeq", "config.toml")
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte("[general\n"), 0o600)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero workday", func(c *Config) { c.General.HoursPerWorkday = 0 }, "hours_per_workday"},
		{"bad project type", func(c *Config) { c.Project.Type = "monthly" }, "project.type"},
		{"negative budget", func(c *Config) { c.Project.BudgetHours = -1 }, "budget_hours"},
		{"negative rate", func(c *Config) { c.Project.DefaultRate = -5 }, "default_rate"},
		{"bad deadline", func(c *Config) { c.Project.Deadline = "12/31/2024" }, "deadline"},
		{"bad interval", func(c *Config) { c.Daemon.Interval = "soon" }, "interval"},
		{"bad order", func(c *Config) { c.General.MonthOrder = "random" }, "month_order"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := Validate(cfg)
			if tt.want == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.DataDir = "/from/config"

	t.Setenv(DataDirEnv, "")
	if got := DataDir(cfg); got != "/from/config" {
		t.Errorf("DataDir = %q, want config value", got)
	}

	t.Setenv(DataDirEnv, "/from/env")
	if got := DataDir(cfg); got != "/from/env" {
		t.Errorf("DataDir = %q, want env value", got)
	}
}

func TestExecutorConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.HoursPerWorkday = 7.5
	cfg.General.MonthOrder = "oldest"
	cfg.General.IncludeEdgeMonths = true
	cfg.Project = ProjectConfig{Type: "retainer", BudgetHours: 100, DefaultRate: 80, Deadline: "2024-06-30"}
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	pc := ExecutorConfig(cfg, now)
	if pc.HoursPerWorkday != 7.5 || pc.ProjectType != model.ProjectRetainer ||
		pc.BudgetHours != 100 || pc.DefaultRate != 80 || !pc.IncludeEdgeMonths {
		t.Errorf("pipeline config = %+v", pc)
	}
	if pc.Order != pipeline.OldestFirst {
		t.Errorf("Order = %v, want OldestFirst", pc.Order)
	}
	if !pc.Now.Equal(now) {
		t.Errorf("Now = %v", pc.Now)
	}
	if pc.Deadline == nil || !pc.Deadline.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Deadline = %v", pc.Deadline)
	}

	if def := ExecutorConfig(DefaultConfig(), now); def.Order != pipeline.NewestFirst || def.Deadline != nil {
		t.Errorf("default pipeline config = %+v", def)
	}
}

func TestPollInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Daemon.Interval = "2m"
	if got := PollInterval(cfg); got != 2*time.Minute {
		t.Errorf("PollInterval = %v", got)
	}
	cfg.Daemon.Interval = ""
	if got := PollInterval(cfg); got != 15*time.Second {
		t.Errorf("PollInterval fallback = %v", got)
	}
}
