package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/pipeline"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Printf("  Cache:       %s\n", pipeline.CachePath())
	fmt.Println()

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = config.DataDir(cfg)
	}

	fmt.Println("  [General]")
	fmt.Printf("    Data directory:      %s\n", dataDir)
	fmt.Printf("    Hours per workday:   %s\n", cli.FormatHours(cfg.General.HoursPerWorkday))
	fmt.Printf("    Currency symbol:     %s\n", cfg.General.CurrencySymbol)
	fmt.Printf("    Include edge months: %v\n", cfg.General.IncludeEdgeMonths)
	fmt.Printf("    Month order:         %s\n", cfg.General.MonthOrder)
	fmt.Println()

	fmt.Println("  [Project]")
	fmt.Printf("    Type:         %s\n", cfg.Project.Type)
	if cfg.Project.BudgetHours > 0 {
		fmt.Printf("    Budget:       %s\n", cli.FormatHours(cfg.Project.BudgetHours))
	} else {
		fmt.Println("    Budget:       not set")
	}
	if cfg.Project.DefaultRate > 0 {
		fmt.Printf("    Default rate: %s/h\n", cli.FormatMoney(cfg.General.CurrencySymbol, cfg.Project.DefaultRate))
	} else {
		fmt.Println("    Default rate: not set")
	}
	if cfg.Project.Deadline != "" {
		fmt.Printf("    Deadline:     %s\n", cfg.Project.Deadline)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:  %s\n", cfg.Daemon.Addr)
	fmt.Printf("    Interval: %s\n", config.PollInterval(cfg))
	fmt.Println()

	if err := config.Validate(cfg); err != nil {
		fmt.Printf("  Problems:\n    %v\n\n", err)
	}
	fmt.Println("  Run `timeq setup` to reconfigure.")
	return nil
}
