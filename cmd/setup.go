package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/source"
	"github.com/theirongolddev/timeq/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	// Load existing config or defaults
	cfg, _ := config.Load()

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = config.DataDir(cfg)
	}
	files, _ := source.ScanDir(dataDir)

	vals := tui.SetupValuesFrom(cfg)
	form := tui.NewSetupForm(len(files), dataDir, &vals)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return err
	}

	updated, err := vals.Apply(cfg)
	if err != nil {
		return err
	}
	if err := config.Save(updated); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `timeq setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
