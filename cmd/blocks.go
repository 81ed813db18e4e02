package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/query"
	"github.com/theirongolddev/timeq/internal/source"
)

var blocksCmd = &cobra.Command{
	Use:   "blocks FILE",
	Short: "Run every ```timeq block embedded in a markdown file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlocks,
}

func init() {
	blocksCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "Disable colors in bars")
	rootCmd.AddCommand(blocksCmd)
}

func runBlocks(_ *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	blocks, err := source.ExtractBlocks(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if len(blocks) == 0 {
		fmt.Printf("\n  No %s blocks in %s.\n", source.BlockTag, args[0])
		return nil
	}

	// Compile everything first so one bad block fails fast.
	specs := make([]query.Spec, len(blocks))
	var failed error
	for i, b := range blocks {
		spec, err := query.Compile(b.Query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s: block at line %d\n", args[0], b.Line)
			fmt.Fprint(os.Stderr, cli.RenderQueryError(b.Query, err))
			failed = shownError{err}
			continue
		}
		specs[i] = spec
	}
	if failed != nil {
		return failed
	}

	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}
	now, err := reportTime()
	if err != nil {
		return err
	}
	result, err := loadData(dataDir)
	if err != nil {
		return err
	}
	exec := config.ExecutorConfig(cfg, now)

	for i, b := range blocks {
		fmt.Printf("\n  -- %s:%d\n", args[0], b.Line)
		pd := report(specs[i], result, exec)
		if err := printReport(os.Stdout, specs[i], pd, cfg); err != nil {
			return err
		}
	}
	return nil
}
