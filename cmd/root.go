// Package cmd implements the timeq CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/pipeline"
	"github.com/theirongolddev/timeq/internal/store"
)

var (
	flagDataDir string
	flagNoCache bool
	flagQuiet   bool
	flagVerbose bool
	flagNow     string
)

var rootCmd = &cobra.Command{
	Use:   "timeq",
	Short: "Query language for time tracking reports",
	Long: `Run queries like

  WHERE year = 2024 AND project = acme
  VIEW full CHART trend PERIOD last-12-months

against YAML/JSON time entry files.`,
	Args:              cobra.ArbitraryArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runQuery,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var shown shownError
		if !errors.As(err, &shown) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// shownError marks an error that was already rendered for the user.
type shownError struct{ error }

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDataDir, "data-dir", "d", "", "Entry directory (default: config, $TIMEQ_DATA_DIR, ~/timeq)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse everything")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "Evaluate windows as of this date (YYYY-MM-DD)")
	addRunFlags(rootCmd)
}

func setup(_ *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	var out io.Writer = os.Stderr
	if flagQuiet && !flagVerbose {
		out = io.Discard
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig reads and validates the config file. --data-dir wins over
// every other source.
func loadConfig() (config.Config, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, "", err
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, "", fmt.Errorf("invalid config %s: %w", config.ConfigPath(), err)
	}
	dir := flagDataDir
	if dir == "" {
		dir = config.DataDir(cfg)
	}
	return cfg, dir, nil
}

// reportTime is --now or the wall clock.
func reportTime() (time.Time, error) {
	if flagNow == "" {
		return time.Now(), nil
	}
	t, err := time.ParseInLocation("2006-01-02", flagNow, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now %q: expected YYYY-MM-DD", flagNow)
	}
	return t.Add(12 * time.Hour), nil
}

// loadData is the shared data loading path used by all commands.
// Uses SQLite cache when available for fast subsequent runs.
func loadData(dataDir string) (*pipeline.LoadResult, error) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", dataDir)
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%50 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
		}
	}

	if !flagNoCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			slog.Debug("cache unavailable", "path", pipeline.CachePath(), "err", err)
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Cache unavailable, doing full parse\n")
			}
		} else {
			defer cache.Close()

			cr, err := pipeline.LoadWithCache(dataDir, cache, progressFn)
			if err != nil {
				slog.Warn("cached load failed", "err", err)
			} else {
				if !flagQuiet && cr.TotalFiles > 0 {
					if cr.Reparsed == 0 {
						fmt.Fprintf(os.Stderr, "\r  Loaded %s entries from cache (%d projects)    \n",
							cli.FormatNumber(int64(len(cr.Entries))), cr.ProjectCount)
					} else {
						fmt.Fprintf(os.Stderr, "\r  %s cached + %d reparsed files (%d projects)    \n",
							cli.FormatNumber(int64(cr.CacheHits)), cr.Reparsed, cr.ProjectCount)
					}
				}
				reportLoadProblems(&cr.LoadResult)
				return &cr.LoadResult, nil
			}
		}
	}

	result, err := pipeline.Load(dataDir, progressFn)
	if err != nil {
		return nil, err
	}
	if !flagQuiet && result.TotalFiles > 0 {
		fmt.Fprintf(os.Stderr, "\r  Parsed %s entries across %d files    \n",
			cli.FormatNumber(int64(len(result.Entries))), result.ParsedFiles)
	}
	reportLoadProblems(result)
	return result, nil
}

func reportLoadProblems(r *pipeline.LoadResult) {
	if r.FileErrors > 0 || r.ParseErrors > 0 {
		slog.Warn("some entries were skipped", "bad_files", r.FileErrors, "bad_entries", r.ParseErrors)
	}
}
