package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/pipeline"
	"github.com/theirongolddev/timeq/internal/query"
	"github.com/theirongolddev/timeq/internal/store"
)

var (
	flagQueryFile string
	flagJSON      bool
	flagNoColor   bool
)

var runCmd = &cobra.Command{
	Use:   "run [QUERY...]",
	Short: "Run a query against the entry files (default command)",
	Example: `  timeq run "WHERE project = acme VIEW full CHART budget"
  timeq run -f report.tq --json`,
	Args: cobra.ArbitraryArgs,
	RunE: runQuery,
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addRunFlags(c *cobra.Command) {
	c.Flags().StringVarP(&flagQueryFile, "file", "f", "", "Read the query from a file (- for stdin)")
	c.Flags().BoolVar(&flagJSON, "json", false, "Print the report as JSON")
	c.Flags().BoolVar(&flagNoColor, "no-color", false, "Disable colors in bars")
}

func queryText(args []string) (string, error) {
	if flagQueryFile == "" {
		return strings.Join(args, " "), nil
	}
	if len(args) > 0 {
		return "", fmt.Errorf("pass the query as arguments or with --file, not both")
	}
	var (
		data []byte
		err  error
	)
	if flagQueryFile == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(flagQueryFile)
	}
	if err != nil {
		return "", fmt.Errorf("reading query: %w", err)
	}
	return string(data), nil
}

func runQuery(_ *cobra.Command, args []string) error {
	text, err := queryText(args)
	if err != nil {
		return err
	}

	// Compile before touching the data so syntax errors are instant.
	spec, err := query.Compile(text)
	if err != nil {
		fmt.Fprint(os.Stderr, cli.RenderQueryError(text, err))
		return shownError{err}
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

	pd := report(spec, result, config.ExecutorConfig(cfg, now))
	return printReport(os.Stdout, spec, pd, cfg)
}

// report executes spec, reusing a stored result when the same query ran
// against the same files, day and settings before.
func report(spec query.Spec, result *pipeline.LoadResult, exec pipeline.Config) model.ProcessedData {
	if flagNoCache {
		return pipeline.Execute(spec, result.Entries, exec)
	}

	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		slog.Debug("result cache unavailable", "err", err)
		return pipeline.Execute(spec, result.Entries, exec)
	}
	defer cache.Close()

	key := resultKey(result.Version, exec)
	canonical := spec.String()
	if pd, ok, err := cache.LoadResult(canonical, key); err == nil && ok {
		slog.Debug("result cache hit", "query", canonical, "snapshot", key)
		return pd
	} else if err != nil {
		slog.Warn("reading stored result", "err", err)
	}

	pd := pipeline.Execute(spec, result.Entries, exec)
	if err := cache.SaveResult(canonical, key, pd); err != nil {
		slog.Warn("storing result", "err", err)
	}
	if n, err := cache.PruneResults(key); err == nil && n > 0 {
		slog.Debug("pruned stale results", "count", n)
	}
	return pd
}

// resultKey identifies everything besides the query that a report depends on.
func resultKey(version string, exec pipeline.Config) string {
	deadline := ""
	if exec.Deadline != nil {
		deadline = exec.Deadline.Format("2006-01-02")
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%g|%s|%g|%g|%s|%d|%t",
		version, exec.Now.Format("2006-01-02"), exec.HoursPerWorkday, exec.ProjectType,
		exec.BudgetHours, exec.DefaultRate, deadline, exec.Order, exec.IncludeEdgeMonths)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func printReport(w io.Writer, spec query.Spec, pd model.ProcessedData, cfg config.Config) error {
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pd)
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, cli.RenderReport(spec, pd, cli.Options{
		Currency:    cfg.General.CurrencySymbol,
		DefaultRate: cfg.Project.DefaultRate,
		NoColor:     flagNoColor,
	}))
	return nil
}
