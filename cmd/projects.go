package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/config"
	"github.com/theirongolddev/timeq/internal/pipeline"
	"github.com/theirongolddev/timeq/internal/query"
)

var projectsCmd = &cobra.Command{
	Use:   "projects [QUERY...]",
	Short: "Hours and invoicing per project for a query's window",
	Args:  cobra.ArbitraryArgs,
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(_ *cobra.Command, args []string) error {
	text, err := queryText(args)
	if err != nil {
		return err
	}
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
	if len(result.Entries) == 0 {
		fmt.Println("\n  No entries found.")
		return nil
	}

	pd := pipeline.Execute(spec, result.Entries, config.ExecutorConfig(cfg, now))
	if len(pd.Projects) == 0 {
		fmt.Println("\n  No entries in the selected period.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PROJECTS  %s", spec.Period)))
	fmt.Println()

	rows := make([][]string, 0, len(pd.Projects))
	for _, ps := range pd.Projects {
		name := ps.Project
		if name == "" {
			name = "(none)"
		}
		rows = append(rows, []string{
			truncate(name, 24),
			cli.FormatNumber(int64(ps.Entries)),
			cli.FormatHours(ps.Hours),
			cli.FormatMoney(cfg.General.CurrencySymbol, ps.Invoiced),
			cli.FormatPercent(ps.Share),
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Entries", "Hours", "Invoiced", "Share"},
		Rows:    rows,
	}))
	return nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}
