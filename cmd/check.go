package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/timeq/internal/cli"
	"github.com/theirongolddev/timeq/internal/query"
)

var checkCmd = &cobra.Command{
	Use:   "check [QUERY...]",
	Short: "Parse and resolve a query without reading any data",
	Args:  cobra.ArbitraryArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&flagQueryFile, "file", "f", "", "Read the query from a file (- for stdin)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, args []string) error {
	text, err := queryText(args)
	if err != nil {
		return err
	}
	if err := checkQuery(os.Stdout, text); err != nil {
		fmt.Fprint(os.Stderr, cli.RenderQueryError(text, err))
		return shownError{err}
	}
	return nil
}

// checkQuery writes the resolved spec and node counts for text.
func checkQuery(w io.Writer, text string) error {
	ast, err := query.Parse(text)
	if err != nil {
		return err
	}
	if err := query.Validate(ast); err != nil {
		return err
	}
	spec, err := query.Interpret(ast)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "  Canonical: %s\n", spec)
	fmt.Fprintf(w, "  Clauses:   %d (%d conditions)\n\n", len(ast.Clauses), len(query.FindAll[*query.Condition](ast)))
	fmt.Fprintf(w, "  View:      %s\n", spec.View)
	if spec.ChartType != query.ChartNone {
		fmt.Fprintf(w, "  Chart:     %s\n", spec.ChartType)
	}
	fmt.Fprintf(w, "  Period:    %s\n", spec.Period)
	fmt.Fprintf(w, "  Size:      %s\n", spec.Size)
	fmt.Fprintf(w, "  Show:      %s\n", strings.Join(spec.Show, ", "))
	if len(spec.Where) == 0 {
		fmt.Fprintln(w, "  Where:     (none)")
	}
	for _, field := range spec.Where.Fields() {
		for _, p := range spec.Where[field] {
			fmt.Fprintf(w, "  Where:     %s\n", p)
		}
	}

	stats := query.Stats(ast)
	kinds := make([]query.NodeKind, 0, len(stats))
	for k := range stats {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	rows := make([][]string, 0, len(kinds))
	for _, k := range kinds {
		rows = append(rows, []string{k.String(), cli.FormatNumber(int64(stats[k]))})
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, cli.RenderTable(cli.Table{Title: "AST nodes", Headers: []string{"Kind", "Count"}, Rows: rows}))
	return nil
}
