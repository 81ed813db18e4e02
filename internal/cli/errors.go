package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theirongolddev/timeq/internal/query"
)

// ErrorPosition extracts the 1-based position carried by a query error.
func ErrorPosition(err error) (line, col int, ok bool) {
	var pe *query.ParseError
	if errors.As(err, &pe) {
		return pe.Line, pe.Column, pe.Line > 0
	}
	var se *query.SemanticError
	if errors.As(err, &se) {
		return se.Line, se.Column, se.Line > 0
	}
	return 0, 0, false
}

// RenderQueryError shows err under the offending line of text with a caret
// at the reported column.
func RenderQueryError(text string, err error) string {
	var b strings.Builder
	b.WriteString(warnStyle.Render("  " + err.Error()))
	b.WriteString("\n")

	line, col, ok := ErrorPosition(err)
	if !ok {
		return b.String()
	}
	lines := strings.Split(text, "\n")
	if line > len(lines) {
		return b.String()
	}
	src := strings.ReplaceAll(lines[line-1], "\t", " ")
	fmt.Fprintf(&b, "  %4d | %s\n", line, src)
	pad := col - 1
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(&b, "       | %s%s\n", strings.Repeat(" ", pad), warnStyle.Render("^"))
	return b.String()
}
