// Package source discovers and decodes time entry files.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theirongolddev/timeq/internal/model"
)

// ParseResult holds the output of parsing a single entry file.
type ParseResult struct {
	Entries     []model.TimeEntry
	ParseErrors int
	Err         error
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// ParseFile reads one entry file. Individual entries that cannot be
// decoded (bad date, negative hours) are counted in ParseErrors and
// skipped; Err is set only when the file as a whole is unreadable.
func ParseFile(df DiscoveredFile) ParseResult {
	data, err := os.ReadFile(df.Path)
	if err != nil {
		return ParseResult{Err: err}
	}

	var doc rawFile
	switch df.Format {
	case FormatJSONL:
		return parseJSONL(df, data)
	case FormatJSON:
		doc, err = decodeJSON(data)
	default:
		doc, err = decodeYAML(data)
	}
	if err != nil {
		return ParseResult{Err: fmt.Errorf("decoding %s: %w", df.Path, err)}
	}

	var result ParseResult
	for _, raw := range doc.Entries {
		e, err := toEntry(raw, df, doc)
		if err != nil {
			result.ParseErrors++
			continue
		}
		result.Entries = append(result.Entries, e)
	}
	return result
}

// decodeYAML accepts either a mapping with an entries key or a bare list.
func decodeYAML(data []byte) (rawFile, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return rawFile{}, err
	}
	if len(node.Content) == 0 {
		return rawFile{}, nil
	}

	var doc rawFile
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		err := root.Decode(&doc.Entries)
		return doc, err
	}
	err := root.Decode(&doc)
	return doc, err
}

func decodeJSON(data []byte) (rawFile, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return rawFile{}, nil
	}

	var doc rawFile
	if trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &doc.Entries)
		return doc, err
	}
	err := json.Unmarshal(trimmed, &doc)
	return doc, err
}

func parseJSONL(df DiscoveredFile, data []byte) ParseResult {
	var result ParseResult

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw rawEntry
		if err := json.Unmarshal(line, &raw); err != nil {
			result.ParseErrors++
			continue
		}
		e, err := toEntry(raw, df, rawFile{})
		if err != nil {
			result.ParseErrors++
			continue
		}
		result.Entries = append(result.Entries, e)
	}
	if err := scanner.Err(); err != nil {
		result.Err = err
	}
	return result
}

// toEntry applies defaults in order: the entry's own value, then the
// file-level value, then the directory project.
func toEntry(raw rawEntry, df DiscoveredFile, doc rawFile) (model.TimeEntry, error) {
	date, err := ParseDate(raw.Date)
	if err != nil {
		return model.TimeEntry{}, err
	}
	if raw.Hours < 0 {
		return model.TimeEntry{}, fmt.Errorf("negative hours %v", raw.Hours)
	}

	e := model.TimeEntry{
		Date:    date,
		Hours:   raw.Hours,
		Rate:    raw.Rate,
		Project: firstNonEmpty(raw.Project, raw.Client, doc.Project, df.Project),
		Notes:   raw.Notes,
		Source:  df.Path,
	}
	if e.Rate == nil && doc.Rate != nil {
		r := *doc.Rate
		e.Rate = &r
	}
	if e.Rate != nil && *e.Rate < 0 {
		return model.TimeEntry{}, fmt.Errorf("negative rate %v", *e.Rate)
	}
	return e, nil
}

// ParseDate accepts YYYY-MM-DD and a few timestamp layouts and returns the
// calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
