package source

import (
	"os"
	"path/filepath"
	"strings"
)

// ScanDir walks the data directory and discovers all entry files
// (.yaml, .yml, .json, .jsonl). A missing directory yields no files.
func ScanDir(dataDir string) ([]DiscoveredFile, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	var files []DiscoveredFile

	err = filepath.WalkDir(dataDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // intentionally skip unreadable entries
		}
		if d.IsDir() {
			if path != dataDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		format, ok := formatOf(d.Name())
		if !ok {
			return nil
		}

		rel, _ := filepath.Rel(dataDir, path)
		files = append(files, DiscoveredFile{
			Path:    path,
			Format:  format,
			Project: projectFromRel(rel),
		})
		return nil
	})

	return files, err
}

func formatOf(name string) (Format, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".json":
		return FormatJSON, true
	case ".jsonl":
		return FormatJSONL, true
	}
	return "", false
}

// projectFromRel takes the first path component below the data dir as the
// project name:
//
//	"acme/2024-03.yaml"         -> "acme"
//	"acme/archive/2023.yaml"    -> "acme"
//	"hours.yaml"                -> ""
func projectFromRel(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0]
}

// Paths returns the file paths of discovered files.
func Paths(files []DiscoveredFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

// CountProjects returns the number of unique directory projects.
func CountProjects(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		if f.Project != "" {
			seen[f.Project] = struct{}{}
		}
	}
	return len(seen)
}
