package pipeline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/theirongolddev/timeq/internal/source"
	"github.com/theirongolddev/timeq/internal/store"
)

// CachedLoadResult extends LoadResult with cache metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
	Removed   int
}

// LoadWithCache discovers entry files, diffs them against the cache by
// mtime and size, parses only changed files, and drops cached data for
// files that no longer exist.
func LoadWithCache(dataDir string, cache *store.Cache, progressFn ProgressFunc) (*CachedLoadResult, error) {
	files, err := source.ScanDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dataDir, err)
	}

	result := &CachedLoadResult{
		LoadResult: LoadResult{
			Files:        files,
			TotalFiles:   len(files),
			ProjectCount: source.CountProjects(files),
			Version:      SnapshotVersion(source.Paths(files)),
		},
	}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}

	// Forget files that disappeared since the last run.
	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.Path] = struct{}{}
	}
	for path := range tracked {
		if _, ok := present[path]; ok {
			continue
		}
		if err := cache.DeleteFile(path); err != nil {
			slog.Warn("dropping vanished file from cache", "path", path, "err", err)
			continue
		}
		result.Removed++
	}

	var toReparse []source.DiscoveredFile
	var unchanged []string

	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			continue
		}

		cached, ok := tracked[f.Path]
		if ok && cached.MtimeNs == info.ModTime().UnixNano() && cached.SizeBytes == info.Size() {
			unchanged = append(unchanged, f.Path)
			result.ParseErrors += cached.ParseErrors
		} else {
			toReparse = append(toReparse, f)
		}
	}

	result.CacheHits = len(unchanged)
	result.Reparsed = len(toReparse)

	if len(unchanged) > 0 {
		cached, err := cache.LoadEntries(unchanged)
		if err != nil {
			return nil, fmt.Errorf("loading cached entries: %w", err)
		}
		result.Entries = append(result.Entries, cached...)
		result.ParsedFiles += len(unchanged)
	}

	if len(toReparse) > 0 {
		results := parseFiles(toReparse, result.CacheHits, result.TotalFiles, progressFn)

		for i, pr := range results {
			if pr.Err != nil {
				result.FileErrors++
				slog.Debug("parse failed", "path", toReparse[i].Path, "err", pr.Err)
				continue
			}
			result.ParsedFiles++
			result.ParseErrors += pr.ParseErrors
			result.Entries = append(result.Entries, pr.Entries...)

			info, err := os.Stat(toReparse[i].Path)
			if err != nil {
				continue
			}
			fi := store.FileInfo{
				MtimeNs:     info.ModTime().UnixNano(),
				SizeBytes:   info.Size(),
				ParseErrors: pr.ParseErrors,
			}
			if err := cache.SaveFileEntries(toReparse[i].Path, pr.Entries, fi); err != nil {
				slog.Warn("caching entries", "path", toReparse[i].Path, "err", err)
			}
		}
	}

	return result, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "timeq")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "timeq")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "timeq.db")
}
