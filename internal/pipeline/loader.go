package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/source"
)

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Entries      []model.TimeEntry
	Files        []source.DiscoveredFile
	TotalFiles   int
	ParsedFiles  int
	ParseErrors  int
	FileErrors   int
	ProjectCount int

	// Version fingerprints the loaded files; see SnapshotVersion.
	Version string
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load discovers and parses all entry files below dataDir.
// It uses a bounded worker pool for parallel parsing.
func Load(dataDir string, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dataDir, err)
	}

	result := &LoadResult{
		Files:        files,
		TotalFiles:   len(files),
		ProjectCount: source.CountProjects(files),
		Version:      SnapshotVersion(source.Paths(files)),
	}
	if len(files) == 0 {
		return result, nil
	}

	for _, pr := range parseFiles(files, 0, len(files), progressFn) {
		if pr.Err != nil {
			result.FileErrors++
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors
		result.Entries = append(result.Entries, pr.Entries...)
	}

	return result, nil
}

// parseFiles parses files with GOMAXPROCS workers. Results keep input
// order. Progress is reported as offset+n of total.
func parseFiles(files []source.DiscoveredFile, offset, total int, progressFn ProgressFunc) []source.ParseResult {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(offset+int(n), total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}
