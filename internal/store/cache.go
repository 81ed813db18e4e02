// Package store provides a SQLite-backed cache for parsed entries and query results.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"

	"github.com/theirongolddev/timeq/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

const dateFormat = "2006-01-02"

// Cache provides SQLite-backed entry caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs     int64
	SizeBytes   int64
	ParseErrors int
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes, parse_errors FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes, &fi.ParseErrors); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFileEntries replaces the cached entries of one file and updates its
// tracking info.
func (c *Cache) SaveFileEntries(path string, entries []model.TimeEntry, fi FileInfo) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = tx.Exec(`INSERT INTO file_tracker (file_path, mtime_ns, size_bytes, parse_errors, parsed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			mtime_ns = excluded.mtime_ns,
			size_bytes = excluded.size_bytes,
			parse_errors = excluded.parse_errors,
			parsed_at = excluded.parsed_at`,
		path, fi.MtimeNs, fi.SizeBytes, fi.ParseErrors, now)
	if err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM entries WHERE file_path = ?", path); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO entries (file_path, entry_date, hours, rate, project, notes)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		var rate sql.NullFloat64
		if e.Rate != nil {
			rate = sql.NullFloat64{Float64: *e.Rate, Valid: true}
		}
		if _, err = stmt.Exec(path, e.Date.UTC().Format(dateFormat), e.Hours, rate, e.Project, e.Notes); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadEntries reads cached entries for the given files, in file then
// insertion order. A nil paths slice loads everything.
func (c *Cache) LoadEntries(paths []string) ([]model.TimeEntry, error) {
	var want map[string]struct{}
	if paths != nil {
		want = make(map[string]struct{}, len(paths))
		for _, p := range paths {
			want[p] = struct{}{}
		}
	}

	rows, err := c.db.Query(`SELECT file_path, entry_date, hours, rate, project, notes
		FROM entries ORDER BY file_path, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []model.TimeEntry
	for rows.Next() {
		var (
			e              model.TimeEntry
			dateStr        string
			rate           sql.NullFloat64
			project, notes sql.NullString
		)
		if err := rows.Scan(&e.Source, &dateStr, &e.Hours, &rate, &project, &notes); err != nil {
			return nil, err
		}
		if want != nil {
			if _, ok := want[e.Source]; !ok {
				continue
			}
		}
		date, err := time.Parse(dateFormat, dateStr)
		if err != nil {
			return nil, fmt.Errorf("cached entry in %s: %w", e.Source, err)
		}
		e.Date = date
		if rate.Valid {
			r := rate.Float64
			e.Rate = &r
		}
		e.Project = project.String
		e.Notes = notes.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteFile removes a file's tracking info and, by cascade, its entries.
func (c *Cache) DeleteFile(path string) error {
	_, err := c.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", path)
	return err
}

// EntryCount returns the number of cached entries.
func (c *Cache) EntryCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count)
	return count, err
}

// SaveResult stores a computed report for a query text at a snapshot.
// The JSON payload is snappy-compressed.
func (c *Cache) SaveResult(queryText, snapshot string, pd model.ProcessedData) error {
	payload, err := json.Marshal(pd)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	_, err = c.db.Exec(`INSERT OR REPLACE INTO query_results (query_text, snapshot, payload, computed_at)
		VALUES (?, ?, ?, ?)`, queryText, snapshot, snappy.Encode(nil, payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

// LoadResult returns a stored report. ok is false when none exists for
// this exact text and snapshot.
func (c *Cache) LoadResult(queryText, snapshot string) (pd model.ProcessedData, ok bool, err error) {
	var compressed []byte
	err = c.db.QueryRow(`SELECT payload FROM query_results WHERE query_text = ? AND snapshot = ?`,
		queryText, snapshot).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProcessedData{}, false, nil
	}
	if err != nil {
		return model.ProcessedData{}, false, err
	}
	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return model.ProcessedData{}, false, fmt.Errorf("decompressing result: %w", err)
	}
	if err := json.Unmarshal(payload, &pd); err != nil {
		return model.ProcessedData{}, false, fmt.Errorf("decoding result: %w", err)
	}
	return pd, true, nil
}

// PruneResults deletes stored reports computed for any other snapshot.
func (c *Cache) PruneResults(keepSnapshot string) (int64, error) {
	res, err := c.db.Exec("DELETE FROM query_results WHERE snapshot != ?", keepSnapshot)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
