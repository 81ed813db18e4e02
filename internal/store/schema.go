package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    file_path            TEXT NOT NULL REFERENCES file_tracker(file_path) ON DELETE CASCADE,
    entry_date           TEXT NOT NULL,
    hours                REAL NOT NULL,
    rate                 REAL,
    project              TEXT,
    notes                TEXT
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    parse_errors         INTEGER NOT NULL DEFAULT 0,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS query_results (
    query_text           TEXT NOT NULL,
    snapshot             TEXT NOT NULL,
    payload              BLOB NOT NULL,
    computed_at          TEXT NOT NULL,
    PRIMARY KEY (query_text, snapshot)
);

CREATE INDEX IF NOT EXISTS idx_entries_file ON entries(file_path);
CREATE INDEX IF NOT EXISTS idx_entries_date ON entries(entry_date);
`
