package source

// Format is the encoding of an entry file.
type Format string

const (
	FormatYAML  Format = "yaml"
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
)

// DiscoveredFile is an entry file found under the data directory.
type DiscoveredFile struct {
	Path   string
	Format Format

	// Project is the default project for entries in the file, taken from
	// the first directory below the data dir. Empty for top-level files.
	Project string
}

// rawEntry is one entry as written in a file. Date is kept as text so both
// bare YAML dates and RFC 3339 timestamps are accepted.
type rawEntry struct {
	Date    string   `json:"date" yaml:"date"`
	Hours   float64  `json:"hours" yaml:"hours"`
	Rate    *float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
	Project string   `json:"project,omitempty" yaml:"project,omitempty"`
	Client  string   `json:"client,omitempty" yaml:"client,omitempty"`
	Notes   string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// rawFile is the document form: file-level defaults plus a list of entries.
// A bare list of entries is also accepted.
type rawFile struct {
	Project string     `json:"project,omitempty" yaml:"project,omitempty"`
	Rate    *float64   `json:"rate,omitempty" yaml:"rate,omitempty"`
	Entries []rawEntry `json:"entries" yaml:"entries"`
}
