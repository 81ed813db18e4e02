package pipeline

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/timeq/internal/calendar"
	"github.com/theirongolddev/timeq/internal/model"
	"github.com/theirongolddev/timeq/internal/query"
)

// DefaultMemoEntries bounds a Memo made by NewMemo.
const DefaultMemoEntries = 256

// MemoStats reports result memo usage.
type MemoStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

type memoKey struct {
	text    string
	version string
	day     string
	config  string
}

type memoEntry struct {
	key  memoKey
	data model.ProcessedData
}

// Memo caches Execute results keyed by query text, data snapshot version
// and executor settings. The day of cfg.Now is part of the key so rolling
// windows move forward. Once full, the least recently used result is
// evicted. Returned data is shared and must not be modified.
type Memo struct {
	queries    *query.Cache
	maxEntries int

	mu      sync.Mutex
	results map[memoKey]*list.Element
	order   *list.List // front is most recently used

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewMemo creates a memo holding up to DefaultMemoEntries results that
// compiles queries through queries. A nil cache gets a private one.
func NewMemo(queries *query.Cache) *Memo {
	return NewMemoWithLimit(queries, DefaultMemoEntries)
}

// NewMemoWithLimit is NewMemo with an explicit bound. A non-positive
// limit means DefaultMemoEntries.
func NewMemoWithLimit(queries *query.Cache, maxEntries int) *Memo {
	if queries == nil {
		queries = query.NewCache()
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMemoEntries
	}
	return &Memo{
		queries:    queries,
		maxEntries: maxEntries,
		results:    make(map[memoKey]*list.Element),
		order:      list.New(),
	}
}

// Run compiles text and executes it against entries, reusing an earlier
// result for the same text, version, day and cfg.
func (m *Memo) Run(text, version string, entries []model.TimeEntry, cfg Config) (model.ProcessedData, error) {
	spec, err := m.queries.Compile(text)
	if err != nil {
		return model.ProcessedData{}, err
	}

	key := memoKey{
		text:    text,
		version: version,
		day:     calendar.Day(cfg.now()).Format("2006-01-02"),
		config:  cfg.fingerprint(),
	}

	m.mu.Lock()
	if el, ok := m.results[key]; ok {
		m.order.MoveToFront(el)
		pd := el.Value.(*memoEntry).data
		m.mu.Unlock()
		m.hits.Add(1)
		return pd, nil
	}
	m.mu.Unlock()

	m.misses.Add(1)
	pd := Execute(spec, entries, cfg)

	m.mu.Lock()
	if el, ok := m.results[key]; ok {
		// A concurrent Run stored it first.
		m.order.MoveToFront(el)
	} else {
		for len(m.results) >= m.maxEntries {
			m.evictOldestLocked()
		}
		m.results[key] = m.order.PushFront(&memoEntry{key: key, data: pd})
	}
	m.mu.Unlock()
	return pd, nil
}

func (m *Memo) evictOldestLocked() {
	back := m.order.Back()
	if back == nil {
		return
	}
	m.order.Remove(back)
	delete(m.results, back.Value.(*memoEntry).key)
	m.evictions.Add(1)
}

// Invalidate drops every stored result. Parsed queries stay cached.
func (m *Memo) Invalidate() {
	m.mu.Lock()
	m.results = make(map[memoKey]*list.Element)
	m.order.Init()
	m.mu.Unlock()
}

// Stats returns usage counters.
func (m *Memo) Stats() MemoStats {
	m.mu.Lock()
	n := len(m.results)
	m.mu.Unlock()
	return MemoStats{
		Entries:   n,
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Evictions: m.evictions.Load(),
	}
}

// fingerprint identifies every setting besides Now that changes a report.
func (c Config) fingerprint() string {
	deadline := ""
	if c.Deadline != nil {
		deadline = c.Deadline.Format("2006-01-02")
	}
	return fmt.Sprintf("%g|%s|%g|%g|%s|%d|%t",
		c.HoursPerWorkday, c.ProjectType, c.BudgetHours, c.DefaultRate, deadline, c.Order, c.IncludeEdgeMonths)
}
