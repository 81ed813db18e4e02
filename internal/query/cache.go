package query

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCacheEntries bounds a Cache made by NewCache.
const DefaultCacheEntries = 1024

// CacheStats reports parse cache usage.
type CacheStats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

type cacheEntry struct {
	text    string
	elem    *list.Element
	once    sync.Once
	ast     *Query
	spec    Spec
	err     error
	specErr error
}

// Cache memoizes Parse and Interpret by query text. Each distinct text is
// parsed at most once while it stays cached; the resulting AST is shared
// by all callers and must not be modified. The least recently used text
// is evicted once the cache is full. Safe for concurrent use.
type Cache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*cacheEntry
	order      *list.List // front is most recently used

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCache creates an empty parse cache holding up to DefaultCacheEntries
// texts.
func NewCache() *Cache {
	return NewCacheWithLimit(DefaultCacheEntries)
}

// NewCacheWithLimit creates a cache holding up to maxEntries texts. A
// non-positive limit means DefaultCacheEntries.
func NewCacheWithLimit(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &Cache{
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
		order:      list.New(),
	}
}

func (c *Cache) entry(text string) *cacheEntry {
	c.mu.Lock()
	e, ok := c.entries[text]
	if ok {
		c.order.MoveToFront(e.elem)
	} else {
		for len(c.entries) >= c.maxEntries {
			c.evictOldestLocked()
		}
		e = &cacheEntry{text: text}
		e.elem = c.order.PushFront(e)
		c.entries[text] = e
	}
	c.mu.Unlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}

	e.once.Do(func() {
		e.ast, e.err = Parse(text)
		if e.err == nil {
			e.spec, e.specErr = Interpret(e.ast)
		}
	})
	return e
}

func (c *Cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	e := back.Value.(*cacheEntry)
	c.order.Remove(back)
	delete(c.entries, e.text)
	c.evictions.Add(1)
}

// Parse returns the cached AST for text, parsing it on first use. Errors
// are cached too.
func (c *Cache) Parse(text string) (*Query, error) {
	e := c.entry(text)
	return e.ast, e.err
}

// Compile returns the interpreted spec for text. The spec is a private
// copy the caller may modify.
func (c *Cache) Compile(text string) (Spec, error) {
	e := c.entry(text)
	if e.err != nil {
		return Spec{}, e.err
	}
	if e.specErr != nil {
		return Spec{}, e.specErr
	}
	return e.spec.Clone(), nil
}

// Invalidate drops one text, or every entry when text is empty.
func (c *Cache) Invalidate(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if text == "" {
		c.entries = make(map[string]*cacheEntry)
		c.order.Init()
		return
	}
	if e, ok := c.entries[text]; ok {
		c.order.Remove(e.elem)
		delete(c.entries, text)
	}
}

// Len returns the number of cached texts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns usage counters.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
