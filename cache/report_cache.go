package cache

import (
	"container/list"
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/spektr-org/crimescope/engine"
)

// ============================================================================
// REPORT CACHE — Memoized reports keyed by (selection, snapshot generation)
// ============================================================================
// A report is a pure function of the snapshot and the selection, so a
// cached entry stays valid until the snapshot generation changes. Keys carry
// the generation; entries from an older snapshot are never served even if
// Invalidate was not called.
//
// Concurrent misses for the same key share one computation (singleflight).
// Every caller receives its own copy of the cached report; ComputedAt is
// the time of the shared computation, not of the lookup.
// ============================================================================

// DefaultMaxEntries is the LRU capacity when none is configured.
const DefaultMaxEntries = 256

// ComputeFunc produces a report on a cache miss.
type ComputeFunc func(ctx context.Context) (*engine.Report, error)

// Stats is a point-in-time view of cache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Computes  int64 `json:"computes"`
	Errors    int64 `json:"errors"`
}

// Observer receives hit/miss notifications (metrics hook).
type Observer interface {
	CacheHit()
	CacheMiss()
}

// ReportCache is an LRU of reports. Safe for concurrent use.
type ReportCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	lru        *list.List
	flight     singleflight.Group
	maxEntries int
	observer   Observer

	hits      int64
	misses    int64
	evictions int64
	computes  int64
	errors    int64
}

type entry struct {
	key        string
	generation uint64
	report     *engine.Report
	element    *list.Element
}

// Option configures a ReportCache.
type Option func(*ReportCache)

// WithMaxEntries sets the LRU capacity. Non-positive values are ignored.
func WithMaxEntries(n int) Option {
	return func(c *ReportCache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithObserver attaches a hit/miss observer.
func WithObserver(o Observer) Option {
	return func(c *ReportCache) {
		c.observer = o
	}
}

// New creates an empty ReportCache.
func New(opts ...Option) *ReportCache {
	c := &ReportCache{
		entries:    make(map[string]*entry),
		lru:        list.New(),
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the cache key of a selection at a snapshot generation.
func Key(sel engine.Selection, generation uint64) string {
	return strconv.FormatUint(generation, 10) + "|" + sel.Key()
}

// Get returns the cached report, if any.
func (c *ReportCache) Get(sel engine.Selection, generation uint64) (*engine.Report, bool) {
	key := Key(sel, generation)

	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		c.lru.MoveToFront(e.element)
	}
	c.mu.Unlock()

	if !ok {
		atomic.AddInt64(&c.misses, 1)
		if c.observer != nil {
			c.observer.CacheMiss()
		}
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	if c.observer != nil {
		c.observer.CacheHit()
	}
	return e.report.Clone(), true
}

// GetOrCompute returns the cached report or computes, stores and returns a
// new one. Errors are not cached.
func (c *ReportCache) GetOrCompute(ctx context.Context, sel engine.Selection, generation uint64, compute ComputeFunc) (*engine.Report, error) {
	if r, ok := c.Get(sel, generation); ok {
		return r, nil
	}

	key := Key(sel, generation)
	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		c.mu.RLock()
		e, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return e.report, nil
		}

		r, err := compute(ctx)
		if err != nil {
			atomic.AddInt64(&c.errors, 1)
			return nil, err
		}
		atomic.AddInt64(&c.computes, 1)
		c.put(key, generation, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*engine.Report).Clone(), nil
}

func (c *ReportCache) put(key string, generation uint64, r *engine.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[key]; exists {
		e.report = r
		c.lru.MoveToFront(e.element)
		return
	}
	for len(c.entries) >= c.maxEntries {
		back := c.lru.Back()
		if back == nil {
			break
		}
		c.removeLocked(back.Value.(string))
		atomic.AddInt64(&c.evictions, 1)
	}
	e := &entry{key: key, generation: generation, report: r}
	e.element = c.lru.PushFront(key)
	c.entries[key] = e
}

func (c *ReportCache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	c.lru.Remove(e.element)
	delete(c.entries, key)
}

// Invalidate drops every entry.
func (c *ReportCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.lru.Init()
}

// InvalidateBefore drops entries computed against generations older than gen.
func (c *ReportCache) InvalidateBefore(gen uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if e.generation < gen {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Len returns the number of cached entries.
func (c *ReportCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the current counters.
func (c *ReportCache) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
		Computes:  atomic.LoadInt64(&c.computes),
		Errors:    atomic.LoadInt64(&c.errors),
	}
}
