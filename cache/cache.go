// Package cache memoizes read-only Odoo call results with bounded staleness.
//
// Entries are keyed by a Signature derived from the full call and are only
// returned while younger than the TTL. Stale entries are evicted by the
// lookup that finds them; there is no background sweep. The store is a
// bounded LRU so that a long-lived process cannot grow without limit.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultTTL        = 300 * time.Second
	DefaultMaxEntries = 10000
)

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is a process-local, TTL-bounded result store. It is safe for
// concurrent use.
type Cache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.Mutex
	store *lru.Cache[Signature, entry]
}

// Stats is a point-in-time view of the cache.
type Stats struct {
	Total      int     `json:"total_keys"`
	Active     int     `json:"active_keys"`
	TTL        float64 `json:"ttl_seconds"`
	MaxEntries int     `json:"max_entries"`
}

type Option func(*Cache)

// WithMaxEntries bounds the number of stored entries. The least recently used
// entry is dropped when the bound is reached.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		c.maxEntries = n
	}
}

// WithClock overrides time.Now. The default clock carries Go's monotonic
// reading, so wall-clock adjustments do not affect staleness.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache whose entries live for ttl. A non-positive ttl means
// DefaultTTL.
func New(ttl time.Duration, opts ...Option) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	store, err := lru.New[Signature, entry](c.maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	c.store = store
	return c, nil
}

func (c *Cache) fresh(e entry, now time.Time) bool {
	return now.Sub(e.storedAt) < c.ttl
}

// Get returns a copy of the value stored under sig if it is younger than the
// TTL. A stale entry is removed and reported absent.
func (c *Cache) Get(sig Signature) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.store.Get(sig)
	if !ok {
		return nil, false
	}
	if !c.fresh(e, c.now()) {
		c.store.Remove(sig)
		return nil, false
	}
	return deepCopy(e.value), true
}

// Put stores a copy of value under sig, replacing any previous entry.
func (c *Cache) Put(sig Signature, value any) {
	e := entry{value: deepCopy(value), storedAt: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Add(sig, e)
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Purge()
}

// Stats counts stored and non-stale entries at call time.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	active := 0
	for _, k := range c.store.Keys() {
		if e, ok := c.store.Peek(k); ok && c.fresh(e, now) {
			active++
		}
	}
	return Stats{
		Total:      c.store.Len(),
		Active:     active,
		TTL:        c.ttl.Seconds(),
		MaxEntries: c.maxEntries,
	}
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

// deepCopy clones the container types produced by the RPC decoders. Scalars
// are immutable and returned as is.
func deepCopy(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopy(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}
