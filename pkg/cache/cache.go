// Package cache is the TTL-bounded store of completed scrape results,
// consulted before and updated after each collection.
package cache

import (
	"sync"
	"time"

	"tweetmap/pkg/models"
)

// entry pairs a result with the time it was fetched
type entry struct {
	result    *models.ScrapeResult
	fetchedAt time.Time
}

// Cache holds at most one result per subject. Entries past the TTL are
// treated as misses; eviction is lazy, on the read path.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the cache's clock (tests)
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a result cache with the given TTL
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached result for a subject, or nil on a miss.
// An entry older than the TTL counts as a miss and is evicted.
func (c *Cache) Get(subject string) *models.ScrapeResult {
	c.mu.RLock()
	e, ok := c.entries[subject]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have refreshed it
		if cur, ok := c.entries[subject]; ok && c.now().Sub(cur.fetchedAt) >= c.ttl {
			delete(c.entries, subject)
		}
		c.mu.Unlock()
		return nil
	}

	return e.result
}

// Put stores a result for a subject, overwriting any prior entry
func (c *Cache) Put(subject string, result *models.ScrapeResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[subject] = entry{result: result, fetchedAt: c.now()}
}

// Len returns the number of entries currently held, expired or not
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
