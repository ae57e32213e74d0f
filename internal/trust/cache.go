package trust

import (
	"sync"
	"time"
)

// cacheEntry holds a cached resolution.
type cacheEntry struct {
	res       Resolution
	expiresAt time.Time
}

func (e *cacheEntry) expired() bool {
	return time.Now().After(e.expiresAt)
}

// scoreCache is a thread-safe process-wide cache of resolved pairs. Entries
// expire after a fixed TTL; StartCacheEviction sweeps stale ones.
type scoreCache struct {
	mu      sync.RWMutex
	entries map[pairKey]*cacheEntry
	ttl     time.Duration
}

func newScoreCache(ttl time.Duration) *scoreCache {
	return &scoreCache{
		entries: make(map[pairKey]*cacheEntry),
		ttl:     ttl,
	}
}

func (c *scoreCache) get(key pairKey) (Resolution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired() {
		return Resolution{}, false
	}
	return e.res, true
}

func (c *scoreCache) set(key pairKey, res Resolution) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &cacheEntry{
		res:       res,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// invalidate drops every entry whose source or target is org.
func (c *scoreCache) invalidate(org string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if k.source == org || k.target == org {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// evict removes all expired entries.
func (c *scoreCache) evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k, e := range c.entries {
		if e.expired() {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// len returns the number of cached entries (including expired).
func (c *scoreCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
