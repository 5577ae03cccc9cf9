package content

import (
	"sync"
	"time"
)

// Cache is a small in-process TTL cache for fetched items. A zero TTL
// disables caching.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	item     Item
	storedAt time.Time
}

// NewCache returns a cache whose entries expire after ttl.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{ttl: ttl, now: now, entries: make(map[string]cacheEntry)}
}

// Get returns the cached item for key when it has not expired. Expired
// entries are dropped on access.
func (c *Cache) Get(key string) (Item, bool) {
	if c == nil || c.ttl <= 0 {
		return Item{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return Item{}, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return Item{}, false
	}
	return entry.item, true
}

// Set stores item under key.
func (c *Cache) Set(key string, item Item) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{item: item, storedAt: c.now()}
}

// Purge removes every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Len reports the number of stored entries, expired or not.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
