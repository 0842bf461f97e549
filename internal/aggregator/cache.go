package aggregator

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheEntry holds a composed answer.
type CacheEntry struct {
	Key       string
	Answer    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Cache memoizes answers by normalized query for a fixed TTL on top of a
// size-bounded LRU. An expired entry is never served; it is dropped on the
// next lookup.
type Cache struct {
	entries *lru.Cache[string, CacheEntry]
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a cache with the given size limit and TTL.
func NewCache(maxSize int, ttl time.Duration, now func() time.Time) *Cache {
	if maxSize <= 0 {
		maxSize = 512
	}
	if now == nil {
		now = time.Now
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, CacheEntry](maxSize)
	return &Cache{entries: entries, ttl: ttl, now: now}
}

// Get returns the answer cached under key if it has not expired.
func (c *Cache) Get(key string) (string, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	if !c.now().Before(entry.ExpiresAt) {
		c.entries.Remove(key)
		return "", false
	}
	return entry.Answer, true
}

// Set stores answer under key. A zero TTL disables caching.
func (c *Cache) Set(key, answer string) {
	if c.ttl <= 0 {
		return
	}
	now := c.now()
	c.entries.Add(key, CacheEntry{
		Key:       key,
		Answer:    answer,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	})
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.entries.Purge()
}

// Size returns the number of entries, expired ones included.
func (c *Cache) Size() int {
	return c.entries.Len()
}
