package geo

import (
	"sync"
	"time"
)

// Cache stores geocoded coordinates by normalized address. The Fiber redis
// storage satisfies it; Get returns nil, nil on a miss.
type Cache interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
}

type memoryEntry struct {
	val     []byte
	expires time.Time
}

// MemoryCache is an in-process Cache used when no redis is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		return nil, nil
	}
	return e.val, nil
}

// Set stores val; exp <= 0 means no expiry.
func (c *MemoryCache) Set(key string, val []byte, exp time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{val: val}
	if exp > 0 {
		e.expires = c.now().Add(exp)
	}
	c.entries[key] = e
	return nil
}
