package registrar

import (
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long idempotent read results are served from cache
// to absorb bursty UI polling without hammering the vendor.
const DefaultCacheTTL = 30 * time.Second

// Cache is a small TTL cache for idempotent read operations, keyed by
// "operation:domain". Any write for a domain invalidates every cached read
// for that domain. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry

	now func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// NewCache creates a cache with the given TTL; ttl <= 0 applies the default.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(op, name string) string { return op + ":" + name }

// Get returns a fresh cached value for the operation and domain, if any.
func (c *Cache) Get(op, name string) (any, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheKey(op, name)]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}

	return e.value, true
}

// Put stores a value for the operation and domain.
func (c *Cache) Put(op, name string, value any) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(op, name)] = cacheEntry{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// InvalidateDomain removes every cached read for the given domain.
func (c *Cache) InvalidateDomain(name string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if strings.HasSuffix(k, ":"+name) {
			delete(c.entries, k)
		}
	}
}
