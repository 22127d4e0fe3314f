package storage

import (
	"container/list"
	"sync"
	"time"

	"github.com/vjranagit/healthdash/pkg/types"
)

// TierMemory names the in-process cache tier
const TierMemory = "memory"

// ResultCache is an LRU cache of computed dashboards keyed by content hash
type ResultCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	lru      *list.List
	hits     uint64
	misses   uint64
}

// cacheEntry represents a cached dashboard
type cacheEntry struct {
	key       string
	dashboard *types.Dashboard
	storedAt  time.Time
	element   *list.Element
}

// NewResultCache creates a cache holding at most capacity dashboards.
// A zero ttl keeps entries until they are evicted.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if capacity < 1 {
		capacity = 1
	}
	return &ResultCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
		lru:      list.New(),
	}
}

// Get retrieves a cached dashboard
func (c *ResultCache) Get(key string) (*types.Dashboard, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, TierMemory, false
	}

	if c.expired(entry) {
		c.removeLocked(key)
		c.misses++
		return nil, TierMemory, false
	}

	c.lru.MoveToFront(entry.element)
	c.hits++

	return entry.dashboard, TierMemory, true
}

// Put stores a dashboard, evicting the least recently used entry when full
func (c *ResultCache) Put(key string, d *types.Dashboard) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.dashboard = d
		entry.storedAt = time.Now()
		c.lru.MoveToFront(entry.element)
		return
	}

	entry := &cacheEntry{
		key:       key,
		dashboard: d,
		storedAt:  time.Now(),
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeLocked(oldest.Value.(*cacheEntry).key)
		}
	}
}

func (c *ResultCache) expired(entry *cacheEntry) bool {
	return c.ttl > 0 && time.Since(entry.storedAt) > c.ttl
}

// removeLocked removes an entry (must hold lock)
func (c *ResultCache) removeLocked(key string) {
	if entry, ok := c.entries[key]; ok {
		c.lru.Remove(entry.element)
		delete(c.entries, key)
	}
}

// Clear drops all entries and resets the hit and miss counters
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lru = list.New()
	c.hits = 0
	c.misses = 0
}

// Size returns the number of cached dashboards
func (c *ResultCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheStats contains cache statistics
type CacheStats struct {
	Size     int
	Capacity int
	Expired  int
	Hits     uint64
	Misses   uint64
}

// HitRate returns hits as a percentage of lookups
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0.0
	}
	return float64(s.Hits) / float64(total) * 100.0
}

// Stats returns cache statistics
func (c *ResultCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := 0
	for _, entry := range c.entries {
		if c.expired(entry) {
			expired++
		}
	}

	return CacheStats{
		Size:     len(c.entries),
		Capacity: c.capacity,
		Expired:  expired,
		Hits:     c.hits,
		Misses:   c.misses,
	}
}
