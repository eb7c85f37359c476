package querykit

import (
	"container/list"
	"math/rand"
	"sync"
	"time"
)

// Cache is a bounded, ttl aware cache for query results
type Cache[T any] interface {
	// Get gets a value. ok is false for missing or expired keys; expired
	// keys are removed on access. A hit promotes the key to most recently
	// used.
	Get(key string) (value T, ok bool)
	// Set stores the value under key for ttl, recording the collection it
	// was derived from. A ttl <= 0 is a no-op. At capacity the least
	// recently used entry is evicted first.
	Set(key string, collection string, value T, ttl time.Duration)
	// InvalidateCollection removes every entry derived from the given
	// collection and returns the number removed
	InvalidateCollection(collection string) int
	// Clear drops all entries and resets the hit/miss/eviction counters
	Clear()
	// CleanupExpired removes expired entries independent of access and
	// returns the number removed
	CleanupExpired() int
	// Stats returns current cache statistics
	Stats() CacheStats
}

// CacheStats summarizes a cache's effectiveness
type CacheStats struct {
	// Size is the current entry count
	Size int `json:"size"`
	// MaxSize is the entry capacity
	MaxSize int `json:"max_size"`
	// Hits counts gets served from the cache
	Hits uint64 `json:"hits"`
	// Misses counts gets that found no live entry
	Misses uint64 `json:"misses"`
	// Evictions counts entries removed to make room
	Evictions uint64 `json:"evictions"`
	// HitRate is Hits / (Hits + Misses), 0 before any access
	HitRate float64 `json:"hit_rate"`
}

// cacheEntry is a single cached value. Entries are replaced, never mutated;
// a hit only moves the entry within the eviction list.
type cacheEntry[T any] struct {
	key        string
	collection string
	value      T
	expiresAt  time.Time
}

// lruCache is a mutex guarded lru + ttl cache backed by a doubly linked
// list and a key index. The list front is the most recently used entry.
type lruCache[T any] struct {
	mu        sync.Mutex
	maxSize   int
	items     map[string]*list.Element
	order     *list.List
	hits      uint64
	misses    uint64
	evictions uint64
	// sampleRate is the probability that a Set sweeps expired entries,
	// used when no background sweeper is running
	sampleRate float64
	now        func() time.Time
}

// NewCache returns a bounded lru + ttl cache. A maxSize <= 0 selects
// DefaultCacheSize.
func NewCache[T any](maxSize int) Cache[T] {
	return newLRUCache[T](maxSize)
}

func newLRUCache[T any](maxSize int) *lruCache[T] {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	return &lruCache[T]{
		maxSize: maxSize,
		items:   map[string]*list.Element{},
		order:   list.New(),
		now:     time.Now,
	}
}

func (c *lruCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	entry := el.Value.(*cacheEntry[T])
	if c.now().After(entry.expiresAt) {
		c.remove(el)
		c.misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.hits++
	return entry.value, true
}

func (c *lruCache[T]) Set(key string, collection string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := &cacheEntry[T]{
		key:        key,
		collection: collection,
		value:      value,
		expiresAt:  c.now().Add(ttl),
	}
	if el, ok := c.items[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return
	}
	for c.order.Len() >= c.maxSize {
		c.evictOldest()
	}
	c.items[key] = c.order.PushFront(entry)
	if c.sampleRate > 0 && rand.Float64() < c.sampleRate {
		c.cleanup()
	}
}

func (c *lruCache[T]) InvalidateCollection(collection string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*cacheEntry[T]).collection == collection {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *lruCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = map[string]*list.Element{}
	c.order.Init()
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}

func (c *lruCache[T]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanup()
}

func (c *lruCache[T]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := CacheStats{
		Size:      c.order.Len(),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

func (c *lruCache[T]) cleanup() int {
	removed := 0
	now := c.now()
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*cacheEntry[T]).expiresAt) {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed
}

func (c *lruCache[T]) evictOldest() {
	if back := c.order.Back(); back != nil {
		c.remove(back)
		c.evictions++
	}
}

func (c *lruCache[T]) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*cacheEntry[T]).key)
}
