package pipeline

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// DefaultCacheCapacity is the entry limit used when none is given.
const DefaultCacheCapacity = 256

// Cache is a fingerprint-keyed LRU cache for native pipeline objects.
//
// Pipeline creation is expensive, so callers fingerprint their configuration
// with [Fingerprint] and deduplicate through GetOrCreate. Evicted and cleared
// entries are handed to the destroyer so native handles are released exactly
// once.
//
// Cache is safe for concurrent use: reads take a read lock, creation uses
// double-check locking so a key is only ever created once.
type Cache[P any] struct {
	mu      sync.RWMutex
	entries map[uint64]*list.Element
	lru     *list.List // front = most recent; values are *cacheEntry[P]
	cap     int
	destroy func(P)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type cacheEntry[P any] struct {
	key   uint64
	value P
}

// NewCache creates a cache holding at most capacity pipelines
// (DefaultCacheCapacity if capacity <= 0). destroy is invoked for each
// evicted or cleared pipeline; nil means no cleanup.
func NewCache[P any](capacity int, destroy func(P)) *Cache[P] {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache[P]{
		entries: make(map[uint64]*list.Element),
		lru:     list.New(),
		cap:     capacity,
		destroy: destroy,
	}
}

// Get returns the pipeline for key, if cached. A hit refreshes the entry's
// LRU position.
func (c *Cache[P]) Get(key uint64) (P, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		var zero P
		return zero, false
	}
	c.lru.MoveToFront(el)
	c.hits.Add(1)
	return el.Value.(*cacheEntry[P]).value, true
}

// GetOrCreate returns the cached pipeline for key, creating it with create
// on a miss. A creation failure is returned as-is and caches nothing.
//
// create runs with the cache lock held, so concurrent calls for the same key
// create at most one pipeline.
func (c *Cache[P]) GetOrCreate(key uint64, create func() (P, error)) (P, error) {
	// Fast path: read lock.
	c.mu.RLock()
	el, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		// Re-check: the entry may have been evicted between locks.
		if el, ok = c.entries[key]; ok {
			c.lru.MoveToFront(el)
			v := el.Value.(*cacheEntry[P]).value
			c.mu.Unlock()
			c.hits.Add(1)
			return v, nil
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.lru.MoveToFront(el)
		c.hits.Add(1)
		return el.Value.(*cacheEntry[P]).value, nil
	}

	c.misses.Add(1)
	v, err := create()
	if err != nil {
		var zero P
		return zero, err
	}

	for c.lru.Len() >= c.cap {
		c.evictOldest()
	}
	c.entries[key] = c.lru.PushFront(&cacheEntry[P]{key: key, value: v})
	return v, nil
}

// evictOldest removes the least recently used entry. Caller holds the lock.
func (c *Cache[P]) evictOldest() {
	el := c.lru.Back()
	if el == nil {
		return
	}
	ent := el.Value.(*cacheEntry[P])
	c.lru.Remove(el)
	delete(c.entries, ent.key)
	c.evictions.Add(1)
	if c.destroy != nil {
		c.destroy(ent.value)
	}
}

// Len returns the number of cached pipelines.
func (c *Cache[P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Capacity returns the entry limit.
func (c *Cache[P]) Capacity() int {
	return c.cap
}

// Clear destroys every cached pipeline and empties the cache. Statistics
// are preserved.
func (c *Cache[P]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.lru.Front(); el != nil; el = el.Next() {
		if c.destroy != nil {
			c.destroy(el.Value.(*cacheEntry[P]).value)
		}
	}
	c.entries = make(map[uint64]*list.Element)
	c.lru.Init()
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Stats returns current counters. The counters are read atomically but not
// as one consistent snapshot.
func (c *Cache[P]) Stats() Stats {
	return Stats{
		Len:       c.Len(),
		Capacity:  c.cap,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
