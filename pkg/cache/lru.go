// pkg/cache/lru.go
package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is the default number of entries to cache
const DefaultCapacity = 128

// Stats holds statistics about a cache
type Stats struct {
	Hits     int64
	Misses   int64
	Entries  int
	Capacity int
	HitRate  float64
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	createdAt time.Time
	element   *list.Element
}

// LRU is a size-bounded least-recently-used cache safe for concurrent use
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	entries  map[K]*entry[K, V]
	lru      *list.List
	hits     int64
	misses   int64
}

// New creates a cache holding up to capacity entries. If capacity is 0 or
// negative, DefaultCapacity is used.
func New[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[K, V]{
		capacity: capacity,
		entries:  make(map[K]*entry[K, V]),
		lru:      list.New(),
	}
}

// Capacity returns the cache capacity
func (c *LRU[K, V]) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// SetCapacity changes the cache capacity, evicting entries if necessary
func (c *LRU[K, V]) SetCapacity(capacity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capacity = capacity
	c.evictIfNeeded()
}

// SetTTL sets the time-to-live for entries. Zero disables expiry.
func (c *LRU[K, V]) SetTTL(ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl = ttl
}

// Put adds or replaces an entry and marks it most recently used
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.createdAt = time.Now()
		c.lru.MoveToFront(e.element)
		return
	}

	e := &entry[K, V]{key: key, value: value, createdAt: time.Now()}
	e.element = c.lru.PushFront(e)
	c.entries[key] = e

	c.evictIfNeeded()
}

// Get returns the entry for key
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return zero, false
	}

	// Check TTL expiration
	if c.ttl > 0 && time.Since(e.createdAt) > c.ttl {
		c.remove(e)
		c.misses++
		return zero, false
	}

	c.lru.MoveToFront(e.element)
	c.hits++
	return e.value, true
}

// Invalidate removes the entry for key, if any
func (c *LRU[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
}

// InvalidateAll clears the entire cache
func (c *LRU[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*entry[K, V])
	c.lru = list.New()
}

// Stats returns cache statistics
func (c *LRU[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Hits:     c.hits,
		Misses:   c.misses,
		Entries:  len(c.entries),
		Capacity: c.capacity,
		HitRate:  hitRate,
	}
}

// remove drops an entry (called while holding lock)
func (c *LRU[K, V]) remove(e *entry[K, V]) {
	c.lru.Remove(e.element)
	delete(c.entries, e.key)
}

// evictIfNeeded removes entries until within capacity (called while holding lock)
func (c *LRU[K, V]) evictIfNeeded() {
	for c.lru.Len() > c.capacity {
		elem := c.lru.Back()
		if elem == nil {
			break
		}
		c.remove(elem.Value.(*entry[K, V]))
	}
}
