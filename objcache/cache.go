// Package objcache implements a generic bounded cache for costly-to-produce
// payloads: decoded images, rasterized glyphs, geometry tables.
//
// Entries are reference counted. The cache owns every payload; callers hold
// non-owning handles that must be released. An entry with a positive
// reference count is never evicted. Eviction is least-recently-used among
// zero-refcount entries and happens only when an insertion would exceed the
// configured budget. The budget is a plain number: instantiate it with byte
// sizes for an image cache or with a size of 1 per entry for a count-bounded
// glyph or geometry cache.
package objcache

import "sync"

// Producer materializes a payload on cache miss. It returns the value and
// its cost against the cache budget (bytes, or 1 for count-bounded caches).
type Producer[V any] func() (V, int64, error)

// EvictFunc is called when the cache drops a payload, either through
// eviction or invalidation. Payloads holding arena memory release it here.
type EvictFunc[K comparable, V any] func(key K, value V)

// Cache is a generic bounded cache with reference-counted entries and
// single-flight production.
//
// Cache is safe for concurrent use. The producer runs under the cache lock,
// so two lookups with the same key invoke it exactly once; the second
// caller observes the first's result.
//
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*entry[K, V]
	lru      lruList[K]
	nodes    map[K]*lruNode[K]
	budget   int64 // 0 = unbounded
	reserved int   // MRU entries exempt from eviction
	onEvict  EvictFunc[K, V]
	resident int64
	stats    Stats
}

// entry holds a cached payload with its bookkeeping.
type entry[K comparable, V any] struct {
	key   K
	value V
	size  int64
	refs  int
	// doomed marks an entry for removal on its final release: either it
	// was invalidated while referenced, or there was no budget room left
	// after eviction.
	doomed bool
	// detached means the entry was removed from the map and LRU list while
	// still referenced (a doomed entry whose key was re-produced). Only
	// live handles reach it; the eviction callback runs on final release.
	detached bool
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Resident is the summed cost of all entries.
	Resident int64
	// Budget is the configured limit (0 = unbounded).
	Budget int64
	// Hits is the number of cache hits.
	Hits uint64
	// Misses is the number of cache misses (producer invocations).
	Misses uint64
	// Evictions is the number of evicted entries.
	Evictions uint64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithReserved exempts the n most-recently-used entries from eviction even
// at refcount zero, to avoid thrashing on payloads reused every frame.
func WithReserved[K comparable, V any](n int) Option[K, V] {
	return func(c *Cache[K, V]) { c.reserved = n }
}

// WithEvictFunc installs a callback invoked whenever a payload is dropped.
func WithEvictFunc[K comparable, V any](fn EvictFunc[K, V]) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// New creates a cache with the given budget. A budget of 0 means unbounded:
// nothing is ever evicted and callers manage lifetime with Invalidate.
func New[K comparable, V any](budget int64, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries: make(map[K]*entry[K, V]),
		nodes:   make(map[K]*lruNode[K]),
		budget:  budget,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.Budget = budget
	return c
}

// Handle is a non-owning reference to a cached payload. It must be released
// exactly once; the payload becomes eligible for eviction at refcount zero.
type Handle[K comparable, V any] struct {
	cache *Cache[K, V]
	e     *entry[K, V]
	done  bool
}

// Value returns the cached payload. The payload stays valid until Release.
func (h *Handle[K, V]) Value() V { return h.e.value }

// Release decrements the entry's reference count. Releasing a handle twice
// is an internal-consistency violation and panics.
func (h *Handle[K, V]) Release() {
	if h.done {
		panic("objcache: handle released twice")
	}
	h.done = true
	h.cache.release(h.e)
}

// GetOrInsert returns a handle to the payload for key, invoking produce on
// miss. A producer failure is surfaced unchanged and leaves the cache
// untouched.
func (c *Cache[K, V]) GetOrInsert(key K, produce Producer[V]) (*Handle[K, V], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && !e.doomed {
		e.refs++
		c.lru.MoveToFront(c.nodes[key])
		c.stats.Hits++
		return &Handle[K, V]{cache: c, e: e}, nil
	}

	// Producer runs under the lock: concurrent lookups for the same key
	// collapse into one production (single-flight).
	c.stats.Misses++
	value, size, err := produce()
	if err != nil {
		return nil, err
	}

	// A doomed entry still referenced keeps its payload alive through its
	// handles only; detach it so the key can be re-bound.
	if old, ok := c.entries[key]; ok {
		c.detach(old)
	}

	if c.budget > 0 {
		c.evictFor(size)
	}
	e := &entry[K, V]{key: key, value: value, size: size, refs: 1}
	if c.budget > 0 && c.resident+size > c.budget {
		// No room even after eviction: serve the payload but drop it on
		// final release instead of letting residency exceed the budget.
		e.doomed = true
	}
	c.entries[key] = e
	c.nodes[key] = c.lru.PushFront(key)
	c.resident += size
	return &Handle[K, V]{cache: c, e: e}, nil
}

// Invalidate forces removal of key. If the entry is referenced it is marked
// for deferred removal on its next full release.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.doomed = true
		return
	}
	c.drop(e)
}

// Stats returns a snapshot of cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Len = len(c.entries)
	s.Resident = c.resident
	return s
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Resident returns the summed cost of all entries.
func (c *Cache[K, V]) Resident() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resident
}

func (c *Cache[K, V]) release(e *entry[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e.refs == 0 {
		panic("objcache: release without matching reference")
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	if e.detached {
		if c.onEvict != nil {
			c.onEvict(e.key, e.value)
		}
		return
	}
	if e.doomed {
		c.drop(e)
	}
}

// evictFor removes zero-refcount entries from the LRU tail until need more
// units fit within the budget, skipping the reserved most-recently-used
// entries. Caller must hold c.mu.
func (c *Cache[K, V]) evictFor(need int64) {
	node := c.lru.tail
	pos := c.lru.len // 1-based position from the MRU head, counting down
	for node != nil && c.resident+need > c.budget {
		if pos <= c.reserved {
			break // remaining entries are all reserved
		}
		prev := node.prev
		if e, ok := c.entries[node.key]; ok && e.refs == 0 {
			c.drop(e)
			c.stats.Evictions++
		}
		node = prev
		pos--
	}
}

// drop removes an attached entry and runs the eviction callback.
// Caller must hold c.mu.
func (c *Cache[K, V]) drop(e *entry[K, V]) {
	delete(c.entries, e.key)
	if n, ok := c.nodes[e.key]; ok {
		c.lru.Remove(n)
		delete(c.nodes, e.key)
	}
	c.resident -= e.size
	if c.onEvict != nil {
		c.onEvict(e.key, e.value)
	}
}

// detach unbinds a still-referenced entry from the map and LRU list.
// Caller must hold c.mu.
func (c *Cache[K, V]) detach(e *entry[K, V]) {
	delete(c.entries, e.key)
	if n, ok := c.nodes[e.key]; ok {
		c.lru.Remove(n)
		delete(c.nodes, e.key)
	}
	c.resident -= e.size
	e.detached = true
}
