package prefetch

import "sync"

// Cache maps item ids to loaded payloads.
//
// Every fetch takes a sequence number from Begin before it starts. Writes
// carry that number, so a result is only kept if nothing newer has been
// stored for the id since, and never if the id was invalidated after the
// fetch began. Entries have no TTL; they live until Delete or Clear.
type Cache[T any] struct {
	mu      sync.Mutex
	seq     uint64
	floor   uint64 // results begun at or before this are stale (Clear)
	entries map[string]cacheEntry[T]
	deleted map[string]uint64 // per-id floor set by Delete
}

type cacheEntry[T any] struct {
	value T
	seq   uint64
}

// NewCache creates an empty cache.
func NewCache[T any]() *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]cacheEntry[T]),
		deleted: make(map[string]uint64),
	}
}

// Begin returns the sequence number for a fetch that is about to start.
func (c *Cache[T]) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Fill stores v only if id has no entry. Background prefetch writes go
// through Fill so they never replace what a direct load already stored.
func (c *Cache[T]) Fill(id string, v T, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(id, seq) {
		return false
	}
	if _, ok := c.entries[id]; ok {
		return false
	}
	c.entries[id] = cacheEntry[T]{value: v, seq: seq}
	return true
}

// Store writes v unless a result from a later fetch is already cached.
func (c *Cache[T]) Store(id string, v T, seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.staleLocked(id, seq) {
		return false
	}
	if e, ok := c.entries[id]; ok && e.seq > seq {
		return false
	}
	c.entries[id] = cacheEntry[T]{value: v, seq: seq}
	return true
}

func (c *Cache[T]) staleLocked(id string, seq uint64) bool {
	return seq <= c.floor || seq <= c.deleted[id]
}

// Get returns the cached payload for id.
func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	return e.value, ok
}

// Has reports whether id is cached.
func (c *Cache[T]) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Delete drops id. Fetches for id that began before the delete can no longer
// write it back.
func (c *Cache[T]) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.deleted[id] = c.seq
}

// Clear drops everything, including results still in flight.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry[T])
	c.deleted = make(map[string]uint64)
	c.floor = c.seq
}

// Len returns the number of cached entries.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
