// Package memcache defines the in-process payload cache that fronts the
// storage backends.
//
// A cache is an accelerant, never a source of truth: implementations may drop
// any entry at any time. They must be safe for concurrent use and byte-for-byte
// transparent: Get returns exactly the bytes previously passed to Set. Callers
// own neither the slice they pass to Set nor the one returned by Get and must
// not mutate them.
package memcache

import "sync"

type Cache interface {
	// Get returns (value, true) on hit.
	Get(key string) ([]byte, bool)
	// Set stores value. ok=false means the cache refused it (capacity, admission policy).
	Set(key string, value []byte) (ok bool)
	// Delete removes key. Missing keys are ignored.
	Delete(key string)
	// Close releases resources.
	Close() error
}

// Map is an unbounded map guarded by an RWMutex. It never evicts on its own:
// entries live until overwritten, deleted or the Map is dropped.
type Map struct {
	mu sync.RWMutex
	m  map[string][]byte
}

var _ Cache = (*Map)(nil)

func NewMap() *Map {
	return &Map{m: make(map[string][]byte)}
}

func (c *Map) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	v, ok := c.m[key]
	c.mu.RUnlock()
	return v, ok
}

func (c *Map) Set(key string, value []byte) bool {
	c.mu.Lock()
	c.m[key] = value
	c.mu.Unlock()
	return true
}

func (c *Map) Delete(key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

func (c *Map) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Bytes is the sum of all cached payload lengths.
func (c *Map) Bytes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, v := range c.m {
		n += len(v)
	}
	return n
}

func (c *Map) Close() error {
	c.mu.Lock()
	c.m = make(map[string][]byte)
	c.mu.Unlock()
	return nil
}

// Nop caches nothing. Every Get misses.
type Nop struct{}

var _ Cache = Nop{}

func (Nop) Get(string) ([]byte, bool) { return nil, false }
func (Nop) Set(string, []byte) bool   { return false }
func (Nop) Delete(string)             {}
func (Nop) Close() error              { return nil }
