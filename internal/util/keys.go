package util

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// CacheKey isolates a key by backend namespace, e.g. "kv:avatar" or "fs:cache:avatar".
func CacheKey(ns, key string) string {
	return ns + ":" + key
}

// Striped is a fixed set of mutexes addressed by key hash. Operations on the
// same key always take the same mutex; unrelated keys rarely contend.
type Striped struct {
	locks []sync.Mutex
}

func NewStriped(n int) *Striped {
	if n <= 0 {
		n = 1
	}
	return &Striped{locks: make([]sync.Mutex, n)}
}

// Lock acquires the stripe for key and returns its unlock func.
func (s *Striped) Lock(key string) (unlock func()) {
	m := &s.locks[s.index(key)]
	m.Lock()
	return m.Unlock
}

func (s *Striped) index(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(s.locks)))
}
