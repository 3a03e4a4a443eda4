// Package gen tracks a per-key generation counter in process memory.
//
// Every mutation of a key bumps its generation. A reader that snapshots the
// generation before a slow backend read can later tell whether a writer got
// in between, and skip publishing what it read.
package gen

import (
	"sync"
	"time"
)

type entry struct {
	Gen       uint64
	UpdatedAt time.Time
}

// Tracker keeps generations in-process. Generations come from one
// tracker-wide counter, so a key never sees a value it has held before.
// Missing keys report the floor: 0 until the first prune, then the highest
// generation handed out at prune time. An optional cleanup loop prunes keys
// not bumped within retention.
type Tracker struct {
	mu     sync.RWMutex
	gens   map[string]entry
	seq    uint64
	floor  uint64
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func NewTracker(cleanupInterval, retention time.Duration) *Tracker {
	t := &Tracker{gens: make(map[string]entry)}
	if cleanupInterval > 0 && retention > 0 {
		t.ticker = time.NewTicker(cleanupInterval)
		t.stopCh = make(chan struct{})
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			for {
				select {
				case <-t.ticker.C:
					t.Cleanup(retention)
				case <-t.stopCh:
					return
				}
			}
		}()
	}
	return t
}

func (t *Tracker) Snapshot(key string) uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.gens[key]; ok {
		return e.Gen
	}
	return t.floor
}

// Bump assigns the key a fresh generation and returns it.
func (t *Tracker) Bump(key string) uint64 {
	now := time.Now()
	t.mu.Lock()
	t.seq++
	e := entry{Gen: t.seq, UpdatedAt: now}
	t.gens[key] = e
	t.mu.Unlock()
	return e.Gen
}

// Cleanup drops keys whose last bump is older than retention.
func (t *Tracker) Cleanup(retention time.Duration) int {
	if retention <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-retention)

	removed := 0
	t.mu.Lock()
	for k, e := range t.gens {
		if e.UpdatedAt.Before(cutoff) {
			delete(t.gens, k)
			removed++
		}
	}
	if removed > 0 {
		t.floor = t.seq
	}
	t.mu.Unlock()
	return removed
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.gens)
}

// Close stops the cleanup loop. Safe to call more than once.
func (t *Tracker) Close() {
	t.once.Do(func() {
		if t.stopCh != nil {
			t.ticker.Stop()
			close(t.stopCh)
			t.wg.Wait()
		}
	})
}
