// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    HitEvery:  100, // sample logs: ~every 100th hit
//	    MissEvery: 10,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	s, _ := stowage.New(stowage.Options{
//	    Resolver: paths.Standard{App: "notes"},
//	    Hooks:    hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/stowage"
)

// Hooks forwards events to inner on background workers. Events are dropped
// when the queue is full or after Close.
type Hooks struct {
	inner stowage.Hooks
	q     chan func()
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ stowage.Hooks = (*Hooks)(nil)

func New(inner stowage.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close stops accepting events and waits for queued ones to be delivered.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped is the number of events discarded so far.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) CacheHit(ns, k string)  { h.try(func() { h.inner.CacheHit(ns, k) }) }
func (h *Hooks) CacheMiss(ns, k string) { h.try(func() { h.inner.CacheMiss(ns, k) }) }
func (h *Hooks) CacheAdmitSkipped(ns, k string, size int, r string) {
	h.try(func() { h.inner.CacheAdmitSkipped(ns, k, size, r) })
}
func (h *Hooks) BackendError(op, ns, k string, err error) {
	h.try(func() { h.inner.BackendError(op, ns, k, err) })
}
