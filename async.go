package stowage

import (
	"context"
	"slices"
)

// Retrieved is the result of RetrieveAsync. Found mirrors Retrieve's ok.
type Retrieved struct {
	Payload []byte
	Found   bool
}

// Pending is the handle for an async call. The call runs to completion
// whether or not anybody waits for it.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newPending[T any]() *Pending[T] {
	return &Pending[T]{done: make(chan struct{})}
}

func resolved[T any](v T, err error) *Pending[T] {
	p := newPending[T]()
	p.resolve(v, err)
	return p
}

func (p *Pending[T]) resolve(v T, err error) {
	p.val, p.err = v, err
	close(p.done)
}

// Done is closed once the result is available.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Wait blocks until the call completes or ctx is done. Giving up on ctx does
// not cancel the underlying call.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (s *storage) StoreAsync(ctx context.Context, key string, payload []byte, t Target) *Pending[string] {
	if _, ok := t.(FileSystem); !ok {
		path, err := s.Store(ctx, key, payload, t)
		return resolved(path, err)
	}
	// the caller may reuse payload as soon as we return
	payload = slices.Clone(payload)
	p := newPending[string]()
	s.submit(func() { p.resolve(s.store(ctx, key, payload, t)) }, func(err error) { p.resolve("", err) })
	return p
}

func (s *storage) RetrieveAsync(ctx context.Context, key string, t Target) *Pending[Retrieved] {
	if _, ok := t.(FileSystem); !ok {
		b, found, err := s.Retrieve(ctx, key, t)
		return resolved(Retrieved{Payload: b, Found: found}, err)
	}
	p := newPending[Retrieved]()
	s.submit(func() {
		b, found, err := s.retrieve(ctx, key, t)
		p.resolve(Retrieved{Payload: b, Found: found}, err)
	}, func(err error) { p.resolve(Retrieved{}, err) })
	return p
}

func (s *storage) RemoveAsync(ctx context.Context, key string, t Target) *Pending[struct{}] {
	if _, ok := t.(FileSystem); !ok {
		return resolved(struct{}{}, s.Remove(ctx, key, t))
	}
	p := newPending[struct{}]()
	s.submit(func() { p.resolve(struct{}{}, s.remove(ctx, key, t)) }, func(err error) { p.resolve(struct{}{}, err) })
	return p
}

// submit hands fn to the worker pool, or calls reject when closed. It never
// waits for a free worker: pool.Go blocks while every worker is busy, so that
// wait happens on a goroutine of its own, outside lifeMu.
func (s *storage) submit(fn func(), reject func(error)) {
	s.lifeMu.RLock()
	if s.closed.Load() {
		s.lifeMu.RUnlock()
		reject(ErrClosed)
		return
	}
	s.handoff.Add(1)
	s.lifeMu.RUnlock()

	go func() {
		defer s.handoff.Done()
		s.workers.Go(fn)
	}()
}
