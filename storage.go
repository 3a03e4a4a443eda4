package stowage

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/unkn0wn-root/stowage/filestore"
	"github.com/unkn0wn-root/stowage/internal/gen"
	"github.com/unkn0wn-root/stowage/internal/util"
	"github.com/unkn0wn-root/stowage/kv"
	"github.com/unkn0wn-root/stowage/memcache"
	"github.com/unkn0wn-root/stowage/paths"
)

const (
	defaultLockStripes  = 256
	defaultGenSweep     = time.Hour
	defaultGenRetention = 24 * time.Hour
)

type storage struct {
	resolver paths.Resolver
	kv       kv.Backend
	files    filestore.Backend
	cache    memcache.Cache
	maxEntry int
	log      Logger
	hooks    Hooks

	// gens: bumped by every store/remove; guards cache admission after a read.
	gens  *gen.Tracker
	locks *util.Striped

	// lifeMu is held shared by calls and submissions, exclusively by Close.
	lifeMu    sync.RWMutex
	handoff   sync.WaitGroup // submissions not yet accepted by workers
	workers   *pool.Pool
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newStorage(opts Options) (*storage, error) {
	if opts.MaxEntryBytes < 0 {
		return nil, errors.New("stowage: MaxEntryBytes must be >= 0")
	}

	s := &storage{
		resolver: opts.Resolver,
		kv:       opts.KeyValue,
		files:    opts.Files,
		cache:    opts.Cache,
	}

	if s.resolver == nil {
		s.resolver = paths.Standard{App: "stowage"}
	}
	if s.kv == nil {
		s.kv = kv.NewMemory()
	}
	if s.files == nil {
		fsStore, err := filestore.New()
		if err != nil {
			return nil, err
		}
		s.files = fsStore
	}
	switch {
	case opts.DisableCache:
		s.cache = memcache.Nop{}
	case s.cache == nil:
		s.cache = memcache.NewMap()
	}

	s.maxEntry = coalesce(opts.MaxEntryBytes, DefaultMaxEntryBytes)
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.locks = util.NewStriped(coalesce(opts.LockStripes, defaultLockStripes))
	s.gens = gen.NewTracker(
		coalesce(opts.GenCleanupInterval, defaultGenSweep),
		coalesce(opts.GenRetention, defaultGenRetention),
	)
	s.workers = pool.New().WithMaxGoroutines(coalesce(opts.Workers, runtime.GOMAXPROCS(0)))

	return s, nil
}

func (s *storage) Store(ctx context.Context, key string, payload []byte, t Target) (string, error) {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.closed.Load() {
		return "", ErrClosed
	}
	return s.store(ctx, key, payload, t)
}

func (s *storage) Retrieve(ctx context.Context, key string, t Target) ([]byte, bool, error) {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	return s.retrieve(ctx, key, t)
}

func (s *storage) Remove(ctx context.Context, key string, t Target) error {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.closed.Load() {
		return ErrClosed
	}
	return s.remove(ctx, key, t)
}

// store writes the backend first, then the cache, both under the key's stripe,
// so concurrent stores of one key leave backend and cache agreeing.
func (s *storage) store(ctx context.Context, key string, payload []byte, t Target) (string, error) {
	ck, err := s.cacheKey(key, t)
	if err != nil {
		return "", err
	}

	unlock := s.locks.Lock(ck)
	defer unlock()

	var path string
	switch t := t.(type) {
	case KeyValue:
		if err := s.kv.Set(ctx, key, payload); err != nil {
			s.backendError("store", t, key, err)
			return "", &KeyValueError{Op: "store", Key: key, Err: err}
		}
	case FileSystem:
		path, err = s.filePath(key, t.Location)
		if err != nil {
			return "", err
		}
		if err := s.files.Write(path, payload); err != nil {
			s.backendError("store", t, key, err)
			return "", &IOError{Op: "store", Key: key, Path: path, Err: err}
		}
	default:
		return "", unknownTarget(t)
	}

	s.gens.Bump(ck)
	s.admit(t, key, ck, payload)
	return path, nil
}

func (s *storage) retrieve(ctx context.Context, key string, t Target) ([]byte, bool, error) {
	ck, err := s.cacheKey(key, t)
	if err != nil {
		return nil, false, err
	}

	if b, ok := s.cache.Get(ck); ok {
		s.hooks.CacheHit(t.namespace(), key)
		return slices.Clone(b), true, nil
	}
	s.hooks.CacheMiss(t.namespace(), key)

	observed := s.gens.Snapshot(ck)

	var payload []byte
	switch t := t.(type) {
	case KeyValue:
		var ok bool
		payload, ok, err = s.kv.Get(ctx, key)
		if err != nil {
			s.backendError("retrieve", t, key, err)
			return nil, false, &KeyValueError{Op: "retrieve", Key: key, Err: err}
		}
		if !ok {
			return nil, false, nil
		}
	case FileSystem:
		path, err := s.filePath(key, t.Location)
		if err != nil {
			return nil, false, err
		}
		payload, err = s.files.Read(path)
		if err != nil {
			s.backendError("retrieve", t, key, err)
			return nil, false, &IOError{Op: "retrieve", Key: key, Path: path, Err: err}
		}
	default:
		return nil, false, unknownTarget(t)
	}

	unlock := s.locks.Lock(ck)
	if s.gens.Snapshot(ck) == observed {
		s.admit(t, key, ck, payload)
	} else {
		// a store or remove landed while we were reading; what we hold may be stale
		s.hooks.CacheAdmitSkipped(t.namespace(), key, len(payload), "stale")
		s.log.Debug("cache admit skipped (gen moved)", Fields{"target": t.String(), "key": key})
	}
	unlock()

	return payload, true, nil
}

// remove always evicts the cache entry, even when the backend call fails.
func (s *storage) remove(ctx context.Context, key string, t Target) error {
	ck, err := s.cacheKey(key, t)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(ck)
	defer unlock()

	var opErr error
	switch t := t.(type) {
	case KeyValue:
		if err := s.kv.Delete(ctx, key); err != nil {
			s.backendError("remove", t, key, err)
			opErr = &KeyValueError{Op: "remove", Key: key, Err: err}
		}
	case FileSystem:
		path, err := s.filePath(key, t.Location)
		if err != nil {
			return err
		}
		if err := s.files.Remove(path); err != nil {
			s.backendError("remove", t, key, err)
			opErr = &IOError{Op: "remove", Key: key, Path: path, Err: err}
		}
	default:
		return unknownTarget(t)
	}

	s.gens.Bump(ck)
	s.cache.Delete(ck)
	return opErr
}

// admit applies the size gate and caches a private copy of payload.
// Caller holds the key's stripe.
func (s *storage) admit(t Target, key, ck string, payload []byte) {
	if len(payload) >= s.maxEntry {
		// an older, smaller value may still be cached under this key
		s.cache.Delete(ck)
		s.hooks.CacheAdmitSkipped(t.namespace(), key, len(payload), "oversize")
		s.log.Debug("cache admit skipped (oversize)", Fields{"target": t.String(), "key": key, "size": len(payload)})
		return
	}
	if !s.cache.Set(ck, slices.Clone(payload)) {
		s.cache.Delete(ck)
		s.hooks.CacheAdmitSkipped(t.namespace(), key, len(payload), "rejected")
		s.log.Debug("cache admit rejected by cache", Fields{"target": t.String(), "key": key})
	}
}

func (s *storage) cacheKey(key string, t Target) (string, error) {
	switch t := t.(type) {
	case KeyValue:
		if key == "" {
			return "", paths.ValidateKey(key)
		}
	case FileSystem:
		if err := paths.ValidateKey(key); err != nil {
			return "", err
		}
	case nil:
		return "", ErrUnknownTarget
	default:
		return "", unknownTarget(t)
	}
	return util.CacheKey(t.namespace(), key), nil
}

func (s *storage) filePath(key string, loc Location) (string, error) {
	dir, err := s.resolver.Dir(loc)
	if err != nil {
		var de *DirectoryError
		if errors.As(err, &de) {
			return "", err
		}
		return "", &DirectoryError{Location: loc, Err: err}
	}
	return paths.Join(dir, key)
}

func (s *storage) backendError(op string, t Target, key string, err error) {
	s.hooks.BackendError(op, t.namespace(), key, err)
	s.log.Warn("backend "+op+" failed", Fields{"target": t.String(), "key": key, "err": err})
}

func (s *storage) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.lifeMu.Lock()
		s.closed.Store(true)
		s.lifeMu.Unlock()

		drained := make(chan struct{})
		go func() {
			s.handoff.Wait()
			s.workers.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			// in-flight work still uses the backends; release them once it drains
			s.closeErr = ctx.Err()
			go func() {
				<-drained
				if err := s.release(context.Background()); err != nil {
					s.log.Warn("release after close timeout failed", Fields{"err": err})
				}
			}()
			return
		}

		s.closeErr = s.release(ctx)
	})
	return s.closeErr
}

func (s *storage) release(ctx context.Context) error {
	s.gens.Close()
	return errors.Join(s.kv.Close(ctx), s.cache.Close())
}
