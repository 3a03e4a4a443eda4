package stowage

import (
	"context"
	"time"

	"github.com/unkn0wn-root/stowage/filestore"
	"github.com/unkn0wn-root/stowage/kv"
	"github.com/unkn0wn-root/stowage/memcache"
	"github.com/unkn0wn-root/stowage/paths"
)

// DefaultMaxEntryBytes is the cache admission gate: payloads of this size or
// larger are persisted but never cached.
const DefaultMaxEntryBytes = 1 << 20

// Storage is the storage facade. All methods are safe for concurrent use.
type Storage interface {
	// Store writes payload under key. For FileSystem targets the returned
	// path is where the payload landed; for KeyValue it is "".
	Store(ctx context.Context, key string, payload []byte, t Target) (path string, err error)

	// Retrieve returns the payload for key, consulting the memory cache first.
	// KeyValue: absent => (nil, false, nil). FileSystem: absent => *IOError.
	Retrieve(ctx context.Context, key string, t Target) (payload []byte, ok bool, err error)

	// Remove deletes key from the target backend and evicts it from the cache.
	// Removing an absent KeyValue key succeeds; an absent file is an *IOError.
	Remove(ctx context.Context, key string, t Target) error

	// Async variants run file I/O on the worker pool and never block the
	// caller on I/O, even when every worker is busy. StoreAsync copies
	// payload, so the caller may reuse it immediately. KeyValue calls
	// complete before returning.
	StoreAsync(ctx context.Context, key string, payload []byte, t Target) *Pending[string]
	RetrieveAsync(ctx context.Context, key string, t Target) *Pending[Retrieved]
	RemoveAsync(ctx context.Context, key string, t Target) *Pending[struct{}]

	// Close waits for in-flight async work, then releases the key/value
	// backend and the memory cache. Later calls fail with ErrClosed.
	Close(ctx context.Context) error
}

// Options configure New. Everything is optional.
type Options struct {
	Resolver paths.Resolver    // nil => paths.Standard{App: "stowage"}
	KeyValue kv.Backend        // nil => kv.NewMemory()
	Files    filestore.Backend // nil => filestore.New()
	Cache    memcache.Cache    // nil => memcache.NewMap() (unbounded)

	DisableCache  bool // every Retrieve goes to the backend
	MaxEntryBytes int  // 0 => DefaultMaxEntryBytes

	Workers     int // async file workers; 0 => GOMAXPROCS
	LockStripes int // per-key lock stripes; 0 => 256

	GenCleanupInterval time.Duration // 0 => 1h
	GenRetention       time.Duration // 0 => 24h

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

func New(opts Options) (Storage, error) {
	return newStorage(opts)
}
