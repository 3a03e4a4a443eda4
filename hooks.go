package stowage

// Hooks are lightweight callbacks for cache and backend events.
// Implementations MUST be cheap and non-blocking; they run on every call.
// ns is the target namespace ("kv", "fs:cache", ...).
type Hooks interface {
	CacheHit(ns, key string)
	CacheMiss(ns, key string)

	// A payload was not admitted to the memory cache.
	// reason ∈ {"oversize", "stale", "rejected"}
	CacheAdmitSkipped(ns, key string, size int, reason string)

	// A backend call failed. op ∈ {"store", "retrieve", "remove"}.
	// Directory resolution failures and invalid keys are not reported here.
	BackendError(op, ns, key string, err error)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) CacheHit(string, string)                       {}
func (NopHooks) CacheMiss(string, string)                      {}
func (NopHooks) CacheAdmitSkipped(string, string, int, string) {}
func (NopHooks) BackendError(string, string, string, error)    {}
