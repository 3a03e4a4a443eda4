// Package stowage persists named byte payloads through one of several
// interchangeable backends, accelerated by an in-process memory cache.
//
// Components:
//   - Target: where a call goes. KeyValue{} or FileSystem{Location}.
//   - kv.Backend: flat key/value store (in-memory, prefs file, SQLite, Redis).
//   - filestore.Backend: whole-file read/write/delete.
//   - paths.Resolver: Location -> directory. Files live at <dir>/<key>.
//   - memcache.Cache: key -> payload accelerant, size-gated on admission.
//
// Absence is reported differently per backend: a KeyValue miss is
// (nil, false, nil), a FileSystem miss is an *IOError wrapping fs.ErrNotExist.
//
// Cache keys are namespaced per target, so the same key in two backends
// never aliases:
//
//	kv:<key>
//	fs:<location>:<key>
//
// Usage:
//
//	s, _ := stowage.New(stowage.Options{Resolver: paths.Standard{App: "myapp"}})
//	defer s.Close(ctx)
//
//	path, _ := s.Store(ctx, "avatar", png, stowage.FileSystem{Location: stowage.LocationCache})
//	b, ok, err := s.Retrieve(ctx, "avatar", stowage.FileSystem{Location: stowage.LocationCache})
//
//	p := s.RetrieveAsync(ctx, "avatar", stowage.FileSystem{Location: stowage.LocationCache})
//	r, err := p.Wait(ctx)
package stowage
