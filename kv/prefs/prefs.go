// Package prefs is a file-persisted kv.Backend: the whole key space lives in
// one snapshot file that is rewritten after every mutation, the same way a
// desktop preferences store behaves.
//
// The snapshot is a wire-framed codec payload. The codec used to write is
// chosen by Format; reads honor whatever format the file header records.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	c "github.com/unkn0wn-root/stowage/codec"
	"github.com/unkn0wn-root/stowage/filestore"
	"github.com/unkn0wn-root/stowage/internal/wire"
	"github.com/unkn0wn-root/stowage/kv"
)

type Format byte

const (
	CBOR Format = iota + 1
	Msgpack
	JSON
)

func (f Format) String() string {
	switch f {
	case CBOR:
		return "cbor"
	case Msgpack:
		return "msgpack"
	case JSON:
		return "json"
	}
	return fmt.Sprintf("format(%d)", byte(f))
}

// ParseFormat accepts "cbor", "msgpack" or "json"; empty means CBOR.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "cbor":
		return CBOR, nil
	case "msgpack":
		return Msgpack, nil
	case "json":
		return JSON, nil
	}
	return 0, fmt.Errorf("prefs: unknown format %q", s)
}

type snapshot = map[string][]byte

func codecFor(f Format) (c.Codec[snapshot], error) {
	switch f {
	case CBOR:
		return c.MustCBOR[snapshot](true), nil
	case Msgpack:
		return c.Msgpack[snapshot]{}, nil
	case JSON:
		return c.JSON[snapshot]{}, nil
	}
	return nil, fmt.Errorf("prefs: unknown format %d", byte(f))
}

type Options struct {
	Format Format            // 0 => CBOR
	Files  filestore.Backend // nil => plain filestore
}

// Store implements kv.Backend over a single snapshot file.
type Store struct {
	path   string
	format Format
	codec  c.Codec[snapshot]
	files  filestore.Backend

	mu sync.RWMutex
	m  snapshot
}

var _ kv.Backend = (*Store)(nil)

// Open loads path if it exists; a missing file starts an empty store.
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, errors.New("prefs: path is required")
	}
	format := opts.Format
	if format == 0 {
		format = CBOR
	}
	cd, err := codecFor(format)
	if err != nil {
		return nil, err
	}
	files := opts.Files
	if files == nil {
		fsStore, err := filestore.New()
		if err != nil {
			return nil, err
		}
		files = fsStore
	}

	s := &Store{path: path, format: format, codec: cd, files: files}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := s.files.Read(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.m = make(snapshot)
		return nil
	}
	if err != nil {
		return fmt.Errorf("prefs: read %s: %w", s.path, err)
	}

	f, payload, err := wire.DecodeSnapshot(raw)
	if err != nil {
		return fmt.Errorf("prefs: %s: %w", s.path, err)
	}
	cd, err := codecFor(Format(f))
	if err != nil {
		return err
	}
	m, err := cd.Decode(payload)
	if err != nil {
		return fmt.Errorf("prefs: decode %s: %w", s.path, err)
	}
	if m == nil {
		m = make(snapshot)
	}
	s.m = m
	return nil
}

// persist writes the current map. Caller holds s.mu.
func (s *Store) persist() error {
	payload, err := s.codec.Encode(s.m)
	if err != nil {
		return fmt.Errorf("prefs: encode: %w", err)
	}
	framed, err := wire.EncodeSnapshot(byte(s.format), payload)
	if err != nil {
		return fmt.Errorf("prefs: %s: %w", s.path, err)
	}
	if err := s.files.Write(s.path, framed); err != nil {
		return fmt.Errorf("prefs: write %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set updates key and rewrites the snapshot. On write failure the in-memory
// state is rolled back, so memory and file never disagree.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	v := slices.Clone(value)
	if v == nil {
		v = []byte{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.m[key]
	s.m[key] = v
	if err := s.persist(); err != nil {
		if had {
			s.m[key] = prev
		} else {
			delete(s.m, key)
		}
		return err
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.m[key]
	if !had {
		return nil
	}
	delete(s.m, key)
	if err := s.persist(); err != nil {
		s.m[key] = prev
		return err
	}
	return nil
}

func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close(context.Context) error { return nil }
