// Package filestore reads, writes and deletes whole files.
//
// There are no partial reads or streams: every call materializes the full
// payload in memory. Writes go to a temp file in the target directory and are
// renamed into place, so a concurrent reader sees either the old or the new
// payload, never a mix.
package filestore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend is the file persistence contract used by the storage facade.
type Backend interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Remove(path string) error
}

// Store is the os-backed Backend.
type Store struct {
	dirPerm    os.FileMode
	filePerm   os.FileMode
	compressor *compressor
}

var _ Backend = (*Store)(nil)

type Option func(*Store)

// WithCompression stores payloads as zstd frames when that makes them smaller.
// level: 1 fastest, 2 default, 3 better compression.
// Files written this way are no longer raw payload bytes on disk.
func WithCompression(level int) Option {
	return func(s *Store) { s.compressor = &compressor{level: level} }
}

// WithPerm overrides the directory and file modes (defaults 0o755 / 0o644).
func WithPerm(dir, file os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = dir
		s.filePerm = file
	}
}

func New(opts ...Option) (*Store, error) {
	s := &Store{dirPerm: 0o755, filePerm: 0o644}
	for _, o := range opts {
		o(s)
	}
	if s.compressor != nil {
		if err := s.compressor.init(); err != nil {
			return nil, fmt.Errorf("filestore: create compressor: %w", err)
		}
	}
	return s, nil
}

// Read returns the payload at path. A missing file yields an error
// satisfying errors.Is(err, fs.ErrNotExist).
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if s.compressor != nil {
		return s.compressor.decompress(data)
	}
	return data, nil
}

// Write creates or replaces the file at path, creating parent directories.
func (s *Store) Write(path string, data []byte) error {
	if s.compressor != nil {
		data = s.compressor.compress(data)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".stowage-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(s.filePerm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// Remove deletes the file at path. A missing file is an error.
func (s *Store) Remove(path string) error {
	return os.Remove(path)
}

// Close releases the zstd encoder/decoder, if any.
func (s *Store) Close() error {
	if s.compressor != nil {
		s.compressor.close()
	}
	return nil
}
