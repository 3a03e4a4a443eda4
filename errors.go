package stowage

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/unkn0wn-root/stowage/paths"
)

var (
	ErrInvalidKey    = paths.ErrInvalidKey
	ErrUnknownTarget = errors.New("stowage: unknown target")
	ErrClosed        = errors.New("stowage: storage closed")
)

// DirectoryError: the resolver could not supply a directory for a Location.
type DirectoryError = paths.DirectoryError

// IOError is a file backend failure, including a missing file.
type IOError struct {
	Op   string // "store", "retrieve", "remove"
	Key  string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("stowage: %s %q (%s): %v", e.Op, e.Key, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// NotFound reports whether the file did not exist.
func (e *IOError) NotFound() bool { return errors.Is(e.Err, fs.ErrNotExist) }

// KeyValueError is a key/value backend failure. Absence is never one.
type KeyValueError struct {
	Op  string
	Key string
	Err error
}

func (e *KeyValueError) Error() string {
	return fmt.Sprintf("stowage: kv %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *KeyValueError) Unwrap() error { return e.Err }

func unknownTarget(t Target) error {
	return fmt.Errorf("%w: %T", ErrUnknownTarget, t)
}
