// Package paths maps logical storage locations to directories on the host
// and derives per-key file paths inside them.
//
// Keys are used as a single path segment. They are validated, never escaped:
// a key that could leave its directory is rejected with ErrInvalidKey.
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Location is a named directory class.
type Location uint8

const (
	Document Location = iota + 1
	Library
	Cache
)

var (
	ErrInvalidKey      = errors.New("stowage: invalid key")
	ErrUnknownLocation = errors.New("paths: unknown location")
	ErrNoDirectory     = errors.New("paths: directory unavailable")
)

func (l Location) String() string {
	switch l {
	case Document:
		return "document"
	case Library:
		return "library"
	case Cache:
		return "cache"
	default:
		return fmt.Sprintf("location(%d)", uint8(l))
	}
}

// ParseLocation is the inverse of Location.String.
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(s) {
	case "document", "documents":
		return Document, nil
	case "library":
		return Library, nil
	case "cache", "caches":
		return Cache, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownLocation, s)
}

// Resolver answers the single question the file backend needs:
// which directory backs a location.
type Resolver interface {
	Dir(loc Location) (string, error)
}

// DirectoryError reports that no directory could be supplied for a location.
type DirectoryError struct {
	Location Location
	Err      error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("stowage: resolve %s directory: %v", e.Location, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// ValidateKey rejects keys that are empty or that are not a single path segment.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty key", ErrInvalidKey)
	case key == "." || key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}

// Join returns <dir>/<key> after validating key.
func Join(dir, key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(dir, key), nil
}
