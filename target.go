package stowage

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/stowage/paths"
)

type Location = paths.Location

const (
	LocationDocument = paths.Document
	LocationLibrary  = paths.Library
	LocationCache    = paths.Cache
)

// Target selects the backend for a call. It is a closed set: KeyValue and
// FileSystem are the only implementations.
type Target interface {
	namespace() string
	String() string
}

// KeyValue routes a call to the key/value backend.
type KeyValue struct{}

// FileSystem routes a call to the file backend, under Location's directory.
type FileSystem struct {
	Location Location
}

func (KeyValue) namespace() string { return "kv" }
func (KeyValue) String() string    { return "kv" }

func (f FileSystem) namespace() string { return "fs:" + f.Location.String() }
func (f FileSystem) String() string    { return f.Location.String() }

// ParseTarget maps "kv" (or "keyvalue") to KeyValue and a location name to FileSystem.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "kv", "keyvalue":
		return KeyValue{}, nil
	}
	loc, err := paths.ParseLocation(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, s)
	}
	return FileSystem{Location: loc}, nil
}
