package paths

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Standard resolves locations to the platform's user directories:
// Document -> XDG documents dir, Library -> XDG data home, Cache -> XDG cache home.
// When App is set, each location gets an App subdirectory.
type Standard struct {
	App string
}

var _ Resolver = Standard{}

func (s Standard) Dir(loc Location) (string, error) {
	var base string
	switch loc {
	case Document:
		base = xdg.UserDirs.Documents
	case Library:
		base = xdg.DataHome
	case Cache:
		base = xdg.CacheHome
	default:
		return "", &DirectoryError{Location: loc, Err: ErrUnknownLocation}
	}
	if base == "" {
		return "", &DirectoryError{Location: loc, Err: ErrNoDirectory}
	}
	if s.App != "" {
		base = filepath.Join(base, s.App)
	}
	return base, nil
}

// Fixed resolves every location to a subdirectory of a single root.
// Useful for tests, containers and anything that should not touch $HOME.
type Fixed string

var _ Resolver = Fixed("")

func (f Fixed) Dir(loc Location) (string, error) {
	if f == "" {
		return "", &DirectoryError{Location: loc, Err: ErrNoDirectory}
	}
	switch loc {
	case Document, Library, Cache:
		return filepath.Join(string(f), loc.String()), nil
	}
	return "", &DirectoryError{Location: loc, Err: ErrUnknownLocation}
}
