// Package origin defines where the file cache reads uncached content from.
package origin

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a file does not exist in the origin.
	ErrNotFound = errors.New("origin: file not found")

	// ErrInvalidName is returned for names that cannot address a file.
	ErrInvalidName = errors.New("origin: invalid file name")
)

// Info describes a file without reading its content.
type Info struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// Origin defines the interface for content backends.
// Implementations handle path formats and storage details internally.
type Origin interface {
	// Stat returns metadata for name.
	Stat(ctx context.Context, name string) (Info, error)

	// Read returns the full content of name.
	Read(ctx context.Context, name string) ([]byte, error)

	// Close releases any resources held by the origin.
	Close() error
}

// Lister is implemented by origins that can enumerate their files.
type Lister interface {
	// List returns the names of all files under prefix, sorted. An empty
	// prefix lists the whole origin.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Clean normalizes a slash-separated name to a relative path that cannot
// escape the origin root. Leading slashes and ".." elements are resolved
// against the root.
func Clean(name string) (string, error) {
	if strings.ContainsRune(name, 0) || strings.ContainsRune(name, '\\') {
		return "", ErrInvalidName
	}
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if cleaned == "" {
		return "", ErrInvalidName
	}
	return cleaned, nil
}
