// Package memorigin provides an in-memory origin for tests and demos.
package memorigin

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/boundcache/boundcache/internal/origin"
)

// Compile-time checks that Origin implements origin.Origin and origin.Lister.
var (
	_ origin.Origin = (*Origin)(nil)
	_ origin.Lister = (*Origin)(nil)
)

type file struct {
	data    []byte
	modTime time.Time
}

// Origin is an in-memory origin. It counts reads so callers can tell
// cache hits from origin fetches.
type Origin struct {
	mu    sync.RWMutex
	files map[string]file
	reads int
}

// New creates a new in-memory origin.
func New() *Origin {
	return &Origin{
		files: make(map[string]file),
	}
}

// Put stores data under name with the given modification time.
// The data is copied to prevent caller mutations from affecting the origin.
func (o *Origin) Put(name string, data []byte, modTime time.Time) {
	clean, err := origin.Clean(name)
	if err != nil {
		return
	}
	copied := make([]byte, len(data))
	copy(copied, data)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[clean] = file{data: copied, modTime: modTime}
}

// Remove deletes name.
func (o *Origin) Remove(name string) {
	clean, _ := origin.Clean(name)

	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.files, clean)
}

// Reads returns how many successful Read calls have been served.
func (o *Origin) Reads() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.reads
}

// List returns the stored names starting with prefix, sorted.
func (o *Origin) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.TrimPrefix(prefix, "/")

	o.mu.RLock()
	defer o.mu.RUnlock()
	var names []string
	for name := range o.files {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Stat returns metadata for name.
func (o *Origin) Stat(ctx context.Context, name string) (origin.Info, error) {
	clean, err := origin.Clean(name)
	if err != nil {
		return origin.Info{}, err
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	f, ok := o.files[clean]
	if !ok {
		return origin.Info{}, origin.ErrNotFound
	}
	return origin.Info{Name: clean, Size: int64(len(f.data)), ModTime: f.modTime}, nil
}

// Read returns the content of name.
func (o *Origin) Read(ctx context.Context, name string) ([]byte, error) {
	clean, err := origin.Clean(name)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	f, ok := o.files[clean]
	if !ok {
		return nil, origin.ErrNotFound
	}
	o.reads++
	return f.data, nil
}

// Close is a no-op for the memory origin.
func (o *Origin) Close() error {
	return nil
}
