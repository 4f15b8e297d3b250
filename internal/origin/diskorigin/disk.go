// Package diskorigin implements an origin backed by a local directory.
package diskorigin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/boundcache/boundcache/internal/origin"
)

// Compile-time checks that Origin implements origin.Origin and origin.Lister.
var (
	_ origin.Origin = (*Origin)(nil)
	_ origin.Lister = (*Origin)(nil)
)

// Origin serves files from a directory tree.
type Origin struct {
	root string
}

// New creates a new disk origin rooted at the given directory.
// The directory must exist.
func New(root string) (*Origin, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	return &Origin{root: root}, nil
}

// Root returns the directory files are served from.
func (o *Origin) Root() string {
	return o.root
}

// Stat returns metadata for name. Directories are reported as not found.
func (o *Origin) Stat(ctx context.Context, name string) (origin.Info, error) {
	if err := ctx.Err(); err != nil {
		return origin.Info{}, err
	}

	p, clean, err := o.path(name)
	if err != nil {
		return origin.Info{}, err
	}

	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return origin.Info{}, origin.ErrNotFound
		}
		return origin.Info{}, fmt.Errorf("stat %s: %w", clean, err)
	}
	if info.IsDir() {
		return origin.Info{}, origin.ErrNotFound
	}

	return origin.Info{
		Name:    clean,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Read returns the content of name.
func (o *Origin) Read(ctx context.Context, name string) ([]byte, error) {
	// Check for cancellation before starting I/O.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, clean, err := o.path(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, origin.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s: %w", clean, err)
	}
	return data, nil
}

// List walks the tree and returns the slash-separated names of regular
// files whose name starts with prefix.
func (o *Origin) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimPrefix(prefix, "/")

	var names []string
	err := filepath.WalkDir(o.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(o.root, p)
		if err != nil {
			return err
		}
		if name := filepath.ToSlash(rel); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", o.root, err)
	}
	return names, nil
}

// Close releases any resources held by the origin.
func (o *Origin) Close() error {
	return nil
}

func (o *Origin) path(name string) (full, clean string, err error) {
	clean, err = origin.Clean(name)
	if err != nil {
		return "", "", err
	}
	return filepath.Join(o.root, filepath.FromSlash(clean)), clean, nil
}
