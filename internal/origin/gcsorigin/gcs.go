// Package gcsorigin implements an origin backed by a Google Cloud Storage bucket.
package gcsorigin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/boundcache/boundcache/internal/origin"
)

// Compile-time checks that Origin implements origin.Origin and origin.Lister.
var (
	_ origin.Origin = (*Origin)(nil)
	_ origin.Lister = (*Origin)(nil)
)

// objects is the slice of a bucket the origin touches.
type objects interface {
	attrs(ctx context.Context, key string) (*storage.ObjectAttrs, error)
	reader(ctx context.Context, key string) (io.ReadCloser, error)
	list(ctx context.Context, prefix string) ([]string, error)
}

type bucketObjects struct {
	bucket *storage.BucketHandle
}

func (b bucketObjects) attrs(ctx context.Context, key string) (*storage.ObjectAttrs, error) {
	return b.bucket.Object(key).Attrs(ctx)
}

func (b bucketObjects) reader(ctx context.Context, key string) (io.ReadCloser, error) {
	return b.bucket.Object(key).NewReader(ctx)
}

func (b bucketObjects) list(ctx context.Context, prefix string) ([]string, error) {
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

// Origin serves objects from a GCS bucket.
type Origin struct {
	client  *storage.Client
	objects objects
	prefix  string
}

// New creates a new GCS origin.
// The bucket must already exist.
func New(ctx context.Context, bucketName string, opts ...Option) (*Origin, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating GCS client: %w", err)
	}

	o := &Origin{
		client:  client,
		objects: bucketObjects{bucket: client.Bucket(bucketName)},
	}

	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Option configures an Origin.
type Option func(*Origin)

// WithPrefix sets a key prefix for all operations.
func WithPrefix(prefix string) Option {
	return func(o *Origin) {
		o.prefix = strings.TrimSuffix(prefix, "/")
		if o.prefix != "" {
			o.prefix += "/"
		}
	}
}

// Stat returns metadata for name from the object's attributes.
func (o *Origin) Stat(ctx context.Context, name string) (origin.Info, error) {
	key, clean, err := o.objectKey(name)
	if err != nil {
		return origin.Info{}, err
	}

	attrs, err := o.objects.attrs(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return origin.Info{}, origin.ErrNotFound
		}
		return origin.Info{}, fmt.Errorf("attrs %s: %w", key, err)
	}

	return origin.Info{
		Name:    clean,
		Size:    attrs.Size,
		ModTime: attrs.Updated,
	}, nil
}

// Read returns the content of name.
func (o *Origin) Read(ctx context.Context, name string) ([]byte, error) {
	// Check for cancellation before starting.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, _, err := o.objectKey(name)
	if err != nil {
		return nil, err
	}

	reader, err := o.objects.reader(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, origin.ErrNotFound
		}
		return nil, fmt.Errorf("creating reader: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return data, nil
}

// List returns the names of objects under prefix, relative to the origin
// prefix. Directory placeholder objects are skipped.
func (o *Origin) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := o.objects.list(ctx, o.prefix+strings.TrimPrefix(prefix, "/"))
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, o.prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Close releases resources.
func (o *Origin) Close() error {
	if o.client == nil {
		return nil
	}
	return o.client.Close()
}

// objectKey returns the full object key for name.
func (o *Origin) objectKey(name string) (key, clean string, err error) {
	clean, err = origin.Clean(name)
	if err != nil {
		return "", "", err
	}
	return o.prefix + clean, clean, nil
}
