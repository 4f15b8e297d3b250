// Package filecache serves static files from an origin through a bounded
// cache manager.
//
// Entries are keyed by name and modification time, so a file changed at the
// origin is fetched again on the next request instead of served stale. The
// superseded entry is left for eviction or expiry to reclaim.
package filecache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/internal/mediatype"
	"github.com/boundcache/boundcache/internal/origin"
)

// ErrNotListable is returned by WarmPrefix when the origin cannot list files.
var ErrNotListable = errors.New("filecache: origin cannot list files")

// Defaults used when the corresponding option is not given.
const (
	DefaultMaxFileSize     = 10 << 20
	DefaultWarmConcurrency = 8
)

// File is a fetched file. Data is shared with the cache and must not be
// modified.
type File struct {
	Name        string
	ContentType string
	ModTime     time.Time
	Data        []byte

	// Cached reports whether this fetch was served from the cache.
	Cached bool
}

// Cache is a read-through cache in front of an origin.
type Cache struct {
	origin          origin.Origin
	manager         *boundcache.Manager[File]
	maxFileSize     int64
	ttl             time.Duration
	warmConcurrency int
	logger          *zap.Logger

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxFileSize sets the largest file that is cached. Larger files are
// still served but always read from the origin. Zero disables the limit.
func WithMaxFileSize(n int64) Option {
	return func(c *Cache) {
		c.maxFileSize = n
	}
}

// WithTTL sets the TTL of cached files. Zero uses the manager's default.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithWarmConcurrency bounds how many files Warm reads at once.
func WithWarmConcurrency(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.warmConcurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a file cache reading from o and storing into m.
func New(o origin.Origin, m *boundcache.Manager[File], opts ...Option) *Cache {
	c := &Cache{
		origin:          o,
		manager:         m,
		maxFileSize:     DefaultMaxFileSize,
		warmConcurrency: DefaultWarmConcurrency,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for a file version.
func Key(name string, modTime time.Time) string {
	return name + "@" + strconv.FormatInt(modTime.UnixNano(), 10)
}

// Fetch returns the current content of name, from the cache when the cached
// version matches the origin's modification time.
func (c *Cache) Fetch(ctx context.Context, name string) (File, error) {
	info, err := c.origin.Stat(ctx, name)
	if err != nil {
		return File{}, err
	}

	key := Key(info.Name, info.ModTime)
	if f, ok := c.manager.Get(key); ok {
		f.Cached = true
		return f, nil
	}

	// Concurrent misses for the same version share one origin read. The
	// read outlives any single caller's cancellation; a cancelled caller
	// stops waiting for it.
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), key, info)
	})
	select {
	case <-ctx.Done():
		return File{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return File{}, r.Err
		}
		return r.Val.(File), nil
	}
}

func (c *Cache) load(ctx context.Context, key string, info origin.Info) (File, error) {
	data, err := c.origin.Read(ctx, info.Name)
	if err != nil {
		return File{}, fmt.Errorf("reading %s: %w", info.Name, err)
	}

	f := File{
		Name:        info.Name,
		ContentType: mediatype.Detect(info.Name, data),
		ModTime:     info.ModTime,
		Data:        data,
	}

	size := int64(len(data))
	if c.maxFileSize > 0 && size > c.maxFileSize {
		c.logger.Debug("file too large to cache",
			zap.String("name", info.Name),
			zap.Int64("size", size),
			zap.Int64("maxFileSize", c.maxFileSize),
		)
		return f, nil
	}

	opts := []boundcache.SetOption{
		boundcache.WithEntrySize(size),
		boundcache.WithPriority(mediatype.Priority(f.ContentType)),
	}
	if c.ttl > 0 {
		opts = append(opts, boundcache.WithTTL(c.ttl))
	}
	if err := c.manager.Set(key, f, opts...); err != nil {
		// A closed manager still lets the file be served.
		c.logger.Warn("caching file failed", zap.String("name", info.Name), zap.Error(err))
	}
	return f, nil
}

// Warm fetches names into the cache with bounded concurrency. Missing files
// are skipped; any other error stops the warm-up and is returned.
func (c *Cache) Warm(ctx context.Context, names []string) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.warmConcurrency)

	loaded := make([]bool, len(names))
	for i, name := range names {
		g.Go(func() error {
			if _, err := c.Fetch(ctx, name); err != nil {
				if errors.Is(err, origin.ErrNotFound) {
					c.logger.Debug("warm skipped missing file", zap.String("name", name))
					return nil
				}
				return err
			}
			loaded[i] = true
			return nil
		})
	}
	err := g.Wait()

	n := 0
	for _, ok := range loaded {
		if ok {
			n++
		}
	}
	c.logger.Info("cache warmed", zap.Int("files", n), zap.Int("requested", len(names)))
	return n, err
}

// WarmPrefix lists every file under prefix at the origin and warms them.
// The origin must implement origin.Lister.
func (c *Cache) WarmPrefix(ctx context.Context, prefix string) (int, error) {
	l, ok := c.origin.(origin.Lister)
	if !ok {
		return 0, ErrNotListable
	}
	names, err := l.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("listing %q: %w", prefix, err)
	}
	return c.Warm(ctx, names)
}

// Manager returns the underlying cache manager.
func (c *Cache) Manager() *boundcache.Manager[File] {
	return c.manager
}

// Close closes the origin. The manager is owned by the caller.
func (c *Cache) Close() error {
	return c.origin.Close()
}
