// Package compresscache caches compressed response bodies so each distinct
// body is compressed once per encoding.
package compresscache

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/internal/codec"
	"github.com/boundcache/boundcache/internal/codec/gzipcodec"
	"github.com/boundcache/boundcache/internal/codec/zstdcodec"
	"github.com/boundcache/boundcache/internal/mediatype"
)

// ErrUnsupportedEncoding is returned for encodings the cache has no codec for.
var ErrUnsupportedEncoding = errors.New("compresscache: unsupported encoding")

// DefaultMinSize is the smallest body worth compressing.
const DefaultMinSize = 1024

// Cache compresses bodies through a set of codecs and caches the results.
type Cache struct {
	manager *boundcache.Manager[[]byte]
	codecs  map[string]codec.Codec
	// preference lists encodings best first.
	preference []string
	minSize    int
	ttl        time.Duration
	logger     *zap.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithCodecs replaces the default codecs (zstd, then gzip). Order sets the
// preference used by Negotiate.
func WithCodecs(codecs ...codec.Codec) Option {
	return func(c *Cache) {
		c.codecs = make(map[string]codec.Codec, len(codecs))
		c.preference = c.preference[:0]
		for _, cd := range codecs {
			c.codecs[cd.Encoding()] = cd
			c.preference = append(c.preference, cd.Encoding())
		}
	}
}

// WithMinSize sets the smallest body that is compressed.
func WithMinSize(n int) Option {
	return func(c *Cache) {
		c.minSize = n
	}
}

// WithTTL sets the TTL of cached encodings. Zero uses the manager's default.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		c.ttl = d
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

// New creates a compression cache storing into m.
func New(m *boundcache.Manager[[]byte], opts ...Option) *Cache {
	c := &Cache{
		manager: m,
		minSize: DefaultMinSize,
		logger:  zap.NewNop(),
	}
	WithCodecs(zstdcodec.New(), gzipcodec.New())(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the cache key for content in encoding.
func Key(content []byte, encoding string) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16) + ":" + encoding
}

// Encodings returns the supported encodings, best first.
func (c *Cache) Encodings() []string {
	return slices.Clone(c.preference)
}

// Encode returns content compressed with encoding. The second result is
// false, and content is returned unchanged, when the body is too small, its
// type does not compress, or compression would not shrink it.
func (c *Cache) Encode(content []byte, contentType, encoding string) ([]byte, bool, error) {
	cd, ok := c.codecs[encoding]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, encoding)
	}
	if len(content) < c.minSize || !mediatype.Compressible(contentType) {
		return content, false, nil
	}

	key := Key(content, encoding)
	if enc, ok := c.manager.Get(key); ok {
		return enc, true, nil
	}

	enc, err := codec.Encode(cd, content)
	if err != nil {
		return nil, false, err
	}
	if len(enc) >= len(content) {
		c.logger.Debug("compression did not shrink body",
			zap.String("encoding", encoding),
			zap.Int("size", len(content)),
		)
		return content, false, nil
	}

	opts := []boundcache.SetOption{
		boundcache.WithEntrySize(int64(len(enc))),
		boundcache.WithPriority(mediatype.Priority(contentType)),
	}
	if c.ttl > 0 {
		opts = append(opts, boundcache.WithTTL(c.ttl))
	}
	if err := c.manager.Set(key, enc, opts...); err != nil {
		c.logger.Warn("caching encoding failed", zap.String("encoding", encoding), zap.Error(err))
	}
	return enc, true, nil
}

// Negotiate picks the preferred supported encoding the client accepts from
// an Accept-Encoding header value. It returns "" when none is acceptable.
func (c *Cache) Negotiate(acceptEncoding string) string {
	accepted := map[string]bool{}
	wildcard := false
	explicit := map[string]bool{}

	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		ok := qualityAcceptable(params)
		if name == "*" {
			wildcard = ok
			continue
		}
		explicit[name] = true
		accepted[name] = ok
	}

	for _, enc := range c.preference {
		if accepted[enc] || (wildcard && !explicit[enc]) {
			return enc
		}
	}
	return ""
}

// qualityAcceptable reports whether a parameter list like "q=0.5" leaves
// the coding acceptable. A missing or malformed q counts as 1.
func qualityAcceptable(params string) bool {
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.ToLower(strings.TrimSpace(k)) != "q" {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return true
		}
		return q > 0
	}
	return true
}

// Manager returns the underlying cache manager.
func (c *Cache) Manager() *boundcache.Manager[[]byte] {
	return c.manager
}
