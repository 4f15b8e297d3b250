package simulation

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/boundcache/boundcache"
)

// Cache is what the simulator replays a trace against.
type Cache interface {
	// Name identifies the cache in results.
	Name() string
	// Get reports whether key is cached.
	Get(key string) bool
	// Add caches key after a miss.
	Add(key string, size int64, priority int)
	// Evictions returns how many entries the cache has evicted so far.
	Evictions() int64
	Close() error
}

// Factory creates a fresh cache for one replay. now is the replay clock.
type Factory func(now func() time.Time) (Cache, error)

// Budget bounds the simulated caches.
type Budget struct {
	MaxSize    int64
	MaxEntries int
}

// Compile-time check that managerCache implements Cache.
var _ Cache = (*managerCache)(nil)

type managerCache struct {
	m *boundcache.Manager[struct{}]
}

// Strategy returns a factory for a boundcache manager using s.
func Strategy(s boundcache.Strategy, b Budget) Factory {
	return func(now func() time.Time) (Cache, error) {
		m, err := boundcache.New[struct{}](
			boundcache.WithName(s.String()),
			boundcache.WithMaxSize(b.MaxSize),
			boundcache.WithMaxEntries(b.MaxEntries),
			boundcache.WithStrategy(s),
			boundcache.WithCleanupInterval(0),
			boundcache.WithClock(now),
		)
		if err != nil {
			return nil, fmt.Errorf("creating %s manager: %w", s, err)
		}
		return &managerCache{m: m}, nil
	}
}

func (c *managerCache) Name() string { return c.m.Strategy().String() }

func (c *managerCache) Get(key string) bool {
	_, ok := c.m.Get(key)
	return ok
}

func (c *managerCache) Add(key string, size int64, priority int) {
	// Keys and sizes come from a validated trace, so Set cannot fail.
	_ = c.m.Set(key, struct{}{}, boundcache.WithEntrySize(size), boundcache.WithPriority(priority))
}

func (c *managerCache) Evictions() int64 { return c.m.Stats().Evictions }

func (c *managerCache) Close() error { return c.m.Close() }

// ReferenceName names the golang-lru baseline in results.
const ReferenceName = "golang-lru"

// Compile-time check that referenceCache implements Cache.
var _ Cache = (*referenceCache)(nil)

// referenceCache is an entry-count LRU from hashicorp/golang-lru. It ignores
// sizes, so it only matches boundcache's LRU when the byte budget is not the
// binding limit.
type referenceCache struct {
	cache     *lru.Cache[string, struct{}]
	evictions int64
}

// Reference returns a factory for the golang-lru baseline.
func Reference(b Budget) Factory {
	return func(func() time.Time) (Cache, error) {
		c := &referenceCache{}
		l, err := lru.NewWithEvict[string, struct{}](b.MaxEntries, func(string, struct{}) {
			c.evictions++
		})
		if err != nil {
			return nil, fmt.Errorf("creating reference LRU: %w", err)
		}
		c.cache = l
		return c, nil
	}
}

func (c *referenceCache) Name() string { return ReferenceName }

func (c *referenceCache) Get(key string) bool {
	_, ok := c.cache.Get(key)
	return ok
}

func (c *referenceCache) Add(key string, _ int64, _ int) {
	c.cache.Add(key, struct{}{})
}

func (c *referenceCache) Evictions() int64 { return c.evictions }

func (c *referenceCache) Close() error { return nil }
