// Package boundcachefx provides an fx module for a bounded response
// compression cache.
package boundcachefx

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/internal/compresscache"
	"github.com/boundcache/boundcache/internal/stats"
	"github.com/boundcache/boundcache/internal/stats/logger"
	promstats "github.com/boundcache/boundcache/internal/stats/prometheus"
)

// Config holds manager settings. Zero fields keep the library defaults.
type Config struct {
	MaxSize         int64
	MaxEntries      int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration

	// Strategy is an eviction strategy name such as "lru" or "combined".
	Strategy string
}

// Options converts c to manager options.
func (c Config) Options() ([]boundcache.Option, error) {
	var opts []boundcache.Option
	if c.MaxSize > 0 {
		opts = append(opts, boundcache.WithMaxSize(c.MaxSize))
	}
	if c.MaxEntries > 0 {
		opts = append(opts, boundcache.WithMaxEntries(c.MaxEntries))
	}
	if c.DefaultTTL > 0 {
		opts = append(opts, boundcache.WithDefaultTTL(c.DefaultTTL))
	}
	if c.CleanupInterval != 0 {
		opts = append(opts, boundcache.WithCleanupInterval(c.CleanupInterval))
	}
	if c.Strategy != "" {
		st, err := boundcache.ParseStrategy(c.Strategy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, boundcache.WithStrategy(st))
	}
	return opts, nil
}

// NewCollector returns the metrics collector for one cache. Metrics go to
// Prometheus when a registerer is available, otherwise to debug logs.
func NewCollector(log *zap.Logger, reg prometheus.Registerer, subsystem string) stats.Collector {
	var c stats.Collector
	if reg != nil {
		c = promstats.New(reg)
	} else {
		c = logger.New(log.Named("boundcache.stats"), logger.WithSlowThreshold(0.01))
	}
	return stats.WithSubsystem(c, subsystem)
}

// Module provides a compression cache and its manager.
// Requires a *zap.Logger and a Config to be provided; a
// prometheus.Registerer is used when present.
var Module = fx.Module("boundcache",
	fx.Provide(
		newCompression,
	),
)

// Params holds dependencies for creating the cache.
type Params struct {
	fx.In

	Config     Config
	Logger     *zap.Logger
	Registerer prometheus.Registerer `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Result holds the provided cache and manager.
type Result struct {
	fx.Out

	Cache   *compresscache.Cache
	Manager *boundcache.Manager[[]byte]
}

func newCompression(p Params) (Result, error) {
	opts, err := p.Config.Options()
	if err != nil {
		return Result{}, err
	}
	log := p.Logger.Named("compression")
	opts = append(opts,
		boundcache.WithName("compression"),
		boundcache.WithLogger(log),
		boundcache.WithStats(NewCollector(p.Logger, p.Registerer, "compression")),
	)

	m, err := boundcache.New[[]byte](opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.Close()
		},
	})

	return Result{
		Cache:   compresscache.New(m, compresscache.WithLogger(log)),
		Manager: m,
	}, nil
}
