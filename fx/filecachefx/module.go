// Package filecachefx provides an fx module for a static file cache.
package filecachefx

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/fx/boundcachefx"
	"github.com/boundcache/boundcache/internal/filecache"
	"github.com/boundcache/boundcache/internal/origin"
	"github.com/boundcache/boundcache/internal/origin/diskorigin"
)

// Config holds configuration for the file cache.
type Config struct {
	// Root is the directory files are served from. It is ignored when an
	// origin.Origin is provided.
	Root string

	// Cache configures the manager holding file contents.
	Cache boundcachefx.Config

	// MaxFileSize is the largest file cached. Default is 10 MiB.
	MaxFileSize int64

	// TTL is how long a cached file is kept. Zero keeps Cache.DefaultTTL.
	TTL time.Duration
}

// Module provides a file cache.
// Requires a *zap.Logger and a Config to be provided.
var Module = fx.Module("filecache",
	fx.Provide(
		newFileCache,
	),
)

// Params holds dependencies for creating the file cache.
type Params struct {
	fx.In

	Config     Config
	Logger     *zap.Logger
	Origin     origin.Origin         `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	Lifecycle  fx.Lifecycle
}

// Result holds the provided file cache and its manager.
type Result struct {
	fx.Out

	Cache   *filecache.Cache
	Manager *boundcache.Manager[filecache.File]
}

func newFileCache(p Params) (Result, error) {
	o := p.Origin
	if o == nil {
		if p.Config.Root == "" {
			return Result{}, errors.New("filecachefx: no origin provided and Config.Root is empty")
		}
		disk, err := diskorigin.New(p.Config.Root)
		if err != nil {
			return Result{}, err
		}
		o = disk
	}

	opts, err := p.Config.Cache.Options()
	if err != nil {
		return Result{}, err
	}
	log := p.Logger.Named("files")
	opts = append(opts,
		boundcache.WithName("files"),
		boundcache.WithLogger(log),
		boundcache.WithStats(boundcachefx.NewCollector(p.Logger, p.Registerer, "files")),
	)

	m, err := boundcache.New[filecache.File](opts...)
	if err != nil {
		return Result{}, err
	}

	fileOpts := []filecache.Option{filecache.WithLogger(log), filecache.WithTTL(p.Config.TTL)}
	if p.Config.MaxFileSize > 0 {
		fileOpts = append(fileOpts, filecache.WithMaxFileSize(p.Config.MaxFileSize))
	}
	c := filecache.New(o, m, fileOpts...)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return errors.Join(m.Close(), c.Close())
		},
	})

	return Result{Cache: c, Manager: m}, nil
}
