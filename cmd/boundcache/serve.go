package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/fx/boundcachefx"
	"github.com/boundcache/boundcache/fx/filecachefx"
	"github.com/boundcache/boundcache/internal/compresscache"
	"github.com/boundcache/boundcache/internal/filecache"
	"github.com/boundcache/boundcache/internal/origin"
	"github.com/boundcache/boundcache/internal/origin/gcsorigin"
	"github.com/boundcache/boundcache/internal/origin/s3origin"
	"github.com/boundcache/boundcache/internal/server"
)

var (
	root            string
	s3Bucket        string
	s3Region        string
	s3Endpoint      string
	gcsBucket       string
	bucketPrefix    string
	addr            string
	maxSize         string
	maxEntries      int
	maxFileSize     string
	compressMaxSize string
	strategyName    string
	ttl             time.Duration
	cleanupInterval time.Duration
	warm            []string
	warmAll         bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve files through the cache over HTTP",
	Long: `Serve files from a local directory, an S3 bucket or a GCS bucket.

Responses are cached in a bounded file cache, and compressible bodies are
additionally cached per Content-Encoding. Cache state is exposed under
/debug/cache and Prometheus metrics under /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVarP(&root, "root", "r", ".", "directory to serve when no bucket is given")
	f.StringVar(&s3Bucket, "s3-bucket", "", "serve from this S3 bucket")
	f.StringVar(&s3Region, "s3-region", "", "S3 region (default from the AWS config)")
	f.StringVar(&s3Endpoint, "s3-endpoint", "", "custom S3 endpoint, e.g. for MinIO")
	f.StringVar(&gcsBucket, "gcs-bucket", "", "serve from this GCS bucket")
	f.StringVar(&bucketPrefix, "prefix", "", "object key prefix inside the bucket")
	f.StringVarP(&addr, "addr", "a", server.DefaultConfig().Addr, "listen address")
	f.StringVar(&maxSize, "max-size", "100MiB", "file cache byte budget")
	f.IntVar(&maxEntries, "max-entries", boundcache.DefaultMaxEntries, "file cache entry budget")
	f.StringVar(&maxFileSize, "max-file-size", "10MiB", "largest file that is cached")
	f.StringVar(&compressMaxSize, "compress-max-size", "32MiB", "compression cache byte budget")
	f.StringVarP(&strategyName, "strategy", "s", boundcache.StrategyLRU.String(), "eviction strategy")
	f.DurationVar(&ttl, "ttl", 0, "time to live for cached files (0 = no expiry)")
	f.DurationVar(&cleanupInterval, "cleanup-interval", boundcache.DefaultCleanupInterval, "expiry sweep interval")
	f.StringSliceVar(&warm, "warm", nil, "files to load into the cache at startup")
	f.BoolVar(&warmAll, "warm-all", false, "load every file at the source into the cache at startup")

	serveCmd.MarkFlagsMutuallyExclusive("s3-bucket", "gcs-bucket")
	serveCmd.MarkFlagsMutuallyExclusive("warm", "warm-all")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	fileBudget, err := parseBytes("max-size", maxSize)
	if err != nil {
		return err
	}
	fileLimit, err := parseBytes("max-file-size", maxFileSize)
	if err != nil {
		return err
	}
	compressBudget, err := parseBytes("compress-max-size", compressMaxSize)
	if err != nil {
		return err
	}
	if _, err := boundcache.ParseStrategy(strategyName); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		files    *filecache.Cache
		compress *compresscache.Cache
	)
	opts := []fx.Option{
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Supply(
			log,
			filecachefx.Config{
				Root: root,
				Cache: boundcachefx.Config{
					MaxSize:         fileBudget,
					MaxEntries:      maxEntries,
					CleanupInterval: cleanupInterval,
					Strategy:        strategyName,
				},
				MaxFileSize: fileLimit,
				TTL:         ttl,
			},
			boundcachefx.Config{
				MaxSize:         compressBudget,
				CleanupInterval: cleanupInterval,
				Strategy:        strategyName,
			},
		),
		fx.Provide(func() (prometheus.Registerer, prometheus.Gatherer) { return reg, reg }),
		boundcachefx.Module,
		filecachefx.Module,
		fx.Populate(&files, &compress),
	}
	if s3Bucket != "" || gcsBucket != "" {
		opts = append(opts, fx.Provide(newBucketOrigin))
	}
	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("starting: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			log.Error("stopping", zap.Error(err))
		}
	}()

	switch {
	case warmAll:
		if _, err := files.WarmPrefix(ctx, ""); err != nil {
			return fmt.Errorf("warming cache: %w", err)
		}
	case len(warm) > 0:
		if _, err := files.Warm(ctx, warm); err != nil {
			return fmt.Errorf("warming cache: %w", err)
		}
	}

	log.Info("file cache ready",
		zap.String("source", sourceName()),
		zap.String("maxSize", humanize.IBytes(uint64(fileBudget))),
		zap.Int("maxEntries", maxEntries),
		zap.String("strategy", strategyName),
	)

	cfg := server.DefaultConfig()
	cfg.Addr = addr
	return server.New(cfg, files, compress, reg, log).Run(ctx)
}

// newBucketOrigin opens the bucket named by the serve flags.
func newBucketOrigin() (origin.Origin, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s3Bucket != "" {
		opts := []s3origin.Option{s3origin.WithPrefix(bucketPrefix)}
		if s3Region != "" {
			opts = append(opts, s3origin.WithRegion(s3Region))
		}
		if s3Endpoint != "" {
			opts = append(opts, s3origin.WithEndpoint(s3Endpoint))
		}
		o, err := s3origin.New(ctx, s3Bucket, opts...)
		if err != nil {
			return nil, fmt.Errorf("opening s3 bucket %s: %w", s3Bucket, err)
		}
		return o, nil
	}

	o, err := gcsorigin.New(ctx, gcsBucket, gcsorigin.WithPrefix(bucketPrefix))
	if err != nil {
		return nil, fmt.Errorf("opening gcs bucket %s: %w", gcsBucket, err)
	}
	return o, nil
}

func sourceName() string {
	switch {
	case s3Bucket != "":
		return "s3://" + s3Bucket + "/" + bucketPrefix
	case gcsBucket != "":
		return "gs://" + gcsBucket + "/" + bucketPrefix
	default:
		return root
	}
}

func parseBytes(flag, s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s %q: %w", flag, s, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, errors.New("--" + flag + " must be between 1 byte and 4 EiB")
	}
	return int64(n), nil
}
