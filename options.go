package boundcache

import (
	"time"

	"go.uber.org/zap"

	"github.com/boundcache/boundcache/internal/stats"
)

// Defaults used when the corresponding option is not given.
const (
	DefaultMaxSize         = 100 * 1024 * 1024 // 100 MiB
	DefaultMaxEntries      = 1000
	DefaultCleanupInterval = 5 * time.Minute
	DefaultPriority        = 1
)

// Option configures a Manager.
type Option interface {
	apply(*options)
}

// options holds the manager configuration.
type options struct {
	name            string
	maxSize         int64
	maxEntries      int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	strategy        Strategy
	stats           stats.Collector
	logger          *zap.Logger
	listeners       []Listener
	now             func() time.Time
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		maxSize:         DefaultMaxSize,
		maxEntries:      DefaultMaxEntries,
		cleanupInterval: DefaultCleanupInterval,
		strategy:        StrategyLRU,
		stats:           stats.NewNoop(),
		logger:          zap.NewNop(),
		now:             time.Now,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithName labels the manager in log output.
func WithName(name string) Option {
	return optionFunc(func(o *options) {
		o.name = name
	})
}

// WithMaxSize sets the byte budget. Default is 100 MiB.
func WithMaxSize(n int64) Option {
	return optionFunc(func(o *options) {
		o.maxSize = n
	})
}

// WithMaxEntries sets the entry-count budget. Default is 1000.
func WithMaxEntries(n int) Option {
	return optionFunc(func(o *options) {
		o.maxEntries = n
	})
}

// WithDefaultTTL sets the TTL applied when Set is called without WithTTL.
// Zero, the default, means entries never expire.
func WithDefaultTTL(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.defaultTTL = d
	})
}

// WithCleanupInterval sets how often expired entries are swept.
// Zero or negative disables the background sweep; expiry is then only
// detected lazily or by calling Cleanup. Default is 5 minutes.
func WithCleanupInterval(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.cleanupInterval = d
	})
}

// WithStrategy sets the initial eviction strategy. Default is StrategyLRU.
func WithStrategy(s Strategy) Option {
	return optionFunc(func(o *options) {
		o.strategy = s
	})
}

// WithStats sets the metrics collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.stats = c
		}
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithListener registers a listener from construction onwards.
// It may be given several times.
func WithListener(l Listener) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.listeners = append(o.listeners, l)
		}
	})
}

// WithClock replaces time.Now as the manager's time source.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		if now != nil {
			o.now = now
		}
	})
}

// SetOption configures a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl      time.Duration
	ttlSet   bool
	priority int
	size     int64
	sizeSet  bool
}

// WithTTL sets the entry's time-to-live. Zero means it never expires,
// overriding the manager's default TTL.
func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = d
		o.ttlSet = true
	}
}

// WithPriority sets the entry's priority hint. Default is 1; higher values
// survive longer under StrategyPriority and StrategyCombined.
func WithPriority(p int) SetOption {
	return func(o *setOptions) {
		o.priority = p
	}
}

// WithEntrySize sets the entry's size in bytes instead of estimating it.
func WithEntrySize(n int64) SetOption {
	return func(o *setOptions) {
		o.size = n
		o.sizeSet = true
	}
}
