// Package logger provides a zap-based stats collector that logs metrics.
package logger

import (
	"go.uber.org/zap"

	"github.com/boundcache/boundcache/internal/stats"
)

// Collector implements stats.Collector by logging metrics via zap.
// Counters and gauges are logged at Debug; histogram observations above
// the slow threshold are logged at Warn.
type Collector struct {
	logger *zap.Logger
	slow   float64
}

// Compile-time check that Collector implements stats.Collector.
var _ stats.Collector = (*Collector)(nil)

// Option configures a Collector.
type Option func(*Collector)

// WithSlowThreshold logs histogram observations of at least seconds at Warn.
// Zero disables the warning.
func WithSlowThreshold(seconds float64) Option {
	return func(c *Collector) {
		c.slow = seconds
	}
}

// New creates a new logger-based collector.
// If logger is nil, a no-op logger is used.
func New(logger *zap.Logger, opts ...Option) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IncCounter logs a counter increment.
func (c *Collector) IncCounter(name string, delta int64) {
	c.logger.Debug("counter",
		zap.String("metric", name),
		zap.Int64("delta", delta),
	)
}

// SetGauge logs a gauge value.
func (c *Collector) SetGauge(name string, value int64) {
	c.logger.Debug("gauge",
		zap.String("metric", name),
		zap.Int64("value", value),
	)
}

// ObserveHistogram logs a histogram observation.
func (c *Collector) ObserveHistogram(name string, value float64) {
	if c.slow > 0 && value >= c.slow {
		c.logger.Warn("slow operation",
			zap.String("metric", name),
			zap.Float64("seconds", value),
		)
		return
	}
	c.logger.Debug("histogram",
		zap.String("metric", name),
		zap.Float64("value", value),
	)
}
