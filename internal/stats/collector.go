// Package stats provides a unified interface for collecting metrics.
package stats

import "strings"

// Metric names emitted by a cache manager.
const (
	// Lifetime counters.
	MetricHits        = "boundcache_hits_total"
	MetricMisses      = "boundcache_misses_total"
	MetricSets        = "boundcache_sets_total"
	MetricDeletes     = "boundcache_deletes_total"
	MetricEvictions   = "boundcache_evictions_total"
	MetricExpirations = "boundcache_expirations_total"

	// Occupancy gauges.
	MetricSizeBytes = "boundcache_size_bytes"
	MetricEntries   = "boundcache_entries"

	// Latency histograms, in seconds.
	MetricEvictionScanSeconds = "boundcache_eviction_scan_seconds"
	MetricCleanupSeconds      = "boundcache_cleanup_seconds"
)

const namespace = "boundcache_"

var help = map[string]string{
	MetricHits:                "Get calls that returned a live value.",
	MetricMisses:              "Get calls that found no live value.",
	MetricSets:                "Entries inserted.",
	MetricDeletes:             "Entries removed by Delete or by replacement.",
	MetricEvictions:           "Entries removed to satisfy capacity limits.",
	MetricExpirations:         "Entries removed because their TTL elapsed.",
	MetricSizeBytes:           "Estimated bytes held by live entries.",
	MetricEntries:             "Number of live entries.",
	MetricEvictionScanSeconds: "Time spent choosing a single eviction victim.",
	MetricCleanupSeconds:      "Time spent in one expiry sweep.",
}

// Help returns the description for a metric name, looking through any
// subsystem inserted by WithSubsystem. Unknown names describe themselves.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	if rest, ok := strings.CutPrefix(name, namespace); ok {
		if i := strings.IndexByte(rest, '_'); i >= 0 {
			if h, ok := help[namespace+rest[i+1:]]; ok {
				return h
			}
		}
	}
	return name
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}

// WithSubsystem returns a Collector that rewrites metric names from
// "boundcache_<metric>" to "boundcache_<subsystem>_<metric>" before
// forwarding them to c. It lets several managers share one registry.
func WithSubsystem(c Collector, subsystem string) Collector {
	if subsystem == "" {
		return c
	}
	return &subsystemCollector{next: c, prefix: namespace + subsystem + "_"}
}

type subsystemCollector struct {
	next   Collector
	prefix string
}

func (s *subsystemCollector) rename(name string) string {
	if rest, ok := strings.CutPrefix(name, namespace); ok {
		return s.prefix + rest
	}
	return s.prefix + name
}

func (s *subsystemCollector) IncCounter(name string, delta int64) {
	s.next.IncCounter(s.rename(name), delta)
}

func (s *subsystemCollector) SetGauge(name string, value int64) {
	s.next.SetGauge(s.rename(name), value)
}

func (s *subsystemCollector) ObserveHistogram(name string, value float64) {
	s.next.ObserveHistogram(s.rename(name), value)
}
