// Package workload generates deterministic key access traces for replaying
// against caches.
package workload

import (
	"errors"
	"fmt"
	"math/rand"
)

// Request is one access in a trace.
type Request struct {
	Key      string
	Size     int64
	Priority int
}

// Config describes a synthetic trace.
type Config struct {
	// Keys is the number of distinct keys.
	Keys int
	// Requests is the trace length.
	Requests int
	// Skew is the Zipf s parameter and must be > 1. Higher is hotter.
	Skew float64
	// MinSize and MaxSize bound the per-key size.
	MinSize int64
	MaxSize int64
	// Priorities is the number of priority levels, starting at 1.
	Priorities int
	Seed       int64
}

// DefaultConfig returns a moderately skewed trace over 10k keys.
func DefaultConfig() Config {
	return Config{
		Keys:       10_000,
		Requests:   200_000,
		Skew:       1.1,
		MinSize:    256,
		MaxSize:    64 << 10,
		Priorities: 4,
		Seed:       1,
	}
}

var errInvalidConfig = errors.New("workload: invalid config")

func (c Config) validate() error {
	switch {
	case c.Keys <= 0:
		return fmt.Errorf("%w: keys must be positive", errInvalidConfig)
	case c.Requests < 0:
		return fmt.Errorf("%w: requests must not be negative", errInvalidConfig)
	case c.Skew <= 1:
		return fmt.Errorf("%w: skew must be > 1", errInvalidConfig)
	case c.MinSize < 0 || c.MaxSize < c.MinSize:
		return fmt.Errorf("%w: size range [%d, %d]", errInvalidConfig, c.MinSize, c.MaxSize)
	case c.Priorities <= 0:
		return fmt.Errorf("%w: priorities must be positive", errInvalidConfig)
	}
	return nil
}

// Zipf returns a trace whose key popularity follows a Zipf distribution.
// Each key has a fixed size and priority, so replays see consistent entries.
// The same Config always yields the same trace.
func Zipf(cfg Config) ([]Request, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	sizes := make([]int64, cfg.Keys)
	priorities := make([]int, cfg.Keys)
	for i := range sizes {
		sizes[i] = cfg.MinSize
		if span := cfg.MaxSize - cfg.MinSize; span > 0 {
			sizes[i] += rng.Int63n(span + 1)
		}
		priorities[i] = 1 + rng.Intn(cfg.Priorities)
	}

	// Shuffle ranks so popularity does not correlate with key order.
	perm := rng.Perm(cfg.Keys)
	z := rand.NewZipf(rng, cfg.Skew, 1, uint64(cfg.Keys-1))

	trace := make([]Request, cfg.Requests)
	for i := range trace {
		k := perm[z.Uint64()]
		trace[i] = Request{
			Key:      Key(k),
			Size:     sizes[k],
			Priority: priorities[k],
		}
	}
	return trace, nil
}

// Key returns the name of the i-th key.
func Key(i int) string {
	return fmt.Sprintf("key-%06d", i)
}

// Windows splits trace into consecutive windows of n requests. The last
// window may be shorter.
func Windows(trace []Request, n int) [][]Request {
	if n <= 0 {
		return [][]Request{trace}
	}
	var out [][]Request
	for len(trace) > 0 {
		end := min(n, len(trace))
		out = append(out, trace[:end])
		trace = trace[end:]
	}
	return out
}

// Distinct returns the number of distinct keys in trace.
func Distinct(trace []Request) int {
	seen := make(map[string]struct{}, len(trace))
	for _, r := range trace {
		seen[r.Key] = struct{}{}
	}
	return len(seen)
}
