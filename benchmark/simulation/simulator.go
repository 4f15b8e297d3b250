// Package simulation replays access traces against caches and records how
// well each one does.
package simulation

import (
	"fmt"
	"time"

	"github.com/boundcache/boundcache/benchmark/workload"
	"github.com/boundcache/boundcache/internal/clock"
)

// Tick is how far the replay clock moves per request.
const Tick = time.Millisecond

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Simulator replays traces against a set of caches.
type Simulator struct {
	factories []Factory
	window    int
}

// NewSimulator creates a Simulator. window is the number of requests per
// hit-rate sample; zero treats the whole trace as one window.
func NewSimulator(window int, factories ...Factory) *Simulator {
	return &Simulator{
		factories: factories,
		window:    window,
	}
}

// Run replays trace against a fresh instance of every cache and returns the
// results keyed by cache name.
func (s *Simulator) Run(trace []workload.Request) (map[string]*Result, error) {
	results := make(map[string]*Result, len(s.factories))
	for _, f := range s.factories {
		res, err := s.replay(f, trace)
		if err != nil {
			return nil, err
		}
		if _, dup := results[res.Name]; dup {
			return nil, fmt.Errorf("duplicate cache name %q", res.Name)
		}
		results[res.Name] = res
	}
	return results, nil
}

func (s *Simulator) replay(f Factory, trace []workload.Request) (*Result, error) {
	clk := clock.NewManual(epoch)
	c, err := f(clk.Now)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	res := &Result{
		Name:    c.Name(),
		KeyHits: make(map[string]int),
	}

	for _, window := range workload.Windows(trace, s.window) {
		var hits int
		for _, r := range window {
			clk.Advance(Tick)
			res.Requests++
			res.RequestedBytes += r.Size

			if c.Get(r.Key) {
				hits++
				res.Hits++
				res.HitBytes += r.Size
				res.KeyHits[r.Key]++
				continue
			}
			res.Misses++
			c.Add(r.Key, r.Size, r.Priority)
		}
		if len(window) > 0 {
			res.HitRatesPerWindow = append(res.HitRatesPerWindow, float64(hits)/float64(len(window)))
		}
	}
	res.Evictions = c.Evictions()

	return res, nil
}

// Result is the outcome of replaying one trace against one cache.
type Result struct {
	Name           string
	Requests       int
	Hits           int
	Misses         int
	Evictions      int64
	RequestedBytes int64
	HitBytes       int64
	KeyHits        map[string]int // Key -> hit count.
	// HitRatesPerWindow holds one hit rate per window, for statistical
	// comparison between caches.
	HitRatesPerWindow []float64
}

// HitRate returns hits / requests, or 0 for an empty replay.
func (r *Result) HitRate() float64 {
	if r.Requests == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Requests)
}

// ByteHitRate returns the share of requested bytes served from cache.
func (r *Result) ByteHitRate() float64 {
	if r.RequestedBytes == 0 {
		return 0
	}
	return float64(r.HitBytes) / float64(r.RequestedBytes)
}
