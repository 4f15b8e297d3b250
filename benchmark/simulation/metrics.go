package simulation

import (
	"sort"
)

// Metrics contains computed metrics from a replay.
type Metrics struct {
	// Core metrics.
	Requests    int
	HitRate     float64
	ByteHitRate float64
	Evictions   int64

	// Distribution of per-window hit rates.
	MedianWindowHitRate float64
	P10WindowHitRate    float64
	P90WindowHitRate    float64
	MinWindowHitRate    float64
	MaxWindowHitRate    float64

	// Locality metrics.
	HitConcentration float64 // Gini coefficient of hits across keys.
	TopKeyPct        float64 // Percentage of hits served by the top 10% of keys.
}

// ComputeMetrics computes detailed metrics from a result.
func ComputeMetrics(result *Result) *Metrics {
	m := &Metrics{
		Requests:    result.Requests,
		HitRate:     result.HitRate(),
		ByteHitRate: result.ByteHitRate(),
		Evictions:   result.Evictions,
	}

	if len(result.HitRatesPerWindow) > 0 {
		sorted := make([]float64, len(result.HitRatesPerWindow))
		copy(sorted, result.HitRatesPerWindow)
		sort.Float64s(sorted)

		m.MinWindowHitRate = sorted[0]
		m.MaxWindowHitRate = sorted[len(sorted)-1]
		m.MedianWindowHitRate = percentile(sorted, 50)
		m.P10WindowHitRate = percentile(sorted, 10)
		m.P90WindowHitRate = percentile(sorted, 90)
	}

	if len(result.KeyHits) > 0 {
		m.HitConcentration = computeGini(result.KeyHits)
		m.TopKeyPct = computeTopKeyPct(result.KeyHits, result.Hits, 0.1)
	}

	return m
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func computeGini(hits map[string]int) float64 {
	if len(hits) == 0 {
		return 0
	}

	values := make([]int, 0, len(hits))
	for _, v := range hits {
		values = append(values, v)
	}
	sort.Ints(values)

	n := float64(len(values))
	var sum, cumulativeSum float64
	for i, v := range values {
		sum += float64(v)
		cumulativeSum += float64(i+1) * float64(v)
	}

	if sum == 0 {
		return 0
	}

	return (2*cumulativeSum)/(n*sum) - (n+1)/n
}

func computeTopKeyPct(hits map[string]int, total int, topFraction float64) float64 {
	if total == 0 || len(hits) == 0 {
		return 0
	}

	counts := make([]int, 0, len(hits))
	for _, h := range hits {
		counts = append(counts, h)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))

	topCount := max(int(float64(len(counts))*topFraction), 1)

	var topHits int
	for i := 0; i < topCount && i < len(counts); i++ {
		topHits += counts[i]
	}

	return float64(topHits) / float64(total) * 100
}

// MetricsComparison holds the differences between two caches' metrics.
type MetricsComparison struct {
	Cache1 string
	Cache2 string

	HitRateDiff       float64 // Positive means Cache1 hits more.
	HitRateDiffPct    float64
	ByteHitRateDiff   float64
	EvictionsDiff     int64
	ConcentrationDiff float64
}

// Compare compares two metrics and returns the differences.
func Compare(m1, m2 *Metrics, name1, name2 string) *MetricsComparison {
	return &MetricsComparison{
		Cache1:            name1,
		Cache2:            name2,
		HitRateDiff:       m1.HitRate - m2.HitRate,
		HitRateDiffPct:    safeDiffPct(m1.HitRate, m2.HitRate),
		ByteHitRateDiff:   m1.ByteHitRate - m2.ByteHitRate,
		EvictionsDiff:     m1.Evictions - m2.Evictions,
		ConcentrationDiff: m1.HitConcentration - m2.HitConcentration,
	}
}

func safeDiffPct(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}
