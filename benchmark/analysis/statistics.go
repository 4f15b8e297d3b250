// Package analysis compares replay results of different eviction strategies.
//
// Samples are per-window hit rates, which are bounded to [0, 1] and often
// tie, so the rank test applies a tie correction and the interval is
// bootstrapped rather than assumed normal.
package analysis

import (
	"math"
	"math/rand"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// significanceLevel is the p-value below which a difference is reported.
const significanceLevel = 0.05

// MannWhitneyResult is the outcome of a two-sided Mann-Whitney U test.
type MannWhitneyResult struct {
	U           float64 // smaller of U1 and U2
	Z           float64 // normal approximation, tie corrected
	PValue      float64
	Significant bool // PValue < 0.05
}

// MannWhitneyU tests whether two hit-rate samples come from the same
// distribution without assuming normality.
func MannWhitneyU(a, b []float64) *MannWhitneyResult {
	if len(a) == 0 || len(b) == 0 {
		return &MannWhitneyResult{PValue: 1}
	}

	n1, n2 := float64(len(a)), float64(len(b))
	r1, tieTerm := rankSum(a, b)

	u1 := r1 - n1*(n1+1)/2
	u := math.Min(u1, n1*n2-u1)

	n := n1 + n2
	variance := n1 * n2 / 12 * ((n + 1) - tieTerm/(n*(n-1)))

	res := &MannWhitneyResult{U: u, PValue: 1}
	if variance > 0 {
		res.Z = (u - n1*n2/2) / math.Sqrt(variance)
		res.PValue = 2 * distuv.UnitNormal.CDF(-math.Abs(res.Z))
	}
	res.Significant = res.PValue < significanceLevel
	return res
}

// rankSum returns the sum of a's midranks within a+b and the tie term
// Σ(t³-t) over groups of tied values.
func rankSum(a, b []float64) (sumA, tieTerm float64) {
	type obs struct {
		v     float64
		fromA bool
	}
	all := make([]obs, 0, len(a)+len(b))
	for _, v := range a {
		all = append(all, obs{v, true})
	}
	for _, v := range b {
		all = append(all, obs{v, false})
	}
	slices.SortFunc(all, func(x, y obs) int {
		switch {
		case x.v < y.v:
			return -1
		case x.v > y.v:
			return 1
		}
		return 0
	})

	for lo := 0; lo < len(all); {
		hi := lo + 1
		for hi < len(all) && all[hi].v == all[lo].v {
			hi++
		}
		// Ranks are 1-based; the group lo..hi-1 shares their mean.
		mid := float64(lo+hi+1) / 2
		for _, o := range all[lo:hi] {
			if o.fromA {
				sumA += mid
			}
		}
		t := float64(hi - lo)
		tieTerm += t*t*t - t
		lo = hi
	}
	return sumA, tieTerm
}

// EffectSize is Cohen's d between two samples.
type EffectSize struct {
	CohensD        float64
	Interpretation string // negligible, small, medium, large or undefined
}

// ComputeEffectSize returns Cohen's d using the pooled standard deviation.
func ComputeEffectSize(a, b []float64) *EffectSize {
	if len(a) == 0 || len(b) == 0 {
		return &EffectSize{Interpretation: "undefined"}
	}

	meanA, sdA := stat.MeanStdDev(a, nil)
	meanB, sdB := stat.MeanStdDev(b, nil)
	if len(a) == 1 {
		sdA = 0
	}
	if len(b) == 1 {
		sdB = 0
	}

	n1, n2 := float64(len(a)), float64(len(b))
	var pooled float64
	if dof := n1 + n2 - 2; dof > 0 {
		pooled = math.Sqrt(((n1-1)*sdA*sdA + (n2-1)*sdB*sdB) / dof)
	}

	var d float64
	if pooled > 0 {
		d = (meanA - meanB) / pooled
	}
	return &EffectSize{CohensD: d, Interpretation: interpretCohensD(d)}
}

func interpretCohensD(d float64) string {
	switch d = math.Abs(d); {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// BootstrapResult is a percentile bootstrap interval for mean(a) - mean(b).
type BootstrapResult struct {
	MeanDiff   float64
	LowerBound float64
	UpperBound float64
	Confidence float64
}

const bootstrapSeed = 1

// BootstrapConfidenceInterval resamples both samples with replacement
// iterations times. The generator is seeded, so equal inputs give equal
// intervals across runs.
func BootstrapConfidenceInterval(a, b []float64, iterations int, confidence float64) *BootstrapResult {
	res := &BootstrapResult{Confidence: confidence}
	if len(a) == 0 || len(b) == 0 || iterations <= 0 {
		return res
	}
	res.MeanDiff = stat.Mean(a, nil) - stat.Mean(b, nil)

	rng := rand.New(rand.NewSource(bootstrapSeed))
	bufA := make([]float64, len(a))
	bufB := make([]float64, len(b))
	diffs := make([]float64, iterations)
	for i := range diffs {
		resampleInto(rng, bufA, a)
		resampleInto(rng, bufB, b)
		diffs[i] = stat.Mean(bufA, nil) - stat.Mean(bufB, nil)
	}
	slices.Sort(diffs)

	tail := (1 - confidence) / 2
	res.LowerBound = stat.Quantile(tail, stat.Empirical, diffs, nil)
	res.UpperBound = stat.Quantile(1-tail, stat.Empirical, diffs, nil)
	return res
}

func resampleInto(rng *rand.Rand, dst, src []float64) {
	for i := range dst {
		dst[i] = src[rng.Intn(len(src))]
	}
}

// DescriptiveStats summarises one sample.
type DescriptiveStats struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P25    float64
	P75    float64
}

// Describe summarises sample. The input is not modified.
func Describe(sample []float64) *DescriptiveStats {
	if len(sample) == 0 {
		return &DescriptiveStats{}
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)
	quantile := func(p float64) float64 {
		return stat.Quantile(p, stat.Empirical, sorted, nil)
	}

	ds := &DescriptiveStats{
		N:      len(sorted),
		Median: quantile(0.5),
		Min:    floats.Min(sorted),
		Max:    floats.Max(sorted),
		P25:    quantile(0.25),
		P75:    quantile(0.75),
	}
	ds.Mean, ds.StdDev = stat.MeanStdDev(sorted, nil)
	if ds.N == 1 {
		ds.StdDev = 0
	}
	return ds
}
