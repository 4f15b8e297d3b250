package analysis

import (
	"fmt"
	"sort"

	"github.com/boundcache/boundcache/benchmark/simulation"
)

// StrategyComparison contains a full statistical comparison between two caches.
type StrategyComparison struct {
	Strategy1       string
	Strategy2       string
	Stats1          *DescriptiveStats
	Stats2          *DescriptiveStats
	MannWhitney     *MannWhitneyResult
	EffectSize      *EffectSize
	BootstrapCI     *BootstrapResult
	Winner          string // Name of the cache with the higher hit rate, or "tie".
	WinnerConfident bool   // True if statistically significant.
}

// CompareStrategies compares the per-window hit rates of two replays.
func CompareStrategies(
	result1, result2 *simulation.Result,
	bootstrapIterations int,
	confidence float64,
) *StrategyComparison {
	sample1 := result1.HitRatesPerWindow
	sample2 := result2.HitRatesPerWindow

	mw := MannWhitneyU(sample1, sample2)
	es := ComputeEffectSize(sample1, sample2)
	bs := BootstrapConfidenceInterval(sample1, sample2, bootstrapIterations, confidence)

	stats1 := Describe(sample1)
	stats2 := Describe(sample2)

	winner := "tie"
	confident := false
	switch {
	case stats1.Mean > stats2.Mean:
		winner = result1.Name
		confident = mw.Significant
	case stats2.Mean > stats1.Mean:
		winner = result2.Name
		confident = mw.Significant
	}

	return &StrategyComparison{
		Strategy1:       result1.Name,
		Strategy2:       result2.Name,
		Stats1:          stats1,
		Stats2:          stats2,
		MannWhitney:     mw,
		EffectSize:      es,
		BootstrapCI:     bs,
		Winner:          winner,
		WinnerConfident: confident,
	}
}

// Summary returns a human-readable summary of the comparison.
func (c *StrategyComparison) Summary() string {
	sig := "not statistically significant"
	if c.MannWhitney.Significant {
		sig = fmt.Sprintf("statistically significant (p=%.4f)", c.MannWhitney.PValue)
	}

	return fmt.Sprintf(
		"%s vs %s:\n"+
			"  %s: mean=%.2f%%, median=%.2f%%, std=%.2f\n"+
			"  %s: mean=%.2f%%, median=%.2f%%, std=%.2f\n"+
			"  Difference: %.2f points (%.1f%%)\n"+
			"  Effect size: %.2f (%s)\n"+
			"  Result: %s, %s",
		c.Strategy1, c.Strategy2,
		c.Strategy1, c.Stats1.Mean*100, c.Stats1.Median*100, c.Stats1.StdDev*100,
		c.Strategy2, c.Stats2.Mean*100, c.Stats2.Median*100, c.Stats2.StdDev*100,
		(c.Stats1.Mean-c.Stats2.Mean)*100,
		safePctDiff(c.Stats1.Mean, c.Stats2.Mean),
		c.EffectSize.CohensD, c.EffectSize.Interpretation,
		c.Winner, sig,
	)
}

func safePctDiff(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}

// MultiStrategyComparison compares multiple caches against a baseline.
type MultiStrategyComparison struct {
	Baseline    string
	Comparisons []*StrategyComparison
}

// CompareAll compares every result against the baseline, in name order.
// It returns nil when baseline is not among results.
func CompareAll(
	results map[string]*simulation.Result,
	baseline string,
	bootstrapIterations int,
	confidence float64,
) *MultiStrategyComparison {
	baseResult, ok := results[baseline]
	if !ok {
		return nil
	}

	multi := &MultiStrategyComparison{
		Baseline: baseline,
	}

	for _, name := range SortedNames(results) {
		if name == baseline {
			continue
		}
		comp := CompareStrategies(baseResult, results[name], bootstrapIterations, confidence)
		multi.Comparisons = append(multi.Comparisons, comp)
	}

	return multi
}

// SortedNames returns the result names in lexical order.
func SortedNames(results map[string]*simulation.Result) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
