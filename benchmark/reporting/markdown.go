// Package reporting renders simulation results as Markdown.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/boundcache/boundcache/benchmark/analysis"
	"github.com/boundcache/boundcache/benchmark/simulation"
)

// Workload describes the replayed trace for the methodology section.
type Workload struct {
	Keys     int
	Requests int
	Skew     float64
	Window   int
	MaxSize  int64
	MaxItems int
}

// MarkdownReport generates simulation reports in Markdown format.
type MarkdownReport struct {
	w   io.Writer
	now func() time.Time
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w, now: time.Now}
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", r.now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(wl Workload) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Trace:** %s requests over %s keys (Zipf s=%.2f)\n",
		humanize.Comma(int64(wl.Requests)), humanize.Comma(int64(wl.Keys)), wl.Skew)
	fmt.Fprintf(r.w, "- **Budget:** %s, %s entries\n",
		humanize.IBytes(uint64(wl.MaxSize)), humanize.Comma(int64(wl.MaxItems)))
	fmt.Fprintf(r.w, "- **Metric:** Hit rate per %s-request window (higher is better)\n",
		humanize.Comma(int64(wl.Window)))
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes the summary table, one row per cache in name order.
func (r *MarkdownReport) WriteSummaryTable(results map[string]*simulation.Result) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Cache | Hit Rate | Byte Hit Rate | Median Window | P10 Window | Evictions |")
	fmt.Fprintln(r.w, "|-------|----------|---------------|---------------|------------|-----------|")

	for _, name := range analysis.SortedNames(results) {
		m := simulation.ComputeMetrics(results[name])
		fmt.Fprintf(r.w, "| %s | %.1f%% | %.1f%% | %.1f%% | %.1f%% | %s |\n",
			name, m.HitRate*100, m.ByteHitRate*100,
			m.MedianWindowHitRate*100, m.P10WindowHitRate*100,
			humanize.Comma(m.Evictions))
	}
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.StrategyComparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Strategy1, comp.Strategy2)

	fmt.Fprintln(r.w, "### Descriptive Statistics")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Strategy1+" | "+comp.Strategy2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Strategy1)+2)+"|"+strings.Repeat("-", len(comp.Strategy2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.2f%% | %.2f%% |\n", comp.Stats1.Mean*100, comp.Stats2.Mean*100)
	fmt.Fprintf(r.w, "| Median | %.2f%% | %.2f%% |\n", comp.Stats1.Median*100, comp.Stats2.Median*100)
	fmt.Fprintf(r.w, "| Std Dev | %.2f | %.2f |\n", comp.Stats1.StdDev*100, comp.Stats2.StdDev*100)
	fmt.Fprintf(r.w, "| Min | %.2f%% | %.2f%% |\n", comp.Stats1.Min*100, comp.Stats2.Min*100)
	fmt.Fprintf(r.w, "| Max | %.2f%% | %.2f%% |\n", comp.Stats1.Max*100, comp.Stats2.Max*100)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.MannWhitney.U, comp.MannWhitney.Z, comp.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **%.0f%% CI for mean difference:** [%.2f, %.2f] points\n",
		comp.BootstrapCI.Confidence*100, comp.BootstrapCI.LowerBound*100, comp.BootstrapCI.UpperBound*100)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** shows a statistically significant hit rate improvement over %s ",
			comp.Winner, otherStrategy(comp.Winner, comp.Strategy1, comp.Strategy2))
		fmt.Fprintf(r.w, "(p < 0.05, effect size: %s).\n", comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintln(r.w, "No statistically significant difference detected between caches (p >= 0.05).")
	}
	fmt.Fprintln(r.w)
}

func otherStrategy(winner, s1, s2 string) string {
	if winner == s1 {
		return s2
	}
	return s1
}

// WriteDistributionChart writes an ASCII histogram of per-window hit rates.
func (r *MarkdownReport) WriteDistributionChart(name string, rates []float64) {
	fmt.Fprintf(r.w, "### %s Distribution\n\n", name)
	fmt.Fprintln(r.w, "```")

	hist := makeHistogram(rates, 10)
	maxCount := 0
	for _, count := range hist {
		maxCount = max(maxCount, count)
	}

	width := 40
	for i, count := range hist {
		barLen := 0
		if maxCount > 0 {
			barLen = count * width / maxCount
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(r.w, "%3d-%3d%% │ %s %d\n", i*10, (i+1)*10, bar, count)
	}

	fmt.Fprintln(r.w, "```")
	fmt.Fprintln(r.w)
}

// makeHistogram buckets rates in [0, 1] into equal-width buckets.
func makeHistogram(rates []float64, buckets int) []int {
	hist := make([]int, buckets)
	for _, v := range rates {
		bucket := int(v * float64(buckets))
		bucket = min(max(bucket, 0), buckets-1)
		hist[bucket]++
	}
	return hist
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by boundcache simulate*")
}
