package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/boundcache/boundcache"
	"github.com/boundcache/boundcache/benchmark/analysis"
	"github.com/boundcache/boundcache/benchmark/reporting"
	"github.com/boundcache/boundcache/benchmark/simulation"
	"github.com/boundcache/boundcache/benchmark/workload"
)

var (
	trace         = workload.DefaultConfig()
	simMaxSize    string
	simMaxEntries int
	simStrategies []string
	withReference bool
	baseline      string
	window        int
	bootstrap     int
	outputFormat  string
	outputFile    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Compare eviction strategies on a synthetic trace",
	Long: `Replay a Zipf-distributed access trace against one cache per strategy and
compare hit rates. Each request advances a simulated clock by one
millisecond, so results are reproducible for a given seed.

Strategies are compared against a baseline using per-window hit rates
(Mann-Whitney U, Cohen's d and a bootstrap confidence interval).`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&trace.Keys, "keys", trace.Keys, "distinct keys in the trace")
	f.IntVar(&trace.Requests, "requests", trace.Requests, "trace length")
	f.Float64Var(&trace.Skew, "skew", trace.Skew, "Zipf skew, must be > 1")
	f.Int64Var(&trace.MinSize, "min-entry-size", trace.MinSize, "smallest entry size in bytes")
	f.Int64Var(&trace.MaxSize, "max-entry-size", trace.MaxSize, "largest entry size in bytes")
	f.IntVar(&trace.Priorities, "priorities", trace.Priorities, "number of priority levels")
	f.Int64Var(&trace.Seed, "seed", trace.Seed, "random seed")
	f.StringVar(&simMaxSize, "max-size", "64MiB", "cache byte budget")
	f.IntVar(&simMaxEntries, "max-entries", 1000, "cache entry budget")
	f.StringSliceVarP(&simStrategies, "strategies", "s", strategyNames(), "strategies to compare")
	f.BoolVar(&withReference, "reference", true, "include the golang-lru baseline")
	f.StringVar(&baseline, "baseline", boundcache.StrategyLRU.String(), "cache the others are compared against")
	f.IntVar(&window, "window", 1000, "requests per hit-rate sample")
	f.IntVar(&bootstrap, "bootstrap", 1000, "bootstrap iterations")
	f.StringVarP(&outputFormat, "format", "f", "text", "output format: text, markdown")
	f.StringVarP(&outputFile, "output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(simulateCmd)
}

func strategyNames() []string {
	var names []string
	for _, s := range boundcache.Strategies() {
		names = append(names, s.String())
	}
	return names
}

func runSimulate(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	if outputFormat != "text" && outputFormat != "markdown" {
		return fmt.Errorf("unknown format %q", outputFormat)
	}
	budgetBytes, err := parseBytes("max-size", simMaxSize)
	if err != nil {
		return err
	}
	budget := simulation.Budget{MaxSize: budgetBytes, MaxEntries: simMaxEntries}

	var factories []simulation.Factory
	for _, name := range simStrategies {
		s, err := boundcache.ParseStrategy(name)
		if err != nil {
			return err
		}
		factories = append(factories, simulation.Strategy(s, budget))
	}
	if withReference {
		factories = append(factories, simulation.Reference(budget))
	}

	start := time.Now()
	requests, err := workload.Zipf(trace)
	if err != nil {
		return err
	}
	log.Debug("trace generated",
		zap.Int("requests", len(requests)),
		zap.Int("distinct", workload.Distinct(requests)),
		zap.Duration("elapsed", time.Since(start)),
	)

	start = time.Now()
	results, err := simulation.NewSimulator(window, factories...).Run(requests)
	if err != nil {
		return err
	}
	log.Debug("replay finished",
		zap.Int("caches", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)

	comparisons := analysis.CompareAll(results, baseline, bootstrap, 0.95)
	if comparisons == nil {
		return fmt.Errorf("baseline %q was not simulated", baseline)
	}

	var w io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if outputFormat == "markdown" {
		writeMarkdown(w, results, comparisons, budget)
	} else {
		writeText(w, results, comparisons)
	}
	return nil
}

func writeText(w io.Writer, results map[string]*simulation.Result, multi *analysis.MultiStrategyComparison) {
	fmt.Fprintf(w, "%-12s %9s %9s %12s\n", "CACHE", "HIT RATE", "BYTE HIT", "EVICTIONS")
	for _, name := range analysis.SortedNames(results) {
		r := results[name]
		fmt.Fprintf(w, "%-12s %8.2f%% %8.2f%% %12s\n",
			name, r.HitRate()*100, r.ByteHitRate()*100, humanize.Comma(r.Evictions))
	}
	for _, c := range multi.Comparisons {
		fmt.Fprintln(w)
		fmt.Fprintln(w, c.Summary())
	}
}

func writeMarkdown(w io.Writer, results map[string]*simulation.Result, multi *analysis.MultiStrategyComparison, budget simulation.Budget) {
	r := reporting.NewMarkdownReport(w)
	r.WriteHeader("Eviction Strategy Comparison")
	r.WriteMethodology(reporting.Workload{
		Keys:     trace.Keys,
		Requests: trace.Requests,
		Skew:     trace.Skew,
		Window:   window,
		MaxSize:  budget.MaxSize,
		MaxItems: budget.MaxEntries,
	})
	r.WriteSummaryTable(results)
	for _, c := range multi.Comparisons {
		r.WriteComparison(c)
	}
	for _, name := range analysis.SortedNames(results) {
		r.WriteDistributionChart(name, results[name].HitRatesPerWindow)
	}
	r.WriteFooter()
}
