package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags.
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "boundcache",
	Short: "Bounded in-process caching with pluggable eviction",
	Long: `boundcache serves static files through a size- and count-bounded
cache and compares eviction strategies on synthetic workloads.

Examples:
  # Serve ./public with a 256 MiB cache evicting by combined score
  boundcache serve --root ./public --max-size 256MiB --strategy combined

  # Compare every strategy on a skewed trace
  boundcache simulate --keys 10000 --requests 500000 --skew 1.2

  # List eviction strategies
  boundcache strategies`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// newLogger returns a development logger at debug level when --verbose is
// set, and a production logger otherwise.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
