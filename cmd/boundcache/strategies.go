package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boundcache/boundcache"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List eviction strategies",
	Args:  cobra.NoArgs,
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, s := range boundcache.Strategies() {
		fmt.Fprintf(out, "%-10s %s\n", s, s.Describe())
	}
	return nil
}
