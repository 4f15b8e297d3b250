// Package main provides the boundcache CLI for serving files through a
// bounded cache and for comparing eviction strategies on synthetic traces.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
