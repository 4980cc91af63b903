// Package main provides the consolidate CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Multi-source bibliographic consolidation pipeline",
	Long: `consolidate merges paper metadata from OpenAlex, Semantic Scholar and
arXiv into one consolidated collection.

A run walks ordered phases (identifier harvesting, then per-source
enrichment), checkpointing after every batch so an interrupted run can be
resumed without repeating finished work. The input collection is never
modified; consolidated output is a separate JSONL file.

All commands output JSON by default for agent integration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}
