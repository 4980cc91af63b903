package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scholarly/consolidate/internal/config"
	"github.com/scholarly/consolidate/internal/discovery"
	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/venue"
)

var (
	discoverInput  string
	discoverConfig string
)

func init() {
	discoverCmd.Flags().StringVar(&discoverInput, "input", "", "Consolidated collection (JSONL)")
	discoverCmd.Flags().StringVar(&discoverConfig, "config", "", "Pipeline config file (YAML)")
	discoverCmd.MarkFlagRequired("input")
	discoverCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover PDF download candidates for a collection",
	Long: `Run the configured PDF sources over a consolidated collection and pick
at most one download candidate per paper.

Each configured source matches paper venues against its volume table,
fuzzily at the configured threshold, and proposes a URL. Candidates are
reduced per paper by confidence, with ties broken by the configured PDF
source priority.

Examples:
  consolidate discover --input consolidated.jsonl --config consolidate.yml`,
	RunE: runDiscover,
}

// Candidate is one paper's selected PDF candidate.
type Candidate struct {
	Key    string           `json:"key"`
	Title  string           `json:"title,omitempty"`
	Record discovery.Record `json:"record"`
}

// DiscoverResponse is the response for the discover command.
type DiscoverResponse struct {
	Papers     int         `json:"papers"`
	Discovered int         `json:"discovered"`
	Candidates []Candidate `json:"candidates"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(discoverConfig)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	collectors := buildCollectors(cfg)
	if len(collectors) == 0 {
		exitWithError(ExitConfigError, "no pdf_sources configured in %s", discoverConfig)
	}

	papers, err := paper.ReadAll(discoverInput)
	if err != nil {
		exitWithError(ExitDataError, "reading input: %v", err)
	}

	ctx := cmd.Context()
	resp := DiscoverResponse{Papers: len(papers), Candidates: []Candidate{}}
	for _, p := range papers {
		best, ok := selectCandidate(ctx, collectors, p, cfg.PDFSourcePriority)
		if !ok {
			continue
		}
		resp.Discovered++
		resp.Candidates = append(resp.Candidates, Candidate{Key: p.Key, Title: p.Title, Record: best})
	}

	if humanOutput {
		fmt.Printf("Discovered candidates for %d of %d papers\n", resp.Discovered, resp.Papers)
		for _, c := range resp.Candidates {
			fmt.Printf("  %s  [%.2f %s] %s\n", c.Key, c.Record.Confidence, c.Record.Source, c.Record.URL)
		}
		return nil
	}
	return outputJSON(resp)
}

// buildCollectors constructs one volume collector per configured PDF
// source, all matching venues at the configured fuzzy threshold.
func buildCollectors(cfg *config.Config) []discovery.Collector {
	matcher := venue.Matcher{Threshold: cfg.FuzzyThreshold}
	collectors := make([]discovery.Collector, 0, len(cfg.PDFSources))
	for _, s := range cfg.PDFSources {
		collectors = append(collectors, &discovery.VolumeCollector{
			SourceName:  s.Name,
			URLTemplate: s.URLTemplate,
			Volumes:     s.Volumes,
			Matcher:     matcher,
			Confidence:  s.Confidence,
		})
	}
	return collectors
}

// selectCandidate gathers every collector's records for one paper and
// reduces them to the single best by confidence and source priority.
// Collector failures degrade to fewer candidates rather than failing the
// whole paper.
func selectCandidate(ctx context.Context, collectors []discovery.Collector, p *paper.Paper, priority []string) (discovery.Record, bool) {
	var recs []discovery.Record
	for _, c := range collectors {
		found, err := c.Collect(ctx, p)
		if err != nil {
			continue
		}
		recs = append(recs, found...)
	}
	return discovery.SelectBest(recs, priority)
}
