// Package config loads the consolidation pipeline configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PhaseConfig configures one phase's source and batch size. Batch sizes
// differ sharply per source: single-item-query sources run at 1, batch
// endpoints at their documented cap.
type PhaseConfig struct {
	Source    string `yaml:"source"`
	BatchSize int    `yaml:"batch_size"`
}

// RetryConfig bounds transient-error retries.
type RetryConfig struct {
	MaxAttempts int   `yaml:"max_attempts"`
	BackoffMS   []int `yaml:"backoff_ms"`
}

// PDFSourceConfig describes one structured PDF source for discovery:
// a URL template over (volume, paper id) and the venue-to-volume table
// the discover command matches venues against.
type PDFSourceConfig struct {
	Name        string            `yaml:"name"`
	URLTemplate string            `yaml:"url_template"`
	Volumes     map[string]string `yaml:"volumes"`
	Confidence  float64           `yaml:"confidence,omitempty"`
}

// Config is the pipeline configuration read from consolidate.yml.
type Config struct {
	Harvest           PhaseConfig       `yaml:"harvest"`
	Enrichment        []PhaseConfig     `yaml:"enrichment"`
	SourcePriority    []string          `yaml:"source_priority"`
	PDFSources        []PDFSourceConfig `yaml:"pdf_sources"`
	PDFSourcePriority []string          `yaml:"pdf_source_priority"`
	FuzzyThreshold    float64           `yaml:"fuzzy_threshold"`
	Retry             RetryConfig       `yaml:"retry"`
}

// S2BatchCap is the Semantic Scholar batch endpoint's documented maximum.
const S2BatchCap = 500

// Default returns the configuration used when no file is given: OpenAlex
// harvesting one item per request, then Semantic Scholar enrichment at the
// batch cap and arXiv enrichment item by item.
func Default() *Config {
	return &Config{
		Harvest: PhaseConfig{Source: "openalex", BatchSize: 1},
		Enrichment: []PhaseConfig{
			{Source: "semantic_scholar", BatchSize: S2BatchCap},
			{Source: "arxiv", BatchSize: 1},
		},
		SourcePriority:    []string{"openalex", "semantic_scholar", "arxiv"},
		PDFSourcePriority: []string{"pmlr", "openreview", "scraped"},
		FuzzyThreshold:    0.85,
		Retry: RetryConfig{
			MaxAttempts: 3,
			BackoffMS:   []int{0, 250, 1000},
		},
	}
}

// Load reads and validates a pipeline config file, filling unset values
// from Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Harvest.Source == "" {
		return fmt.Errorf("harvest source must be set")
	}
	if c.Harvest.BatchSize <= 0 {
		return fmt.Errorf("harvest batch_size must be positive, got %d", c.Harvest.BatchSize)
	}
	for i, e := range c.Enrichment {
		if e.Source == "" {
			return fmt.Errorf("enrichment entry %d must name a source", i+1)
		}
		if e.BatchSize <= 0 {
			return fmt.Errorf("enrichment %s batch_size must be positive, got %d", e.Source, e.BatchSize)
		}
	}
	for i, s := range c.PDFSources {
		if s.Name == "" {
			return fmt.Errorf("pdf_sources entry %d must name a source", i+1)
		}
		if s.URLTemplate == "" {
			return fmt.Errorf("pdf_sources %s must set url_template", s.Name)
		}
		if s.Confidence < 0 || s.Confidence > 1 {
			return fmt.Errorf("pdf_sources %s confidence must be in [0,1], got %v", s.Name, s.Confidence)
		}
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in [0,1], got %v", c.FuzzyThreshold)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// BackoffSchedule converts the configured backoff milliseconds to
// durations.
func (c *Config) BackoffSchedule() []time.Duration {
	sched := make([]time.Duration, len(c.Retry.BackoffMS))
	for i, ms := range c.Retry.BackoffMS {
		sched[i] = time.Duration(ms) * time.Millisecond
	}
	return sched
}
