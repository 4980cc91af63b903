package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scholarly/consolidate/internal/config"
	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/pipeline"
	"github.com/scholarly/consolidate/internal/session"
	"github.com/scholarly/consolidate/internal/sources/arxiv"
	"github.com/scholarly/consolidate/internal/sources/openalex"
	"github.com/scholarly/consolidate/internal/sources/s2"
)

var (
	runInput  string
	runOutput string
	runConfig string
	runStore  string
)

func init() {
	// Load .env if present (for S2_API_KEY / OPENALEX_MAILTO)
	_ = godotenv.Load()

	runCmd.Flags().StringVar(&runInput, "input", "", "Input collection (JSONL), read-only")
	runCmd.Flags().StringVar(&runOutput, "output", "", "Consolidated output path (JSONL)")
	runCmd.Flags().StringVar(&runConfig, "config", "", "Pipeline config file (YAML)")
	runCmd.Flags().StringVar(&runStore, "store", "consolidate.db", "Checkpoint store path (SQLite)")
	runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a new consolidation run",
	Long: `Start a new consolidation session over an input collection.

The input file is never modified. Progress is checkpointed to the store
after every batch; an interrupted run can be continued with
'consolidate resume <session-id>'.

Examples:
  consolidate run --input papers.jsonl --output consolidated.jsonl
  consolidate run --input papers.jsonl --config consolidate.yml`,
	RunE: runRun,
}

// PhaseReport is one phase's counters in a run report.
type PhaseReport struct {
	Phase     string `json:"phase"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// RunReport is the response for run and resume commands.
type RunReport struct {
	SessionID string        `json:"session_id"`
	Status    string        `json:"status"`
	Degraded  bool          `json:"degraded,omitempty"`
	Papers    int           `json:"papers"`
	Phases    []PhaseReport `json:"phases"`
	Output    string        `json:"output,omitempty"`
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runConfig)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	sess := session.New(runInput, runOutput)
	executeSession(cfg, sess, runStore)
	return nil
}

// executeSession drives one session to completion (or interruption) and
// exits with the appropriate code. Shared by run and resume.
func executeSession(cfg *config.Config, sess *session.Session, storePath string) {
	papers, err := paper.ReadAll(sess.InputPath)
	if err != nil {
		exitWithError(ExitDataError, "reading input: %v", err)
	}

	store, err := session.OpenStore(storePath)
	if err != nil {
		exitWithError(ExitConfigError, "opening checkpoint store: %v", err)
	}
	defer store.Close()

	runner, err := buildRunner(cfg, store)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := runner.Run(ctx, sess, papers)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		// Aborted rather than interrupted. The store may itself be the
		// failing component, so persisting the marker is best effort.
		sess.Failed = true
		_ = store.Save(sess)
	}
	if runErr == nil && sess.OutputPath != "" {
		if err := paper.WriteAll(sess.OutputPath, papers); err != nil {
			exitWithError(ExitDataError, "writing output: %v", err)
		}
	}

	report := buildReport(sess, runner, len(papers))
	if humanOutput {
		printReportHuman(report)
	} else {
		outputJSON(report)
	}

	if runErr != nil {
		exitWithError(ExitInterrupted, "run interrupted at %s: %v (resume with: consolidate resume %s)",
			sess.Phase, runErr, sess.ID)
	}
}

// buildRunner wires phases and source adapters from the config.
func buildRunner(cfg *config.Config, store session.Store) (*pipeline.Runner, error) {
	harvest, err := adapterFor(cfg.Harvest.Source)
	if err != nil {
		return nil, err
	}
	phases := []pipeline.Phase{{
		Name:      session.PhaseIDHarvesting,
		Adapter:   harvest,
		BatchSize: cfg.Harvest.BatchSize,
	}}
	for _, pc := range cfg.Enrichment {
		ad, err := adapterFor(pc.Source)
		if err != nil {
			return nil, err
		}
		phases = append(phases, pipeline.Phase{
			Name:      session.EnrichmentPhase(pc.Source),
			Adapter:   ad,
			BatchSize: pc.BatchSize,
		})
	}
	return &pipeline.Runner{
		Phases: phases,
		Merger: paper.Merger{Priority: cfg.SourcePriority},
		Store:  store,
		Retry: pipeline.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Backoff:     cfg.BackoffSchedule(),
		},
	}, nil
}

func adapterFor(source string) (pipeline.Adapter, error) {
	switch source {
	case "openalex":
		return &openalex.Adapter{Client: openalex.NewClient()}, nil
	case "semantic_scholar":
		return s2.NewAdapter(s2.NewClient()), nil
	case "arxiv":
		return arxiv.NewAdapter(arxiv.NewClient()), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func buildReport(sess *session.Session, runner *pipeline.Runner, papers int) RunReport {
	report := RunReport{
		SessionID: sess.ID,
		Status:    string(sess.Status()),
		Degraded:  sess.Degraded,
		Papers:    papers,
		Output:    sess.OutputPath,
	}
	for _, ph := range runner.Phases {
		c := sess.Counter(ph.Name)
		report.Phases = append(report.Phases, PhaseReport{
			Phase:     ph.Name,
			Processed: c.Processed,
			Succeeded: c.Succeeded,
			Failed:    c.Failed,
		})
	}
	return report
}

func printReportHuman(r RunReport) {
	status := r.Status
	if r.Degraded {
		status += " (with failures)"
	}
	fmt.Printf("Session %s: %s (%d papers)\n", r.SessionID, status, r.Papers)
	for _, ph := range r.Phases {
		fmt.Printf("  %-32s processed %d, succeeded %d, failed %d\n",
			ph.Phase, ph.Processed, ph.Succeeded, ph.Failed)
	}
	if r.Output != "" {
		fmt.Printf("Output: %s\n", r.Output)
	}
}
