package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/scholarly/consolidate/internal/session"
)

var (
	resumeConfig string
	resumeStore  string
)

func init() {
	resumeCmd.Flags().StringVar(&resumeConfig, "config", "", "Pipeline config file (YAML)")
	resumeCmd.Flags().StringVar(&resumeStore, "store", "consolidate.db", "Checkpoint store path (SQLite)")
	rootCmd.AddCommand(resumeCmd)
}

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Continue an interrupted consolidation run",
	Long: `Continue an interrupted session from its last durable checkpoint.

The session's phase marker decides where work restarts: a between-phase
marker skips every finished phase, an in-progress marker re-enters that
phase at the recorded batch offset. Items already merged are skipped
naturally because merging the same contribution twice changes nothing.

Examples:
  consolidate resume 4f0c9a12-...`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(resumeConfig)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	store, err := session.OpenStore(resumeStore)
	if err != nil {
		exitWithError(ExitConfigError, "opening checkpoint store: %v", err)
	}
	sess, err := store.Get(args[0])
	store.Close()
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			exitWithError(ExitDataError, "session %s not found", args[0])
		}
		exitWithError(ExitError, "loading session: %v", err)
	}
	if sess.Status() == session.StatusCompleted {
		exitWithError(ExitError, "session %s already completed", sess.ID)
	}

	executeSession(cfg, sess, resumeStore)
	return nil
}
