package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scholarly/consolidate/internal/session"
)

var (
	sessionsAll   bool
	sessionsStore string
)

func init() {
	sessionsCmd.Flags().BoolVar(&sessionsAll, "all", false, "Include completed sessions")
	sessionsCmd.Flags().StringVar(&sessionsStore, "store", "consolidate.db", "Checkpoint store path (SQLite)")
	rootCmd.AddCommand(sessionsCmd)
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List consolidation sessions",
	Long: `List sessions recorded in the checkpoint store with a uniform status
(completed, interrupted or pending), regardless of which checkpoint shape
each session was written in. Completed sessions are hidden by default.

Examples:
  consolidate sessions
  consolidate sessions --all`,
	RunE: runSessions,
}

// SessionSummary is one session in a listing.
type SessionSummary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Phase     string `json:"phase,omitempty"`
	Failed    bool   `json:"failed,omitempty"`
	Degraded  bool   `json:"degraded,omitempty"`
	InputPath string `json:"input_path,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// SessionsResponse is the response for the sessions command.
type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}

func runSessions(cmd *cobra.Command, args []string) error {
	store, err := session.OpenStore(sessionsStore)
	if err != nil {
		exitWithError(ExitConfigError, "opening checkpoint store: %v", err)
	}
	defer store.Close()

	all, err := store.List()
	if err != nil {
		exitWithError(ExitDataError, "listing sessions: %v", err)
	}

	summaries := []SessionSummary{}
	for _, s := range all {
		status := s.Status()
		if status == session.StatusCompleted && !sessionsAll {
			continue
		}
		summaries = append(summaries, SessionSummary{
			ID:        s.ID,
			Status:    string(status),
			Phase:     s.Phase,
			Failed:    s.Failed,
			Degraded:  s.Degraded,
			InputPath: s.InputPath,
			UpdatedAt: s.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	if humanOutput {
		if len(summaries) == 0 {
			fmt.Println("No sessions.")
			return nil
		}
		for _, s := range summaries {
			fmt.Printf("%s  %-12s %s\n", s.ID, s.Status, truncateString(s.InputPath, ListTitleMaxLen))
			if s.Phase != "" {
				fmt.Printf("  at %s (%s)\n", s.Phase, s.UpdatedAt)
			}
		}
		return nil
	}
	return outputJSON(SessionsResponse{Sessions: summaries, Total: len(summaries)})
}
