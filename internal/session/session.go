// Package session tracks the checkpointed state of consolidation runs and
// lists resumable sessions uniformly across pipeline versions.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Phase markers for the consolidation state machine. Enrichment phases are
// derived from configured source names via EnrichmentPhase.
const (
	PhaseIDHarvesting = "id_harvesting"
	PhaseCompleted    = "completed"
)

// EnrichmentPhase returns the in-progress marker for a source's
// enrichment phase, e.g. "semantic_scholar_enrichment".
func EnrichmentPhase(source string) string {
	return source + "_enrichment"
}

// CompleteMarker returns the between-phase marker recorded once a phase
// has consumed every input item.
func CompleteMarker(phase string) string {
	return phase + "_complete"
}

// Status is the uniform listing status derived from any checkpoint shape.
type Status string

const (
	StatusCompleted   Status = "completed"
	StatusInterrupted Status = "interrupted"
	StatusPending     Status = "pending"
)

// Counter holds per-phase progress counts.
type Counter struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Session is one resumable consolidation run over one input collection.
// The input file is referenced, never written; output is a distinct
// artifact. Failed marks a run that aborted with an error, as opposed to
// one merely interrupted; Degraded marks a run that recorded item
// failures but kept going. The two are independent of the phase marker.
type Session struct {
	ID         string             `json:"id"`
	Phase      string             `json:"phase,omitempty"`
	Failed     bool               `json:"failed,omitempty"`
	Degraded   bool               `json:"degraded,omitempty"`
	Offset     int                `json:"offset,omitempty"`
	Counters   map[string]Counter `json:"counters,omitempty"`
	UpdatedAt  time.Time          `json:"updated_at"`
	InputPath  string             `json:"input_path"`
	OutputPath string             `json:"output_path,omitempty"`
}

// New creates a session for a fresh run.
func New(inputPath, outputPath string) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Counters:   make(map[string]Counter),
		UpdatedAt:  time.Now().UTC(),
		InputPath:  inputPath,
		OutputPath: outputPath,
	}
}

// Counter returns the recorded counts for a phase (zero if none yet).
func (s *Session) Counter(phase string) Counter {
	return s.Counters[phase]
}

// SetCounter stores updated counts for a phase.
func (s *Session) SetCounter(phase string, c Counter) {
	if s.Counters == nil {
		s.Counters = make(map[string]Counter)
	}
	s.Counters[phase] = c
}

// Status maps the session's phase marker to a uniform listing status:
// the terminal marker is completed; any in-progress or non-final
// between-phase marker is interrupted; a session with no phase recorded
// is pending. The mapping is identical for every checkpoint shape because
// shape differences are resolved at decode time.
func (s *Session) Status() Status {
	switch s.Phase {
	case PhaseCompleted:
		return StatusCompleted
	case "":
		return StatusPending
	default:
		return StatusInterrupted
	}
}
