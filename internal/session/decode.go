package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// legacyDoc is the per-source-status checkpoint shape written by earlier
// pipeline versions: one status string per source instead of a single
// phase marker.
type legacyDoc struct {
	SessionID    string            `json:"session_id"`
	SourceStatus map[string]string `json:"source_status"`
	Finished     bool              `json:"finished,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at,omitempty"`
	InputFile    string            `json:"input_file,omitempty"`
	OutputFile   string            `json:"output_file,omitempty"`
}

// DecodeDocument decodes a stored session document of either checkpoint
// shape into the uniform in-memory Session. Shape detection happens only
// here; everything downstream (status mapping, resumption) sees one
// representation.
func DecodeDocument(doc []byte) (*Session, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc, &probe); err != nil {
		return nil, fmt.Errorf("parsing session document: %w", err)
	}

	if _, legacy := probe["source_status"]; legacy {
		var ld legacyDoc
		if err := json.Unmarshal(doc, &ld); err != nil {
			return nil, fmt.Errorf("parsing legacy session document: %w", err)
		}
		return fromLegacy(ld), nil
	}

	var s Session
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("parsing session document: %w", err)
	}
	return &s, nil
}

// fromLegacy maps a per-source-status document onto the phase-marker
// model: finished runs are terminal; an in-progress source becomes that
// source's in-progress marker; a run parked between phases becomes the
// last finished phase's complete marker; no progress at all means no
// phase recorded. Sources are scanned in sorted order so the mapping is
// deterministic.
func fromLegacy(ld legacyDoc) *Session {
	s := &Session{
		ID:         ld.SessionID,
		UpdatedAt:  ld.UpdatedAt,
		InputPath:  ld.InputFile,
		OutputPath: ld.OutputFile,
	}

	if ld.Finished {
		s.Phase = PhaseCompleted
		return s
	}

	sources := make([]string, 0, len(ld.SourceStatus))
	for src := range ld.SourceStatus {
		sources = append(sources, src)
	}
	sort.Strings(sources)

	var lastDone string
	for _, src := range sources {
		switch ld.SourceStatus[src] {
		case "in_progress":
			s.Phase = legacyPhase(src)
			return s
		case "done", "complete":
			lastDone = src
		}
	}

	if lastDone != "" {
		s.Phase = CompleteMarker(legacyPhase(lastDone))
	}
	return s
}

// legacyPhase maps a legacy source key to its phase marker. The harvest
// stage was recorded under the key "id_harvest" by old versions.
func legacyPhase(source string) string {
	if source == "id_harvest" || source == PhaseIDHarvesting {
		return PhaseIDHarvesting
	}
	return EnrichmentPhase(source)
}
