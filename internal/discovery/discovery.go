// Package discovery models candidate PDF locations produced by per-source
// collectors and reduces them to at most one best record per paper.
package discovery

import (
	"context"

	"github.com/scholarly/consolidate/internal/paper"
)

// Meta carries per-source details about how a candidate was found:
// volume/paper-id for structured sources, a matched-title score for
// scraped ones.
type Meta struct {
	Volume     string  `json:"volume,omitempty"`
	PaperID    string  `json:"paper_id,omitempty"`
	TitleScore float64 `json:"title_score,omitempty"`
}

// Record is one discovered PDF candidate for a paper. Records are
// ephemeral: collectors produce them, SelectBest reduces them, and only
// the winner survives into the consolidation output.
type Record struct {
	Source     string  `json:"source"`
	URL        string  `json:"url"`
	Confidence float64 `json:"confidence"`
	Meta       Meta    `json:"meta,omitempty"`
}

// Collector discovers PDF candidates for a single paper. Implementations
// wrap one venue or publisher each and may return zero records; absence is
// a valid terminal state retried in a later run.
type Collector interface {
	Name() string
	Collect(ctx context.Context, p *paper.Paper) ([]Record, error)
}

// SelectBest picks the single best record: highest confidence wins, and
// ties break by the fixed source priority order (structured sources rank
// above scraped ones). The second return is false when no records were
// discovered.
func SelectBest(recs []Record, priority []string) (Record, bool) {
	if len(recs) == 0 {
		return Record{}, false
	}

	rank := func(source string) int {
		for i, s := range priority {
			if s == source {
				return i
			}
		}
		return len(priority)
	}

	best := recs[0]
	for _, r := range recs[1:] {
		if r.Confidence > best.Confidence {
			best = r
			continue
		}
		if r.Confidence == best.Confidence && rank(r.Source) < rank(best.Source) {
			best = r
		}
	}

	return best, true
}
