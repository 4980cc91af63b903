package arxiv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/pipeline"
)

// SourceName is the provenance label for arXiv contributions.
const SourceName = "arxiv"

// Adapter looks up papers on the arXiv export API one at a time. Papers
// without an arXiv ID are reported as not found without a round trip.
type Adapter struct {
	Client *Client
}

// NewAdapter creates an adapter around an arXiv client.
func NewAdapter(c *Client) *Adapter {
	return &Adapter{Client: c}
}

// Source returns the adapter's source name.
func (a *Adapter) Source() string { return SourceName }

// Process resolves one batch. Results are aligned with the input batch.
func (a *Adapter) Process(ctx context.Context, batch []*paper.Paper) ([]pipeline.Result, error) {
	results := make([]pipeline.Result, len(batch))
	for i, p := range batch {
		arxivID := p.Identifiers[paper.IDKindArXiv]
		if arxivID == "" {
			results[i] = pipeline.Result{Err: fmt.Errorf("%s: no arXiv ID: %w", p.Key, pipeline.ErrNotFound)}
			continue
		}
		entry, err := a.Client.GetByID(ctx, arxivID)
		if err != nil {
			results[i] = pipeline.Result{Err: mapError(err)}
			continue
		}
		if entry == nil {
			results[i] = pipeline.Result{Err: fmt.Errorf("%s: arXiv ID %s: %w", p.Key, arxivID, pipeline.ErrNotFound)}
			continue
		}
		results[i] = pipeline.Result{Partial: toPartial(entry, arxivID)}
	}
	return results, nil
}

// mapError translates client errors into the pipeline's failure taxonomy.
// Network failures are recorded per item as transient so the runner's
// bounded retry applies to them.
func mapError(err error) error {
	if errors.Is(err, ErrNetworkError) {
		return fmt.Errorf("%v: %w", err, pipeline.ErrTransient)
	}
	return err
}

func toPartial(e *Entry, arxivID string) paper.Partial {
	partial := paper.Partial{
		Source: SourceName,
		Title:  strings.Join(strings.Fields(e.Title), " "),
		Year:   publishedYear(e.Published),
		Venue:  "arXiv",
		Identifiers: map[paper.IDKind]string{
			paper.IDKindArXiv: arxivID,
		},
	}
	if e.DOI != "" {
		partial.Identifiers[paper.IDKindDOI] = e.DOI
	}
	for _, a := range e.Authors {
		partial.Authors = append(partial.Authors, a.Name)
	}
	return partial
}

// publishedYear parses the leading year of an Atom timestamp.
func publishedYear(published string) int {
	if len(published) < 4 {
		return 0
	}
	year, err := strconv.Atoi(published[:4])
	if err != nil {
		return 0
	}
	return year
}
