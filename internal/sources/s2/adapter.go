package s2

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/pipeline"
)

// SourceName is the provenance label for Semantic Scholar contributions.
const SourceName = "semantic_scholar"

// Adapter looks up batches of papers on the S2 Academic Graph. It prefers
// DOI lookups and falls back to arXiv IDs; papers carrying neither are
// reported as not found without a round trip.
type Adapter struct {
	Client *Client
}

// NewAdapter creates an adapter around an S2 client.
func NewAdapter(c *Client) *Adapter {
	return &Adapter{Client: c}
}

// Source returns the adapter's source name.
func (a *Adapter) Source() string { return SourceName }

// Process resolves one batch. Results are aligned with the input batch;
// a single request covers every paper that has a usable identifier.
func (a *Adapter) Process(ctx context.Context, batch []*paper.Paper) ([]pipeline.Result, error) {
	results := make([]pipeline.Result, len(batch))

	var ids []string
	var slots []int
	for i, p := range batch {
		id := lookupID(p)
		if id == "" {
			results[i] = pipeline.Result{Err: fmt.Errorf("%s: no DOI or arXiv ID: %w", p.Key, pipeline.ErrNotFound)}
			continue
		}
		ids = append(ids, id)
		slots = append(slots, i)
	}
	if len(ids) == 0 {
		return results, nil
	}

	papers, err := a.Client.GetBatch(ctx, ids)
	if err != nil {
		return nil, mapError(err)
	}

	for j, sp := range papers {
		i := slots[j]
		if sp == nil {
			results[i] = pipeline.Result{Err: fmt.Errorf("%s: %w", batch[i].Key, pipeline.ErrNotFound)}
			continue
		}
		results[i] = pipeline.Result{Partial: toPartial(sp)}
	}
	return results, nil
}

// lookupID returns the batch-endpoint identifier for a paper, or "".
func lookupID(p *paper.Paper) string {
	if doi := p.Identifiers[paper.IDKindDOI]; doi != "" {
		return "DOI:" + doi
	}
	if arxiv := p.Identifiers[paper.IDKindArXiv]; arxiv != "" {
		return "ARXIV:" + arxiv
	}
	return ""
}

func toPartial(sp *S2Paper) paper.Partial {
	partial := paper.Partial{
		Source:      SourceName,
		Title:       sp.Title,
		Year:        sp.Year,
		Venue:       sp.Venue,
		Identifiers: map[paper.IDKind]string{},
	}
	if sp.PaperID != "" {
		partial.Identifiers[paper.IDKindS2] = sp.PaperID
	}
	if sp.ExternalIDs.DOI != "" {
		partial.Identifiers[paper.IDKindDOI] = sp.ExternalIDs.DOI
	}
	if sp.ExternalIDs.ArXiv != "" {
		partial.Identifiers[paper.IDKindArXiv] = sp.ExternalIDs.ArXiv
	}
	if sp.ExternalIDs.PubMed != "" {
		if _, err := strconv.Atoi(sp.ExternalIDs.PubMed); err == nil {
			partial.Identifiers[paper.IDKindPubMed] = sp.ExternalIDs.PubMed
		}
	}
	for _, a := range sp.Authors {
		partial.Authors = append(partial.Authors, a.Name)
	}
	return partial
}

// mapError translates client sentinels into the pipeline error taxonomy.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrAuthError):
		return fmt.Errorf("%v: %w", err, pipeline.ErrAuth)
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrNetworkError):
		return fmt.Errorf("%v: %w", err, pipeline.ErrTransient)
	default:
		return err
	}
}
