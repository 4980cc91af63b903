package openalex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/scholarly/consolidate/internal/arxivid"
	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/pipeline"
)

// Adapter exposes the OpenAlex client through the pipeline's uniform
// batch contract. OpenAlex supports only single-item queries for this
// workload, so the adapter simply walks the batch; the configured batch
// size is 1.
type Adapter struct {
	Client *Client
}

// Source returns the adapter's source name.
func (a *Adapter) Source() string { return "openalex" }

// Process looks up each paper by DOI when available, falling back to a
// title search, and reports one result per item.
func (a *Adapter) Process(ctx context.Context, batch []*paper.Paper) ([]Result, error) {
	results := make([]Result, len(batch))
	for i, p := range batch {
		work, err := a.lookup(ctx, p)
		if err != nil {
			results[i] = Result{Err: mapError(err)}
			continue
		}
		results[i] = Result{Partial: workToPartial(work)}
	}
	return results, nil
}

// Result aliases the pipeline result type for readability.
type Result = pipeline.Result

func (a *Adapter) lookup(ctx context.Context, p *paper.Paper) (*Work, error) {
	if doi := p.ID(paper.IDKindDOI); doi != "" {
		return a.Client.GetByDOI(ctx, doi)
	}
	if p.Title == "" {
		return nil, ErrNotFound
	}
	return a.Client.SearchByTitle(ctx, p.Title)
}

// workToPartial maps an OpenAlex work onto the partial-record shape the
// merger consumes, including the arXiv identifier recovered from the
// work's DOI or locations.
func workToPartial(w *Work) paper.Partial {
	partial := paper.Partial{
		Source:      "openalex",
		Year:        w.PublicationYear,
		Identifiers: make(map[paper.IDKind]string),
	}

	if title := w.Title; title != "" {
		partial.Title = title
	} else if w.DisplayName != "" {
		partial.Title = w.DisplayName
	}

	if w.ID != "" {
		partial.Identifiers[paper.IDKindOpenAlex] = strings.TrimPrefix(w.ID, "https://openalex.org/")
	}
	if w.DOI != "" {
		partial.Identifiers[paper.IDKindDOI] = strings.TrimPrefix(w.DOI, "https://doi.org/")
	}
	if pmid, ok := w.IDs["pmid"]; ok && pmid != "" {
		partial.Identifiers[paper.IDKindPubMed] = strings.TrimPrefix(pmid, "https://pubmed.ncbi.nlm.nih.gov/")
	}
	if id := arxivid.Extract(workResponse(w)); id != "" {
		partial.Identifiers[paper.IDKindArXiv] = id
	}

	if w.PrimaryLocation != nil && w.PrimaryLocation.Source != nil {
		partial.Venue = w.PrimaryLocation.Source.DisplayName
	}

	for _, a := range w.Authorships {
		if name := strings.TrimSpace(a.Author.DisplayName); name != "" {
			partial.Authors = append(partial.Authors, name)
		}
	}

	return partial
}

// workResponse adapts a work to the identifier extractor's view of a
// metadata response.
func workResponse(w *Work) arxivid.MetadataResponse {
	resp := arxivid.MetadataResponse{DOI: w.DOI}
	if w.PrimaryLocation != nil {
		resp.Primary = &arxivid.Location{
			LandingPageURL: w.PrimaryLocation.LandingPageURL,
			PDFURL:         w.PrimaryLocation.PDFURL,
		}
	}
	for _, loc := range w.Locations {
		resp.Locations = append(resp.Locations, arxivid.Location{
			LandingPageURL: loc.LandingPageURL,
			PDFURL:         loc.PDFURL,
		})
	}
	return resp
}

// mapError translates client errors into the pipeline's failure taxonomy.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: %v", pipeline.ErrNotFound, err)
	case errors.Is(err, ErrRateLimited), errors.Is(err, ErrNetworkError):
		return fmt.Errorf("%w: %v", pipeline.ErrTransient, err)
	case errors.Is(err, ErrAuthError):
		return fmt.Errorf("%w: %v", pipeline.ErrAuth, err)
	default:
		return err
	}
}
