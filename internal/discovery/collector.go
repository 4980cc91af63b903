package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/venue"
)

// VolumeCollector constructs PDF URLs for proceedings series that publish
// under predictable volume paths (e.g. PMLR). It is a structured source:
// candidates carry the matched volume and paper id and a high confidence,
// since the URL is built rather than scraped. Venues are resolved against
// the volume table through the fuzzy matcher, so "Proceedings of ICML
// 2023" and near-miss spellings both land on the ICML volume.
type VolumeCollector struct {
	SourceName  string
	URLTemplate string            // e.g. "https://proceedings.mlr.press/%s/%s.pdf"
	Volumes     map[string]string // venue name -> volume
	Matcher     venue.Matcher
	Confidence  float64
}

var _ Collector = (*VolumeCollector)(nil)

// Name returns the collector's source name.
func (c *VolumeCollector) Name() string { return c.SourceName }

// Collect builds a candidate URL when the paper's venue matches a known
// volume. The paper id within the volume is derived from the title, and
// the record's confidence is scaled by the venue match score so a fuzzy
// venue match ranks below an exact one.
func (c *VolumeCollector) Collect(ctx context.Context, p *paper.Paper) ([]Record, error) {
	_ = ctx // URL construction needs no I/O

	if p.Venue == "" {
		return nil, nil
	}

	candidates := make([]venue.Candidate, 0, len(c.Volumes))
	for name := range c.Volumes {
		candidates = append(candidates, venue.Candidate{Name: name})
	}
	match := c.Matcher.Match(p.Venue, candidates)
	if match.Kind == venue.MatchNone {
		return nil, nil
	}
	vol := c.Volumes[match.Candidate.Name]

	paperID := slugify(p.Title)
	if paperID == "" {
		return nil, nil
	}

	conf := c.Confidence
	if conf == 0 {
		conf = 0.95
	}
	conf *= match.Score

	return []Record{{
		Source:     c.SourceName,
		URL:        fmt.Sprintf(c.URLTemplate, vol, paperID),
		Confidence: conf,
		Meta:       Meta{Volume: vol, PaperID: paperID},
	}}, nil
}

// TitleScore scores how well a scraped candidate title matches the queried
// one, for collectors that can only match by displayed text. Scores feed
// Record.Confidence directly.
func TitleScore(query, found string) float64 {
	return venue.Similarity(normalizeTitle(query), normalizeTitle(found))
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
