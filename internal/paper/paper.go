// Package paper defines the canonical consolidated record for an academic paper.
package paper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDKind identifies one kind of external identifier.
type IDKind string

// Identifier kinds carried by a Paper. Each kind appears at most once.
const (
	IDKindDOI      IDKind = "doi"
	IDKindArXiv    IDKind = "arxiv"
	IDKindOpenAlex IDKind = "openalex"
	IDKindS2       IDKind = "s2"
	IDKindPubMed   IDKind = "pmid"
)

// ProvenanceEntry records that a source supplied a field during a phase.
type ProvenanceEntry struct {
	Source    string    `json:"source"`
	Phase     string    `json:"phase"`
	Field     string    `json:"field"`
	Timestamp time.Time `json:"timestamp"`
}

// Paper is the canonical unit of consolidation: one record per paper,
// accumulated across harvesting and enrichment phases.
type Paper struct {
	Key         string            `json:"key"`
	Title       string            `json:"title"`
	Year        int               `json:"year,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
	Identifiers map[IDKind]string `json:"identifiers,omitempty"`
	Venue       string            `json:"venue,omitempty"`
	Provenance  []ProvenanceEntry `json:"provenance,omitempty"`
}

// Partial is an incomplete record contributed by one source during one phase.
// Empty fields mean the source had nothing to say, not an explicit null.
type Partial struct {
	Source      string            `json:"source"`
	Title       string            `json:"title,omitempty"`
	Year        int               `json:"year,omitempty"`
	Authors     []string          `json:"authors,omitempty"`
	Venue       string            `json:"venue,omitempty"`
	Identifiers map[IDKind]string `json:"identifiers,omitempty"`
}

// ID returns the identifier of the given kind, or "" if not set.
func (p *Paper) ID(kind IDKind) string {
	return p.Identifiers[kind]
}

var keyStripRe = regexp.MustCompile(`[^a-z0-9 ]+`)

// DeriveKey computes the stable internal key for a paper from its title and
// year. A paper with no title gets an assigned UUID so it can still be
// tracked through the pipeline.
func DeriveKey(title string, year int) string {
	t := strings.ToLower(strings.TrimSpace(title))
	t = keyStripRe.ReplaceAllString(t, "")
	t = strings.Join(strings.Fields(t), "-")
	if t == "" {
		return uuid.NewString()
	}
	if year > 0 {
		return t + "-" + strconv.Itoa(year)
	}
	return t
}

// New creates a Paper with a derived key and an initialized identifier set.
func New(title string, year int) *Paper {
	return &Paper{
		Key:         DeriveKey(title, year),
		Title:       strings.TrimSpace(title),
		Year:        year,
		Identifiers: make(map[IDKind]string),
	}
}
