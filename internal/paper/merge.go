package paper

import (
	"time"
)

// Merger combines partial records into canonical papers. Priority lists
// source names from most to least authoritative; a source not listed ranks
// below all listed sources. Merging is additive: an identifier set by an
// earlier phase is never overwritten, and a scalar field is only replaced
// when the incoming source strictly outranks the source that supplied the
// current value.
type Merger struct {
	Priority []string
}

// Scalar field names used in provenance entries.
const (
	FieldTitle   = "title"
	FieldYear    = "year"
	FieldAuthors = "authors"
	FieldVenue   = "venue"
)

// rank returns the priority index of a source; unlisted sources rank last.
func (m Merger) rank(source string) int {
	for i, s := range m.Priority {
		if s == source {
			return i
		}
	}
	return len(m.Priority)
}

// outranks reports whether source a is strictly higher priority than b.
// A field with no recorded contributor came from the input collection and
// is never displaced.
func (m Merger) outranks(a, b string) bool {
	if b == "" {
		return false
	}
	return m.rank(a) < m.rank(b)
}

// contributor returns the source that last supplied the given field, or ""
// if no provenance entry mentions it.
func contributor(p *Paper, field string) string {
	for i := len(p.Provenance) - 1; i >= 0; i-- {
		if p.Provenance[i].Field == field {
			return p.Provenance[i].Source
		}
	}
	return ""
}

func record(p *Paper, source, phase, field string, at time.Time) {
	p.Provenance = append(p.Provenance, ProvenanceEntry{
		Source:    source,
		Phase:     phase,
		Field:     field,
		Timestamp: at,
	})
}

// Merge applies an incoming partial record to the canonical paper.
// Re-applying the same partial is a no-op, which makes at-least-once
// batch re-processing after a resume safe.
func (m Merger) Merge(p *Paper, in Partial, phase string, at time.Time) {
	if p.Identifiers == nil {
		p.Identifiers = make(map[IDKind]string)
	}

	// Identifiers: fill empty slots only, never replace.
	for kind, value := range in.Identifiers {
		if value == "" || p.Identifiers[kind] != "" {
			continue
		}
		p.Identifiers[kind] = value
		record(p, in.Source, phase, string(kind), at)
	}

	if in.Title != "" && in.Title != p.Title {
		if p.Title == "" || m.outranks(in.Source, contributor(p, FieldTitle)) {
			p.Title = in.Title
			record(p, in.Source, phase, FieldTitle, at)
		}
	}
	if in.Year != 0 && in.Year != p.Year {
		if p.Year == 0 || m.outranks(in.Source, contributor(p, FieldYear)) {
			p.Year = in.Year
			record(p, in.Source, phase, FieldYear, at)
		}
	}
	if in.Venue != "" && in.Venue != p.Venue {
		if p.Venue == "" || m.outranks(in.Source, contributor(p, FieldVenue)) {
			p.Venue = in.Venue
			record(p, in.Source, phase, FieldVenue, at)
		}
	}
	if len(in.Authors) > 0 && !equalAuthors(in.Authors, p.Authors) {
		if len(p.Authors) == 0 || m.outranks(in.Source, contributor(p, FieldAuthors)) {
			p.Authors = append([]string(nil), in.Authors...)
			record(p, in.Source, phase, FieldAuthors, at)
		}
	}
}

func equalAuthors(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
