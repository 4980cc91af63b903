// Package venue normalizes venue names and matches queried venues against
// a set of known candidates.
package venue

import (
	"regexp"
	"strings"
)

// Candidate is a known canonical venue with optional aliases.
type Candidate struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// MatchKind classifies a match result.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchFuzzy MatchKind = "fuzzy"
	MatchNone  MatchKind = "none"
)

// MatchResult is the outcome of matching a query against candidates.
type MatchResult struct {
	Kind      MatchKind `json:"kind"`
	Candidate Candidate `json:"candidate,omitempty"`
	Score     float64   `json:"score,omitempty"`
}

// DefaultThreshold is the minimum similarity for a fuzzy match. Chosen so
// that one-or-two character variants of short conference acronyms still
// match while unrelated venues do not.
const DefaultThreshold = 0.85

var (
	prefixRe = regexp.MustCompile(`(?i)^proceedings( of)?\s+`)
	yearRe   = regexp.MustCompile(`\s+\d{4}$`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Normalize reduces a raw venue string to a canonical comparison key:
// conventional "Proceedings of" prefixes are stripped case-insensitively,
// a trailing 4-digit year token is dropped, and whitespace and case are
// collapsed. Normalize is idempotent.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = prefixRe.ReplaceAllString(s, "")
	s = yearRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// Matcher matches venue queries against candidate sets. A zero threshold
// means DefaultThreshold.
type Matcher struct {
	Threshold float64
}

// Match resolves a query venue against candidates: exact match of
// normalized keys first (aliases included), then the best-scoring fuzzy
// match at or above the threshold. A year suffix on the query is stripped
// by normalization, so "ICML 2024" resolves exactly to "ICML". Equal fuzzy
// scores prefer the lexicographically first candidate name so results are
// reproducible.
func (m Matcher) Match(query string, candidates []Candidate) MatchResult {
	threshold := m.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	key := Normalize(query)
	if key == "" {
		return MatchResult{Kind: MatchNone}
	}

	for _, c := range candidates {
		for _, name := range candidateKeys(c) {
			if key == name {
				return MatchResult{Kind: MatchExact, Candidate: c, Score: 1}
			}
		}
	}

	var (
		best      Candidate
		bestScore float64
		found     bool
	)
	for _, c := range candidates {
		for _, name := range candidateKeys(c) {
			score := Similarity(key, name)
			if score < threshold {
				continue
			}
			if !found || score > bestScore ||
				(score == bestScore && c.Name < best.Name) {
				best = c
				bestScore = score
				found = true
			}
		}
	}
	if found {
		return MatchResult{Kind: MatchFuzzy, Candidate: best, Score: bestScore}
	}

	return MatchResult{Kind: MatchNone}
}

func candidateKeys(c Candidate) []string {
	keys := []string{Normalize(c.Name)}
	for _, a := range c.Aliases {
		keys = append(keys, Normalize(a))
	}
	return keys
}

// Similarity computes a normalized Levenshtein ratio in [0,1]: 1 minus
// edit distance over the longer key length.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

// levenshtein computes edit distance with a single rolling row.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev = cur
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
