// Package arxivid extracts normalized arXiv identifiers from heterogeneous
// metadata-index responses.
package arxivid

import (
	"regexp"
	"strings"
)

// Location is one place a metadata index says a paper can be found.
type Location struct {
	LandingPageURL string
	PDFURL         string
}

// MetadataResponse is the slice of an index response that identifier
// extraction inspects: the DOI, the primary location, and any secondary
// locations attached to the work.
type MetadataResponse struct {
	DOI       string
	Primary   *Location
	Locations []Location
}

// idRe matches the modern arXiv numbering scheme: 4 digits, dot, 4-5 digits.
var idRe = regexp.MustCompile(`\d{4}\.\d{4,5}`)

// urlRe matches arXiv abs/pdf URL paths and captures the identifier.
var urlRe = regexp.MustCompile(`arxiv\.org/(?:abs|pdf)/(\d{4}\.\d{4,5})`)

// versionRe matches a trailing version suffix like "v2".
var versionRe = regexp.MustCompile(`v\d+$`)

// Extract pulls a normalized arXiv identifier out of a response, trying in
// order: the DOI, the primary location's landing-page then PDF URL, and
// finally every secondary location. The PDF URL is frequently absent for
// this source, so all three fallbacks matter. An empty string means no
// identifier was found; that is a valid outcome, not an error.
func Extract(resp MetadataResponse) string {
	if id := fromDOI(resp.DOI); id != "" {
		return id
	}

	if resp.Primary != nil {
		if id := fromURL(resp.Primary.LandingPageURL); id != "" {
			return id
		}
		if id := fromURL(resp.Primary.PDFURL); id != "" {
			return id
		}
	}

	for _, loc := range resp.Locations {
		if id := fromURL(loc.LandingPageURL); id != "" {
			return id
		}
		if id := fromURL(loc.PDFURL); id != "" {
			return id
		}
	}

	return ""
}

// fromDOI extracts an identifier from a DOI that embeds an arXiv token,
// e.g. "10.48550/arXiv.1706.03762".
func fromDOI(doi string) string {
	if doi == "" || !strings.Contains(strings.ToLower(doi), "arxiv") {
		return ""
	}
	return stripVersion(idRe.FindString(doi))
}

// fromURL extracts an identifier from an arxiv.org abs or pdf URL.
func fromURL(url string) string {
	if url == "" {
		return ""
	}
	m := urlRe.FindStringSubmatch(strings.ToLower(url))
	if m == nil {
		return ""
	}
	return m[1]
}

func stripVersion(id string) string {
	return versionRe.ReplaceAllString(id, "")
}
