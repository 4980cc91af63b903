package discovery

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// doiRe matches DOIs: 10.XXXX/suffix with 4-9 registrant digits.
var doiRe = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// VerifyResult describes a downloaded PDF checked against consolidation
// output.
type VerifyResult struct {
	Path  string `json:"path"`
	Pages int    `json:"pages"`
	DOI   string `json:"doi,omitempty"`
}

// VerifyFile parses a downloaded PDF and extracts an embedded DOI from its
// first pages, so a candidate file can be cross-checked against the record
// it was downloaded for. A parse failure means the file is not a usable
// PDF; a missing DOI is not an error.
func VerifyFile(path string) (*VerifyResult, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result := &VerifyResult{Path: path, Pages: r.NumPage()}

	// The DOI is almost always on the first page; check three to cover
	// cover-sheet PDFs.
	maxPages := 3
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := findDOI(text); doi != "" {
			result.DOI = doi
			break
		}
	}

	return result, nil
}

func findDOI(text string) string {
	for _, match := range doiRe.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isPlausibleDOI(match) {
			return match
		}
	}
	return ""
}

func isPlausibleDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash > 0 && slash < len(doi)-1
}
