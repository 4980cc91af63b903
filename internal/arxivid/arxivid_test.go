package arxivid

import "testing"

func TestExtract_FromDOI(t *testing.T) {
	tests := []struct {
		name string
		doi  string
		want string
	}{
		{"datacite doi", "10.48550/arXiv.1706.03762", "1706.03762"},
		{"lowercase token", "10.48550/arxiv.2301.00001", "2301.00001"},
		{"five digit suffix", "10.48550/arXiv.2412.12345", "2412.12345"},
		{"non-arxiv doi", "10.1038/s41586-021-03819-2", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(MetadataResponse{DOI: tt.doi})
			if got != tt.want {
				t.Errorf("Extract(doi=%q) = %q, want %q", tt.doi, got, tt.want)
			}
		})
	}
}

func TestExtract_FromPrimaryLocation(t *testing.T) {
	tests := []struct {
		name string
		loc  Location
		want string
	}{
		{"landing abs url", Location{LandingPageURL: "https://arxiv.org/abs/1706.03762"}, "1706.03762"},
		{"pdf url", Location{PDFURL: "https://arxiv.org/pdf/2105.08050"}, "2105.08050"},
		{"versioned pdf url", Location{PDFURL: "https://arxiv.org/pdf/2105.08050v3"}, "2105.08050"},
		{"landing preferred over pdf", Location{
			LandingPageURL: "https://arxiv.org/abs/2001.00001",
			PDFURL:         "https://arxiv.org/pdf/2002.00002",
		}, "2001.00001"},
		{"non-arxiv host", Location{LandingPageURL: "https://doi.org/10.1145/1234"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := tt.loc
			got := Extract(MetadataResponse{Primary: &loc})
			if got != tt.want {
				t.Errorf("Extract(primary=%+v) = %q, want %q", tt.loc, got, tt.want)
			}
		})
	}
}

func TestExtract_DOITakesPriorityOverURLs(t *testing.T) {
	resp := MetadataResponse{
		DOI:     "10.48550/arXiv.1111.11111",
		Primary: &Location{LandingPageURL: "https://arxiv.org/abs/2222.22222"},
	}
	if got := Extract(resp); got != "1111.11111" {
		t.Errorf("expected DOI strategy to win, got %q", got)
	}
}

func TestExtract_FallsBackToSecondaryLocations(t *testing.T) {
	resp := MetadataResponse{
		DOI:     "10.1038/nature12345",
		Primary: &Location{LandingPageURL: "https://www.nature.com/articles/nature12345"},
		Locations: []Location{
			{LandingPageURL: "https://semanticscholar.org/paper/abc"},
			{PDFURL: "https://arxiv.org/pdf/1912.01234"},
		},
	}
	if got := Extract(resp); got != "1912.01234" {
		t.Errorf("expected secondary location match, got %q", got)
	}
}

func TestExtract_NoMatchYieldsEmpty(t *testing.T) {
	resp := MetadataResponse{
		DOI:     "10.1145/3292500",
		Primary: &Location{LandingPageURL: "https://dl.acm.org/doi/10.1145/3292500"},
		Locations: []Location{
			{PDFURL: "https://publisher.example.com/paper.pdf"},
		},
	}
	if got := Extract(resp); got != "" {
		t.Errorf("expected no identifier, got %q", got)
	}
}

func TestExtract_NilPrimary(t *testing.T) {
	if got := Extract(MetadataResponse{}); got != "" {
		t.Errorf("expected empty for empty response, got %q", got)
	}
}
