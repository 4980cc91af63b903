package s2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/pipeline"
)

func TestLookupID(t *testing.T) {
	tests := []struct {
		name string
		ids  map[paper.IDKind]string
		want string
	}{
		{"doi preferred", map[paper.IDKind]string{paper.IDKindDOI: "10.1/x", paper.IDKindArXiv: "2104.01234"}, "DOI:10.1/x"},
		{"arxiv fallback", map[paper.IDKind]string{paper.IDKindArXiv: "2104.01234"}, "ARXIV:2104.01234"},
		{"no usable id", map[paper.IDKind]string{paper.IDKindOpenAlex: "W123"}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &paper.Paper{Identifiers: tt.ids}
			if got := lookupID(p); got != tt.want {
				t.Errorf("lookupID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProcess_AlignsResultsWithBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		// Two ids requested: first known, second unknown.
		w.Write([]byte(`[{"paperId":"abc","title":"Known","year":2021,"venue":"NeurIPS",
			"externalIds":{"DOI":"10.1/known"},"authors":[{"name":"A. Author"}]},null]`))
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(WithBaseURL(srv.URL)))
	batch := []*paper.Paper{
		{Key: "no-id-2020"},
		{Key: "known-2021", Identifiers: map[paper.IDKind]string{paper.IDKindDOI: "10.1/known"}},
		{Key: "unknown-2022", Identifiers: map[paper.IDKind]string{paper.IDKindArXiv: "2202.00001"}},
	}

	results, err := a.Process(context.Background(), batch)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if !pipeline.IsNotFound(results[0].Err) {
		t.Errorf("results[0].Err = %v, want not-found", results[0].Err)
	}
	if results[1].Err != nil {
		t.Fatalf("results[1].Err = %v", results[1].Err)
	}
	got := results[1].Partial
	if got.Source != SourceName || got.Title != "Known" || got.Year != 2021 {
		t.Errorf("unexpected partial: %+v", got)
	}
	if got.Identifiers[paper.IDKindS2] != "abc" {
		t.Errorf("s2 id = %q, want abc", got.Identifiers[paper.IDKindS2])
	}
	if !pipeline.IsNotFound(results[2].Err) {
		t.Errorf("results[2].Err = %v, want not-found", results[2].Err)
	}
}

func TestProcess_AuthErrorMapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(WithBaseURL(srv.URL)))
	batch := []*paper.Paper{
		{Key: "p-2021", Identifiers: map[paper.IDKind]string{paper.IDKindDOI: "10.1/x"}},
	}
	_, err := a.Process(context.Background(), batch)
	if !pipeline.IsAuth(err) {
		t.Errorf("Process() error = %v, want auth", err)
	}
}

func TestProcess_RateLimitMappedTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewAdapter(NewClient(WithBaseURL(srv.URL)))
	batch := []*paper.Paper{
		{Key: "p-2021", Identifiers: map[paper.IDKind]string{paper.IDKindDOI: "10.1/x"}},
	}
	_, err := a.Process(context.Background(), batch)
	if !pipeline.IsTransient(err) {
		t.Errorf("Process() error = %v, want transient", err)
	}
}

func TestToPartial_SkipsNonNumericPubMed(t *testing.T) {
	sp := &S2Paper{PaperID: "abc", Title: "T"}
	sp.ExternalIDs.PubMed = "PMC1234"
	partial := toPartial(sp)
	if _, ok := partial.Identifiers[paper.IDKindPubMed]; ok {
		t.Error("non-numeric PubMed id should be skipped")
	}
}
