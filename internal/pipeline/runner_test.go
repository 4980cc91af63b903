package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/session"
)

// fakeAdapter records every batch it receives and answers via handler.
type fakeAdapter struct {
	name      string
	calls     [][]string // paper keys per Process call
	handler   func(call int, p *paper.Paper) Result
	batchErr  func(call int) error
	afterCall func(call int)
}

func (f *fakeAdapter) Source() string { return f.name }

func (f *fakeAdapter) Process(ctx context.Context, batch []*paper.Paper) ([]Result, error) {
	call := len(f.calls)
	keys := make([]string, len(batch))
	for i, p := range batch {
		keys[i] = p.Key
	}
	f.calls = append(f.calls, keys)

	defer func() {
		if f.afterCall != nil {
			f.afterCall(call)
		}
	}()

	if f.batchErr != nil {
		if err := f.batchErr(call); err != nil {
			return nil, err
		}
	}

	results := make([]Result, len(batch))
	for i, p := range batch {
		if f.handler != nil {
			results[i] = f.handler(call, p)
			continue
		}
		results[i] = Result{Partial: paper.Partial{
			Source:      f.name,
			Identifiers: map[paper.IDKind]string{paper.IDKindOpenAlex: "W-" + p.Key},
		}}
	}
	return results, nil
}

// failStore always fails to persist, simulating a broken checkpoint store.
type failStore struct{}

func (failStore) Save(*session.Session) error          { return errors.New("disk full") }
func (failStore) Get(string) (*session.Session, error) { return nil, session.ErrNotFound }
func (failStore) List() ([]*session.Session, error)    { return nil, nil }

func openTestStore(t *testing.T) *session.SQLiteStore {
	t.Helper()
	st, err := session.OpenStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testPapers(n int) []*paper.Paper {
	papers := make([]*paper.Paper, n)
	for i := range papers {
		papers[i] = paper.New(fmt.Sprintf("Paper Number %d", i+1), 2024)
	}
	return papers
}

func testMerger() paper.Merger {
	return paper.Merger{Priority: []string{"openalex", "semantic_scholar"}}
}

func TestRun_BatchSizeOneInvokesAdapterPerItem(t *testing.T) {
	ad := &fakeAdapter{name: "openalex"}
	r := &Runner{
		Phases: []Phase{{Name: session.PhaseIDHarvesting, Adapter: ad, BatchSize: 1}},
		Merger: testMerger(),
		Store:  openTestStore(t),
		Retry:  DefaultRetryPolicy(),
	}

	sess := session.New("in.jsonl", "")
	papers := testPapers(3)
	if err := r.Run(context.Background(), sess, papers); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ad.calls) != 3 {
		t.Errorf("expected 3 adapter invocations, got %d", len(ad.calls))
	}
	if sess.Phase != session.PhaseCompleted {
		t.Errorf("expected completed, got %q", sess.Phase)
	}
	c := sess.Counter(session.PhaseIDHarvesting)
	if c.Processed != 3 || c.Succeeded != 3 || c.Failed != 0 {
		t.Errorf("counters wrong: %+v", c)
	}
	for _, p := range papers {
		if p.ID(paper.IDKindOpenAlex) == "" {
			t.Errorf("paper %s not merged", p.Key)
		}
	}
}

func TestRun_InterruptAndResume(t *testing.T) {
	st := openTestStore(t)
	papers := testPapers(3)
	sess := session.New("in.jsonl", "")

	ctx, cancel := context.WithCancel(context.Background())
	ad := &fakeAdapter{name: "openalex"}
	ad.afterCall = func(call int) {
		if call == 1 { // cancel once the second item's batch is in flight
			cancel()
		}
	}
	r := &Runner{
		Phases: []Phase{{Name: session.PhaseIDHarvesting, Adapter: ad, BatchSize: 1}},
		Merger: testMerger(),
		Store:  st,
		Retry:  DefaultRetryPolicy(),
	}

	err := r.Run(ctx, sess, papers)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(ad.calls) != 2 {
		t.Fatalf("expected 2 invocations before interrupt, got %d", len(ad.calls))
	}

	// The in-flight batch completed and was checkpointed before the stop
	// took effect.
	parked, err := st.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if parked.Status() != session.StatusInterrupted {
		t.Errorf("parked status = %s, want interrupted", parked.Status())
	}
	if parked.Offset != 2 {
		t.Errorf("parked offset = %d, want 2", parked.Offset)
	}

	item2Prov := len(papers[1].Provenance)

	// Resume: item 3 is processed to completion, item 2 is not duplicated.
	resumed := &Runner{Phases: r.Phases, Merger: r.Merger, Store: st, Retry: r.Retry}
	if err := resumed.Run(context.Background(), parked, papers); err != nil {
		t.Fatalf("resume Run: %v", err)
	}

	if got := ad.calls[len(ad.calls)-1]; len(got) != 1 || got[0] != papers[2].Key {
		t.Errorf("resume did not start at item 3: %v", got)
	}
	if papers[2].ID(paper.IDKindOpenAlex) == "" {
		t.Error("item 3 not merged after resume")
	}
	if len(papers[1].Provenance) != item2Prov {
		t.Errorf("item 2 provenance grew on resume: %d -> %d", item2Prov, len(papers[1].Provenance))
	}
	if parked.Status() != session.StatusCompleted {
		t.Errorf("resumed session status = %s, want completed", parked.Status())
	}
}

func TestRun_BatchLevelAuthErrorDegradesPhase(t *testing.T) {
	ad := &fakeAdapter{
		name: "semantic_scholar",
		batchErr: func(call int) error {
			if call == 0 {
				return fmt.Errorf("%w: status 401", ErrAuth)
			}
			return nil
		},
	}
	r := &Runner{
		Phases: []Phase{{Name: "semantic_scholar_enrichment", Adapter: ad, BatchSize: 2}},
		Merger: testMerger(),
		Store:  openTestStore(t),
		Retry:  DefaultRetryPolicy(),
	}

	sess := session.New("in.jsonl", "")
	papers := testPapers(4)
	if err := r.Run(context.Background(), sess, papers); err != nil {
		t.Fatalf("Run: %v", err)
	}

	c := sess.Counter("semantic_scholar_enrichment")
	if c.Processed != 4 || c.Failed != 2 || c.Succeeded != 2 {
		t.Errorf("counters wrong after batch failure: %+v", c)
	}
	if sess.Phase != session.PhaseCompleted {
		t.Errorf("phase with failures must still complete, got %q", sess.Phase)
	}
	if !sess.Degraded {
		t.Error("session with item failures should be marked degraded")
	}
	if sess.Failed {
		t.Error("item failures must not mark the run as aborted")
	}
}

func TestRun_NotFoundIsAbsenceNotFailure(t *testing.T) {
	ad := &fakeAdapter{
		name: "openalex",
		handler: func(call int, p *paper.Paper) Result {
			return Result{Err: ErrNotFound}
		},
	}
	r := &Runner{
		Phases: []Phase{{Name: session.PhaseIDHarvesting, Adapter: ad, BatchSize: 1}},
		Merger: testMerger(),
		Store:  openTestStore(t),
		Retry:  DefaultRetryPolicy(),
	}

	sess := session.New("in.jsonl", "")
	if err := r.Run(context.Background(), sess, testPapers(2)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	c := sess.Counter(session.PhaseIDHarvesting)
	if c.Processed != 2 || c.Failed != 0 || c.Succeeded != 0 {
		t.Errorf("not-found miscounted: %+v", c)
	}
}

func TestRun_TransientItemRetriedWithinBatch(t *testing.T) {
	attempts := make(map[string]int)
	ad := &fakeAdapter{name: "openalex"}
	ad.handler = func(call int, p *paper.Paper) Result {
		attempts[p.Key]++
		if attempts[p.Key] == 1 {
			return Result{Err: fmt.Errorf("%w: 429", ErrTransient)}
		}
		return Result{Partial: paper.Partial{
			Source:      "openalex",
			Identifiers: map[paper.IDKind]string{paper.IDKindOpenAlex: "W-" + p.Key},
		}}
	}
	r := &Runner{
		Phases: []Phase{{Name: session.PhaseIDHarvesting, Adapter: ad, BatchSize: 2}},
		Merger: testMerger(),
		Store:  openTestStore(t),
		Retry:  RetryPolicy{MaxAttempts: 3, Backoff: []time.Duration{0}},
	}

	sess := session.New("in.jsonl", "")
	papers := testPapers(2)
	if err := r.Run(context.Background(), sess, papers); err != nil {
		t.Fatalf("Run: %v", err)
	}

	c := sess.Counter(session.PhaseIDHarvesting)
	if c.Succeeded != 2 || c.Failed != 0 {
		t.Errorf("retried items should succeed: %+v", c)
	}
	for key, n := range attempts {
		if n != 2 {
			t.Errorf("item %s attempted %d times, want 2", key, n)
		}
	}
}

func TestRun_TransientRetryExhaustionDemotesToFailure(t *testing.T) {
	ad := &fakeAdapter{
		name: "openalex",
		handler: func(call int, p *paper.Paper) Result {
			return Result{Err: fmt.Errorf("%w: timeout", ErrTransient)}
		},
	}
	r := &Runner{
		Phases: []Phase{{Name: session.PhaseIDHarvesting, Adapter: ad, BatchSize: 1}},
		Merger: testMerger(),
		Store:  openTestStore(t),
		Retry:  RetryPolicy{MaxAttempts: 3, Backoff: []time.Duration{0}},
	}

	sess := session.New("in.jsonl", "")
	if err := r.Run(context.Background(), sess, testPapers(1)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ad.calls) != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", len(ad.calls))
	}
	c := sess.Counter(session.PhaseIDHarvesting)
	if c.Failed != 1 {
		t.Errorf("exhausted transient not demoted to failure: %+v", c)
	}
}

func TestRun_AuthItemErrorNotRetried(t *testing.T) {
	ad := &fakeAdapter{
		name: "openalex",
		handler: func(call int, p *paper.Paper) Result {
			return Result{Err: fmt.Errorf("%w: bad key", ErrAuth)}
		},
	}
	r := &Runner{
		Phases: []Phase{{Name: session.PhaseIDHarvesting, Adapter: ad, BatchSize: 1}},
		Merger: testMerger(),
		Store:  openTestStore(t),
		Retry:  RetryPolicy{MaxAttempts: 3, Backoff: []time.Duration{0}},
	}

	sess := session.New("in.jsonl", "")
	if err := r.Run(context.Background(), sess, testPapers(1)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(ad.calls) != 1 {
		t.Errorf("auth failure must not be retried: %d calls", len(ad.calls))
	}
	if c := sess.Counter(session.PhaseIDHarvesting); c.Failed != 1 {
		t.Errorf("auth failure not counted: %+v", c)
	}
}

func TestRun_CheckpointStoreFailureIsFatal(t *testing.T) {
	ad := &fakeAdapter{name: "openalex"}
	r := &Runner{
		Phases: []Phase{{Name: session.PhaseIDHarvesting, Adapter: ad, BatchSize: 1}},
		Merger: testMerger(),
		Store:  failStore{},
		Retry:  DefaultRetryPolicy(),
	}

	sess := session.New("in.jsonl", "")
	err := r.Run(context.Background(), sess, testPapers(3))
	if err == nil {
		t.Fatal("expected fatal error from checkpoint store")
	}
	if len(ad.calls) != 1 {
		t.Errorf("run should stop after first failed checkpoint, got %d calls", len(ad.calls))
	}
}

func TestRun_MultiPhaseOrder(t *testing.T) {
	harvest := &fakeAdapter{name: "openalex"}
	enrich := &fakeAdapter{name: "semantic_scholar"}
	r := &Runner{
		Phases: []Phase{
			{Name: session.PhaseIDHarvesting, Adapter: harvest, BatchSize: 1},
			{Name: "semantic_scholar_enrichment", Adapter: enrich, BatchSize: 3},
		},
		Merger: testMerger(),
		Store:  openTestStore(t),
		Retry:  DefaultRetryPolicy(),
	}

	sess := session.New("in.jsonl", "")
	if err := r.Run(context.Background(), sess, testPapers(3)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(harvest.calls) != 3 || len(enrich.calls) != 1 {
		t.Errorf("phase batching wrong: harvest=%d enrich=%d", len(harvest.calls), len(enrich.calls))
	}
	if sess.Phase != session.PhaseCompleted {
		t.Errorf("expected completed, got %q", sess.Phase)
	}
}

func TestResumePoint_SkipsCompletedPhases(t *testing.T) {
	r := &Runner{Phases: []Phase{
		{Name: session.PhaseIDHarvesting},
		{Name: "semantic_scholar_enrichment"},
	}}

	tests := []struct {
		phase      string
		offset     int
		wantPhase  int
		wantOffset int
	}{
		{"", 0, 0, 0},
		{"id_harvesting", 7, 0, 7},
		{"id_harvesting_complete", 0, 1, 0},
		{"semantic_scholar_enrichment", 2, 1, 2},
		{"semantic_scholar_enrichment_complete", 0, 2, 0},
		{"completed", 0, 2, 0},
		{"unknown_phase", 9, 0, 0},
	}
	for _, tt := range tests {
		sess := &session.Session{Phase: tt.phase, Offset: tt.offset}
		gotPhase, gotOffset := r.resumePoint(sess)
		if gotPhase != tt.wantPhase || gotOffset != tt.wantOffset {
			t.Errorf("resumePoint(%q) = (%d, %d), want (%d, %d)",
				tt.phase, gotPhase, gotOffset, tt.wantPhase, tt.wantOffset)
		}
	}
}
