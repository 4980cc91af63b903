package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/scholarly/consolidate/internal/paper"
	"github.com/scholarly/consolidate/internal/session"
)

// Phase is one ordered stage of a consolidation run.
type Phase struct {
	Name      string
	Adapter   Adapter
	BatchSize int
}

// Runner executes the configured phases in order over one session's input
// collection. The input papers are mutated in memory by merging; the
// collection itself (and the file it came from) is never rewritten here.
type Runner struct {
	Phases []Phase
	Merger paper.Merger
	Store  session.Store
	Retry  RetryPolicy
}

// Run processes every phase from the session's resume point. Item- and
// batch-level source failures are recorded in the session's counters and
// the run continues; only checkpoint-store failures (and cancellation) end
// the run early, leaving the last durable checkpoint intact.
func (r *Runner) Run(ctx context.Context, sess *session.Session, papers []*paper.Paper) error {
	start, offset := r.resumePoint(sess)

	for i := start; i < len(r.Phases); i++ {
		ph := r.Phases[i]
		if err := r.runPhase(ctx, sess, ph, papers, offset); err != nil {
			return err
		}
		offset = 0

		sess.Phase = session.CompleteMarker(ph.Name)
		sess.Offset = 0
		if err := r.Store.Save(sess); err != nil {
			return fmt.Errorf("checkpointing %s: %w", sess.Phase, err)
		}
	}

	sess.Phase = session.PhaseCompleted
	if err := r.Store.Save(sess); err != nil {
		return fmt.Errorf("checkpointing completion: %w", err)
	}
	return nil
}

// resumePoint maps the session's phase marker to a phase index and batch
// offset. An unknown marker restarts from the beginning; merge idempotence
// makes the re-processing safe.
func (r *Runner) resumePoint(sess *session.Session) (int, int) {
	switch sess.Phase {
	case "":
		return 0, 0
	case session.PhaseCompleted:
		return len(r.Phases), 0
	}
	for i, ph := range r.Phases {
		if sess.Phase == ph.Name {
			return i, sess.Offset
		}
		if sess.Phase == session.CompleteMarker(ph.Name) {
			return i + 1, 0
		}
	}
	return 0, 0
}

// runPhase consumes the input collection in sequential batches, merging
// successes and checkpointing after every batch so a crash loses at most
// the in-flight batch. Cancellation is honored only at batch boundaries.
func (r *Runner) runPhase(ctx context.Context, sess *session.Session, ph Phase, papers []*paper.Paper, offset int) error {
	batchSize := ph.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	sess.Phase = ph.Name
	counts := sess.Counter(ph.Name)

	for start := offset; start < len(papers); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > len(papers) {
			end = len(papers)
		}
		batch := papers[start:end]

		results, err := r.processBatch(ctx, ph.Adapter, batch)
		if err != nil {
			// Whole-batch adapter failure: the phase degrades but
			// continues, so one misbehaving source cannot block
			// data already harvested by earlier phases.
			counts.Processed += len(batch)
			counts.Failed += len(batch)
		} else {
			now := time.Now().UTC()
			for i, res := range results {
				counts.Processed++
				switch {
				case res.Err == nil:
					r.Merger.Merge(batch[i], res.Partial, ph.Name, now)
					counts.Succeeded++
				case IsNotFound(res.Err):
					// Absence, not failure; eligible for a later run.
				default:
					counts.Failed++
				}
			}
		}

		sess.SetCounter(ph.Name, counts)
		sess.Offset = end
		if counts.Failed > 0 {
			sess.Degraded = true
		}
		if err := r.Store.Save(sess); err != nil {
			return fmt.Errorf("checkpointing %s at offset %d: %w", ph.Name, end, err)
		}
	}

	return nil
}

// processBatch invokes the adapter once, then re-submits only the items
// that failed transiently, up to the retry policy's attempt bound.
// Exhausted transient failures stay recorded as failures in the returned
// results.
func (r *Runner) processBatch(ctx context.Context, ad Adapter, batch []*paper.Paper) ([]Result, error) {
	results, err := ad.Process(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(results) != len(batch) {
		return nil, fmt.Errorf("adapter %s returned %d results for %d items", ad.Source(), len(results), len(batch))
	}

	maxAttempts := r.Retry.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for attempt := 1; attempt < maxAttempts; attempt++ {
		var retryIdx []int
		for i, res := range results {
			if res.Err != nil && IsTransient(res.Err) {
				retryIdx = append(retryIdx, i)
			}
		}
		if len(retryIdx) == 0 {
			break
		}

		if err := r.Retry.wait(ctx, attempt-1); err != nil {
			break
		}

		sub := make([]*paper.Paper, len(retryIdx))
		for i, idx := range retryIdx {
			sub[i] = batch[idx]
		}

		subResults, err := ad.Process(ctx, sub)
		if err != nil || len(subResults) != len(sub) {
			continue
		}
		for i, idx := range retryIdx {
			results[idx] = subResults[i]
		}
	}

	return results, nil
}
