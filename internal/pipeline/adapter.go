// Package pipeline drives the phased, checkpointed consolidation run:
// sequential batches per phase, partial-failure tolerance, and progress
// reporting through the session store.
package pipeline

import (
	"context"

	"github.com/scholarly/consolidate/internal/paper"
)

// Result is the per-item outcome of one adapter call: a partial record on
// success, a typed failure otherwise (see errors.go).
type Result struct {
	Partial paper.Partial
	Err     error
}

// Adapter is the uniform capability every external source implements:
// process one batch of papers and report per-item results. Sources with
// incompatible request shapes (single-item queries, capped batch
// endpoints) hide those differences behind this interface; the batch
// processor never sees a source-specific shape.
//
// Process must return exactly one Result per input paper, in input order.
// A returned error means the whole batch failed (e.g. authorization); the
// processor records it against every item in the batch and moves on.
type Adapter interface {
	Source() string
	Process(ctx context.Context, batch []*paper.Paper) ([]Result, error)
}
