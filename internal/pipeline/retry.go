package pipeline

import (
	"context"
	"time"
)

// RetryPolicy bounds re-attempts for transient item failures within a
// batch. Backoff is a schedule indexed by retry number; retries past the
// end of the schedule reuse its last entry.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
}

// DefaultRetryPolicy is three attempts with a short ramp. The first retry
// is immediate since rate-limit windows are often already over by the time
// the batch's other items have been handled.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{0, 250 * time.Millisecond, time.Second},
	}
}

// wait sleeps for the backoff step of the given retry (0-based), honoring
// context cancellation.
func (p RetryPolicy) wait(ctx context.Context, retry int) error {
	if len(p.Backoff) == 0 {
		return ctx.Err()
	}
	if retry >= len(p.Backoff) {
		retry = len(p.Backoff) - 1
	}
	d := p.Backoff[retry]
	if d == 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
