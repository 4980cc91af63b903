package pipeline

import "errors"

// Typed failures returned by source adapters. The batch processor treats
// each class differently: not-found is recorded as absence, transient
// errors are retried up to the policy's attempt bound, and auth errors are
// never retried.
var (
	// ErrNotFound indicates the source has no data for this paper.
	ErrNotFound = errors.New("not found at source")

	// ErrTransient indicates a retryable failure (rate limit, timeout).
	ErrTransient = errors.New("transient source error")

	// ErrAuth indicates an authorization failure (missing/invalid key).
	ErrAuth = errors.New("source authorization error")
)

// IsNotFound reports whether err is an item-level not-found.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTransient reports whether err is eligible for retry.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// IsAuth reports whether err is an authorization failure.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }
