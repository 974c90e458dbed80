package hoo

import "github.com/pkg/errors"

//////
// Errors.
//////

var (
	// ErrConfiguration is returned for invalid geometry (mismatched bound
	// vectors, lower > upper, non-positive priority weight) or invalid engine
	// parameters. Validation errors are aggregated, and every entry wraps this
	// sentinel, so `errors.Is(err, ErrConfiguration)` holds on the aggregate.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrMissingParent is returned when a region is requested before the
	// region of its parent was computed.
	ErrMissingParent = errors.New("parent region not computed")

	// ErrInvariantViolation signals an internal logic error, e.g. activating
	// a node twice. It is not recoverable and aborts the run.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrNotConfigured is returned by Run when the oracle or the covering is
	// missing, or the round budget is invalid.
	ErrNotConfigured = errors.New("engine not configured")

	// ErrNonFiniteReward is returned when the oracle yields NaN or ±Inf.
	ErrNonFiniteReward = errors.New("non-finite reward")
)
