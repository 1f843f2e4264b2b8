package runner

import "errors"

// Sentinel errors for the runner package.
var (
	// ErrMaxFailures is returned when the max failure limit is reached.
	ErrMaxFailures = errors.New("runner: max failures reached")

	// ErrTimeout is reported when an invocation outlives its timeout.
	ErrTimeout = errors.New("runner: test timed out")

	// ErrPanic is reported when a test body panics.
	ErrPanic = errors.New("runner: test panicked")

	// ErrInvalidTagExpr is returned when a tag expression does not compile.
	ErrInvalidTagExpr = errors.New("runner: invalid tag expression")

	// ErrInvalidFilter is returned when a path filter does not compile.
	ErrInvalidFilter = errors.New("runner: invalid filter")

	// Test errors for use in unit tests.
	errTestFail = errors.New("test: fail")
)
