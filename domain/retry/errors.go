package retry

import (
	"errors"
	"fmt"
)

// Domain errors for retry sessions.
var (
	// ErrOffline is returned when a trigger arrives while the network is
	// unreachable. It does not count against the retry budget.
	ErrOffline = errors.New("network unreachable")

	// ErrAttemptInProgress is returned when a trigger arrives while the
	// wrapped action is already running.
	ErrAttemptInProgress = errors.New("attempt already in progress")

	// ErrExhausted is returned when a trigger arrives after the retry
	// budget has been consumed.
	ErrExhausted = errors.New("retry limit reached")

	// ErrSessionClosed is returned when a trigger arrives after the
	// session was torn down.
	ErrSessionClosed = errors.New("retry session closed")
)

// AttemptError reports a counted action failure. It is transient: the session
// returns to idle and the next trigger is accepted until the budget is spent.
type AttemptError struct {
	// Attempt is the 1-based attempt that failed.
	Attempt int

	// Max is the session's retry budget.
	Max int

	// Err is the underlying action failure.
	Err error
}

// Error implements the error interface.
func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d of %d failed: %v", e.Attempt, e.Max, e.Err)
}

// Unwrap returns the underlying action failure.
func (e *AttemptError) Unwrap() error {
	return e.Err
}
