// Package retry provides the domain model for user-triggered retry sessions:
// the session state, attempt accounting, and the error taxonomy.
package retry

import "context"

// Action is the asynchronous operation a session wraps. A nil return means
// success; any error counts against the retry budget.
type Action func(ctx context.Context) error

// State identifies a session's position in its lifecycle.
type State string

// Session states.
const (
	// StateIdle accepts a trigger: nothing has started, or the previous
	// attempt completed.
	StateIdle State = "idle"

	// StateAttempting is entered while the wrapped action runs; further
	// triggers are rejected rather than queued.
	StateAttempting State = "attempting"

	// StateExhausted is absorbing once the retry budget is spent; only a
	// connectivity restoration leaves it.
	StateExhausted State = "exhausted"
)

// DefaultMaxRetries is the default retry budget per session.
const DefaultMaxRetries = 3

// Snapshot is the externally visible session state at a point in time.
type Snapshot struct {
	// Attempt is the number of attempts spent so far.
	Attempt int

	// MaxRetries is the session's retry budget.
	MaxRetries int

	// Attempting reports whether the wrapped action is currently running.
	Attempting bool

	// Exhausted reports whether the retry budget has been consumed.
	Exhausted bool

	// Online is the connectivity state observed at snapshot time.
	Online bool

	// LastErr is the most recent action failure, if any.
	LastErr error
}

// Options configures a retry session.
type Options struct {
	// MaxRetries is the retry budget. Zero means DefaultMaxRetries.
	MaxRetries int

	// OnExhausted is invoked once when the session enters the exhausted
	// state.
	OnExhausted func()
}

// Metrics is an optional recorder for retry outcomes. Implementations must
// never block and never propagate failures back into the session.
type Metrics interface {
	RecordAttempt(ctx context.Context, success bool)
	RecordExhaustion(ctx context.Context)
}

// Label derives the user-facing control text from the three observable
// booleans. It is a pure function kept apart from the transition logic so the
// state machine stays free of rendering concerns.
func Label(online, attempting, exhausted bool) string {
	switch {
	case !online:
		return "Offline"
	case attempting:
		return "Retrying..."
	case exhausted:
		return "Retry limit reached"
	default:
		return "Try again"
	}
}
