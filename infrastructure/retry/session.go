package retry

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/dealgrid/freshness/domain/connectivity"
	"github.com/dealgrid/freshness/domain/retry"
	"github.com/dealgrid/freshness/infrastructure/logging"
)

// Session wraps a single user-triggered action with offline gating, attempt
// counting and exhaustion detection. Triggers are serialized by the
// attempting state: a second trigger while one runs is rejected, not queued.
type Session struct {
	id      string
	action  retry.Action
	monitor connectivity.Monitor
	metrics retry.Metrics

	onExhausted func()

	mu          sync.Mutex
	interp      *statekit.Interpreter[*machineContext]
	mctx        *machineContext
	closed      bool
	unsubscribe func()

	subscribers map[uint64]func(retry.Snapshot)
	nextSubID   uint64
}

// SessionOption configures a session.
type SessionOption func(*Session)

// WithMetrics attaches an outcome recorder.
func WithMetrics(m retry.Metrics) SessionOption {
	return func(s *Session) {
		s.metrics = m
	}
}

// NewSession creates a session around action, gated by the given monitor.
func NewSession(monitor connectivity.Monitor, action retry.Action, opts retry.Options, sessionOpts ...SessionOption) (*Session, error) {
	machine, err := newSessionMachine()
	if err != nil {
		return nil, err
	}

	mctx := &machineContext{
		MaxRetries: opts.MaxRetries,
	}
	if mctx.MaxRetries <= 0 {
		mctx.MaxRetries = retry.DefaultMaxRetries
	}

	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **machineContext) {
		*c = mctx
	})
	interp.Start()

	s := &Session{
		id:          uuid.NewString(),
		action:      action,
		monitor:     monitor,
		onExhausted: opts.OnExhausted,
		interp:      interp,
		mctx:        mctx,
		subscribers: make(map[uint64]func(retry.Snapshot)),
	}
	for _, opt := range sessionOpts {
		opt(s)
	}

	// A restored connection re-arms an exhausted session without
	// forgetting how many attempts were already spent.
	s.unsubscribe = monitor.Subscribe(func(online bool) {
		if !online {
			s.notify()
			return
		}
		s.mu.Lock()
		restored := !s.closed && s.interp.Matches(stateExhausted)
		attempt := s.mctx.Attempt
		if restored {
			s.interp.Send(statekit.Event{Type: eventRestore})
		}
		s.mu.Unlock()

		if restored {
			logging.Info().
				Add(logging.SessionID(s.id)).
				Add(logging.Attempt(attempt)).
				Msg("retry session re-armed after reconnect")
		}
		s.notify()
	})

	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Trigger runs the wrapped action once. It is rejected without spending an
// attempt while offline, while another attempt runs, after exhaustion, or
// after Close.
func (s *Session) Trigger(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return retry.ErrSessionClosed
	case s.interp.Matches(stateAttempting):
		s.mu.Unlock()
		return retry.ErrAttemptInProgress
	case !s.monitor.IsOnline():
		s.mu.Unlock()
		logging.Info().
			Add(logging.SessionID(s.id)).
			Msg("trigger rejected while offline")
		return retry.ErrOffline
	case s.interp.Matches(stateExhausted):
		s.mu.Unlock()
		return retry.ErrExhausted
	}

	s.mctx.Attempt++
	attempt := s.mctx.Attempt
	maxRetries := s.mctx.MaxRetries
	s.interp.Send(statekit.Event{Type: eventTrigger})
	s.mu.Unlock()
	s.notify()

	err := s.action(ctx)

	s.mu.Lock()
	if s.closed {
		// The session was torn down mid-flight; the result is
		// discarded and no further transition occurs.
		s.mu.Unlock()
		return retry.ErrSessionClosed
	}

	if err == nil {
		s.interp.Send(statekit.Event{Type: eventSucceed})
		s.mu.Unlock()
		s.notify()
		s.recordAttempt(ctx, true)

		logging.Info().
			Add(logging.SessionID(s.id)).
			Add(logging.Attempt(attempt)).
			Msg("action succeeded")
		return nil
	}

	s.mctx.LastErr = err
	exhausted := attempt >= maxRetries
	if exhausted {
		s.interp.Send(statekit.Event{Type: eventExhaust})
	} else {
		s.interp.Send(statekit.Event{Type: eventFail})
	}
	s.mu.Unlock()
	s.notify()
	s.recordAttempt(ctx, false)

	attemptErr := &retry.AttemptError{Attempt: attempt, Max: maxRetries, Err: err}

	if exhausted {
		s.recordExhaustion(ctx)
		logging.Warn().
			Add(logging.SessionID(s.id)).
			Add(logging.Attempt(attempt)).
			Add(logging.ErrorField(err)).
			Msg("retry budget exhausted")
		if s.onExhausted != nil {
			s.onExhausted()
		}
	} else {
		logging.Info().
			Add(logging.SessionID(s.id)).
			Add(logging.Attempt(attempt)).
			Add(logging.ErrorField(err)).
			Msg("action failed, retry available")
	}

	return attemptErr
}

// Snapshot returns the externally visible session state.
func (s *Session) Snapshot() retry.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// snapshotLocked builds a snapshot (must hold lock).
func (s *Session) snapshotLocked() retry.Snapshot {
	return retry.Snapshot{
		Attempt:    s.mctx.Attempt,
		MaxRetries: s.mctx.MaxRetries,
		Attempting: s.interp.Matches(stateAttempting),
		Exhausted:  s.interp.Matches(stateExhausted),
		Online:     s.monitor.IsOnline(),
		LastErr:    s.mctx.LastErr,
	}
}

// Label returns the user-facing control text for the current state.
func (s *Session) Label() string {
	snap := s.Snapshot()
	return retry.Label(snap.Online, snap.Attempting, snap.Exhausted)
}

// Subscribe registers fn for state-change notifications and returns an
// idempotent unsubscribe function.
func (s *Session) Subscribe(fn func(retry.Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subscribers[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// notify dispatches the current snapshot to all subscribers.
func (s *Session) notify() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	subs := make([]func(retry.Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Close tears the session down. A trigger resolving after Close discards its
// result. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsubscribe
	s.interp.Stop()
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

func (s *Session) recordAttempt(ctx context.Context, success bool) {
	if s.metrics != nil {
		s.metrics.RecordAttempt(ctx, success)
	}
}

func (s *Session) recordExhaustion(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.RecordExhaustion(ctx)
	}
}
