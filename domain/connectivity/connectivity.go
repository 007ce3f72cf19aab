// Package connectivity provides the domain interface for network
// reachability: a process-wide online/offline boolean plus change
// subscriptions.
package connectivity

// Listener is invoked exactly once per genuine reachability transition with
// the new state.
type Listener func(online bool)

// Monitor exposes the current reachability state and a subscription
// mechanism. Implementations coalesce duplicate runtime signals so listeners
// only ever see real transitions. Only the monitor mutates the state; any
// component may read it.
type Monitor interface {
	// IsOnline reports the current reachability state.
	IsOnline() bool

	// Subscribe registers a listener for reachability transitions and
	// returns an unsubscribe function. Unsubscribing is idempotent and
	// safe after the monitor has been torn down.
	Subscribe(l Listener) (unsubscribe func())

	// Generation returns a counter incremented on every transition, used
	// to detect stale subscriptions.
	Generation() uint64
}
