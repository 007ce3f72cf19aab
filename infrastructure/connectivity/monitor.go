// Package connectivity implements the process-wide reachability monitor.
package connectivity

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dealgrid/freshness/domain/connectivity"
	"github.com/dealgrid/freshness/infrastructure/logging"
)

// Monitor tracks the runtime's online/offline signal. Duplicate reports that
// do not change the boolean are coalesced; listeners fire exactly once per
// genuine transition, synchronously, in subscription order.
type Monitor struct {
	online     atomic.Bool
	generation atomic.Uint64

	mu        sync.Mutex
	listeners map[uint64]connectivity.Listener
	nextID    uint64
	after     func(online bool)
}

// MonitorOption configures the monitor.
type MonitorOption func(*Monitor)

// WithInitial sets the initial reachability sample. The default assumes the
// network is reachable at startup.
func WithInitial(online bool) MonitorOption {
	return func(m *Monitor) {
		m.online.Store(online)
	}
}

// NewMonitor creates a new monitor.
func NewMonitor(opts ...MonitorOption) *Monitor {
	m := &Monitor{
		listeners: make(map[uint64]connectivity.Listener),
	}
	m.online.Store(true)
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsOnline reports the current reachability state.
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// Generation returns the transition counter.
func (m *Monitor) Generation() uint64 {
	return m.generation.Load()
}

// Report feeds a reachability sample from the host runtime. A sample equal to
// the current state is a no-op: no generation bump, no listener dispatch.
func (m *Monitor) Report(online bool) {
	m.mu.Lock()
	if m.online.Load() == online {
		m.mu.Unlock()
		return
	}
	m.online.Store(online)
	gen := m.generation.Add(1)

	// Snapshot in subscription order so a listener unsubscribing during
	// dispatch cannot skip its peers.
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	snapshot := make([]connectivity.Listener, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, m.listeners[id])
	}
	after := m.after
	m.mu.Unlock()

	logging.Debug().
		Add(logging.Online(online)).
		Add(logging.Generation(gen)).
		Msg("connectivity transition")

	for _, l := range snapshot {
		l(online)
	}

	if after != nil {
		after(online)
	}
}

// AfterTransition installs a hook invoked after every listener has observed
// a transition. Used to republish transitions on the invalidation bus
// without overtaking direct listeners. At most one hook; nil removes it.
func (m *Monitor) AfterTransition(hook func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.after = hook
}

// Subscribe registers a listener for transitions. The returned unsubscribe
// function is idempotent and safe after teardown.
func (m *Monitor) Subscribe(l connectivity.Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	id := m.nextID
	m.listeners[id] = l

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Ensure Monitor implements connectivity.Monitor
var _ connectivity.Monitor = (*Monitor)(nil)
