// Package refresh keeps cached views warm: it re-fetches entries past their
// soft refresh boundary before they expire, so consumers never see a visible
// stale-then-refetch flash.
package refresh

import (
	"context"
	"sync"
	"time"

	fortifyretry "github.com/felixgeelhaar/fortify/retry"

	"github.com/dealgrid/freshness/domain/cache"
	"github.com/dealgrid/freshness/domain/connectivity"
	"github.com/dealgrid/freshness/domain/event"
	"github.com/dealgrid/freshness/infrastructure/logging"
)

// Fetcher fetches a logical resource from the origin.
type Fetcher func(ctx context.Context, key string) ([]byte, error)

// Config configures the refresher.
type Config struct {
	// Interval is how often tracked keys are swept.
	Interval time.Duration

	// MaxAttempts is the fetch retry budget per key per sweep.
	MaxAttempts int

	// InitialDelay is the initial delay between fetch retries.
	InitialDelay time.Duration

	// BackoffMultiplier is the exponential backoff multiplier.
	BackoffMultiplier float64
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:          time.Minute,
		MaxAttempts:       3,
		InitialDelay:      100 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// Refresher sweeps tracked keys, consults the staleness policy, and
// re-fetches through a bounded exponential-backoff retry. Sweeps are gated on
// reachability and kicked immediately when connectivity is restored.
type Refresher struct {
	store      cache.Store
	monitor    connectivity.Monitor
	thresholds cache.Thresholds
	fetch      Fetcher
	retry      fortifyretry.Retry[[]byte]
	interval   time.Duration

	mu   sync.Mutex
	keys map[string]struct{}

	kick     chan struct{}
	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	unsubBus func()
}

// New creates a refresher. The bus subscription triggers an immediate sweep
// on connectivity restoration; pass a nil bus to opt out.
func New(store cache.Store, monitor connectivity.Monitor, bus event.Bus, fetch Fetcher, thresholds cache.Thresholds, cfg Config) *Refresher {
	r := &Refresher{
		store:      store,
		monitor:    monitor,
		thresholds: thresholds,
		fetch:      fetch,
		interval:   cfg.Interval,
		retry: fortifyretry.New[[]byte](fortifyretry.Config{
			MaxAttempts:   cfg.MaxAttempts,
			InitialDelay:  cfg.InitialDelay,
			BackoffPolicy: fortifyretry.BackoffExponential,
			Multiplier:    cfg.BackoffMultiplier,
		}),
		keys: make(map[string]struct{}),
		kick: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}

	if bus != nil {
		r.unsubBus = bus.Subscribe(event.TopicConnectivityRestored, func(context.Context, event.Event) {
			select {
			case r.kick <- struct{}{}:
			default:
			}
		})
	}

	return r
}

// Track registers a key for proactive refresh.
func (r *Refresher) Track(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[key] = struct{}{}
}

// Untrack removes a key from proactive refresh.
func (r *Refresher) Untrack(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, key)
}

// Start begins sweeping until Stop is called or ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(ctx)
			case <-r.kick:
				r.Sweep(ctx)
			}
		}
	}()
}

// Stop halts sweeping and releases the bus subscription.
func (r *Refresher) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		if r.unsubBus != nil {
			r.unsubBus()
		}
	})
	r.wg.Wait()
}

// Sweep refreshes every tracked key whose entry is past its refresh boundary.
// Unreachable networks skip the sweep entirely.
func (r *Refresher) Sweep(ctx context.Context) {
	if !r.monitor.IsOnline() {
		return
	}

	r.mu.Lock()
	keys := make([]string, 0, len(r.keys))
	for key := range r.keys {
		keys = append(keys, key)
	}
	r.mu.Unlock()

	for _, key := range keys {
		r.refreshKey(ctx, key)
	}
}

// refreshKey re-fetches a single key if its entry is due.
func (r *Refresher) refreshKey(ctx context.Context, key string) {
	entry, found, err := r.store.Get(ctx, key)
	if err != nil {
		return
	}
	if found && !cache.ShouldRefresh(entry.Status, r.thresholds.MaxAge) {
		return
	}

	value, err := r.retry.Do(ctx, func(ctx context.Context) ([]byte, error) {
		return r.fetch(ctx, key)
	})
	if err != nil {
		logging.Debug().
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("background refresh failed")
		return
	}

	if err := r.store.Set(ctx, key, value, cache.FreshStatus()); err != nil {
		logging.Warn().
			Add(logging.Key(key)).
			Add(logging.ErrorField(err)).
			Msg("background refresh store failed")
		return
	}

	logging.Debug().
		Add(logging.Key(key)).
		Msg("entry refreshed")
}
