// Package application provides the application layer for the freshness
// subsystem: it wires the connectivity monitor, invalidation bus, query
// cache, background refresher and retry sessions into one facade.
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dealgrid/freshness/domain/cache"
	"github.com/dealgrid/freshness/domain/config"
	"github.com/dealgrid/freshness/domain/connectivity"
	"github.com/dealgrid/freshness/domain/event"
	"github.com/dealgrid/freshness/domain/retry"
	infracache "github.com/dealgrid/freshness/infrastructure/cache"
	infraconn "github.com/dealgrid/freshness/infrastructure/connectivity"
	infraevent "github.com/dealgrid/freshness/infrastructure/event"
	"github.com/dealgrid/freshness/infrastructure/logging"
	"github.com/dealgrid/freshness/infrastructure/refresh"
	infraretry "github.com/dealgrid/freshness/infrastructure/retry"
	badgerstore "github.com/dealgrid/freshness/infrastructure/storage/badger"
	"github.com/dealgrid/freshness/infrastructure/telemetry"
)

// App is the composition root. It owns the shared connectivity monitor and
// invalidation bus, and hands out retry sessions bound to them.
type App struct {
	cfg     config.Config
	monitor *infraconn.Monitor
	bus     *infraevent.Bus
	store   *infracache.QueryCache
	mirror  cache.Mirror
	metrics *telemetry.MetricsProvider

	refresher *refresh.Refresher
	watcher   *infraconn.Watcher

	closeOnce sync.Once
	closeErr  error
}

// Option configures the App.
type Option func(*App)

// WithMirror installs a durable mirror, overriding the configuration.
func WithMirror(m cache.Mirror) Option {
	return func(a *App) {
		a.mirror = m
	}
}

// WithMetrics installs a metrics provider. Without one, no metrics are
// recorded.
func WithMetrics(mp *telemetry.MetricsProvider) Option {
	return func(a *App) {
		a.metrics = mp
	}
}

// New creates an App from the given configuration.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	a := &App{
		cfg:     cfg,
		monitor: infraconn.NewMonitor(),
		bus:     infraevent.NewBus(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.mirror == nil && (cfg.Cache.MirrorDir != "" || cfg.Cache.MirrorInMemory) {
		mirrorCfg := badgerstore.DefaultConfig()
		mirrorCfg.Dir = cfg.Cache.MirrorDir
		mirrorCfg.InMemory = cfg.Cache.MirrorInMemory
		mirror, err := badgerstore.NewMirror(mirrorCfg)
		if err != nil {
			return nil, fmt.Errorf("open durable mirror: %w", err)
		}
		a.mirror = mirror
	}

	cacheOpts := []infracache.QueryCacheOption{}
	if a.mirror != nil {
		cacheOpts = append(cacheOpts, infracache.WithMirror(a.mirror))
	}
	if a.metrics != nil {
		cacheOpts = append(cacheOpts, infracache.WithMetrics(a.metrics))
	}
	a.store = infracache.NewQueryCache(cacheOpts...)

	// Republish reachability transitions on the bus after every direct
	// monitor listener has observed them: the monitor produces, the bus
	// derives.
	a.monitor.AfterTransition(func(online bool) {
		if a.metrics != nil {
			a.metrics.RecordTransition(context.Background(), online)
		}
		if online {
			a.bus.Publish(context.Background(), event.TopicConnectivityRestored, nil)
		}
	})

	if cfg.Connectivity.ProbeURL != "" {
		a.watcher = infraconn.NewWatcher(a.monitor,
			infraconn.WithInterval(cfg.Connectivity.ProbeInterval.Duration()),
			infraconn.WithCheck(infraconn.HTTPCheck(
				cfg.Connectivity.ProbeURL,
				cfg.Connectivity.ProbeTimeout.Duration(),
			)),
		)
	}

	logging.Info().
		Add(logging.Online(a.monitor.IsOnline())).
		Msg("freshness application assembled")

	return a, nil
}

// Start begins background work: the reachability watcher (when a probe URL
// is configured) and the refresher (when a fetcher is installed).
func (a *App) Start(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Start(ctx)
	}
	if a.refresher != nil {
		a.refresher.Start(ctx)
	}
}

// IsOnline reports the current reachability belief.
func (a *App) IsOnline() bool {
	return a.monitor.IsOnline()
}

// ReportConnectivity feeds an external reachability observation into the
// monitor. Duplicate observations are coalesced.
func (a *App) ReportConnectivity(online bool) {
	a.monitor.Report(online)
}

// SubscribeConnectivity registers a listener for reachability transitions.
func (a *App) SubscribeConnectivity(l connectivity.Listener) (unsubscribe func()) {
	return a.monitor.Subscribe(l)
}

// OnConnectivityRestored registers a handler for the restoration topic.
func (a *App) OnConnectivityRestored(h event.Handler) (unsubscribe func()) {
	return a.bus.Subscribe(event.TopicConnectivityRestored, h)
}

// Bus exposes the invalidation bus for custom topics.
func (a *App) Bus() event.Bus {
	return a.bus
}

// Thresholds returns the staleness thresholds in effect.
func (a *App) Thresholds() cache.Thresholds {
	return cache.Thresholds{MaxAge: a.cfg.Cache.MaxAge.Duration()}
}

// Get returns a cached entry and whether it was found.
func (a *App) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	return a.store.Get(ctx, key)
}

// Set stores a value with the given provenance.
func (a *App) Set(ctx context.Context, key string, value []byte, status cache.Status) error {
	return a.store.Set(ctx, key, value, status)
}

// Invalidate drops a single entry.
func (a *App) Invalidate(ctx context.Context, key string) error {
	return a.store.Invalidate(ctx, key)
}

// InvalidatePrefix drops every entry whose key starts with prefix.
func (a *App) InvalidatePrefix(ctx context.Context, prefix string) error {
	return a.store.InvalidateByPrefix(ctx, prefix)
}

// ClearAll drops every cached entry. The durable mirror is purged at most
// once per mirror lifetime; in-memory state is always cleared.
func (a *App) ClearAll(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// NewRetrySession creates a retry session bound to the shared monitor. The
// configured retry budget applies unless opts overrides it.
func (a *App) NewRetrySession(action retry.Action, opts retry.Options) (*infraretry.Session, error) {
	if action == nil {
		return nil, errors.New("action is required")
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = a.cfg.Retry.MaxRetries
	}
	var sessionOpts []infraretry.SessionOption
	if a.metrics != nil {
		sessionOpts = append(sessionOpts, infraretry.WithMetrics(a.metrics))
	}
	return infraretry.NewSession(a.monitor, action, opts, sessionOpts...)
}

// EnableRefresh installs a background refresher that keeps tracked keys
// warm using the given fetcher. Call before Start.
func (a *App) EnableRefresh(fetcher refresh.Fetcher) *refresh.Refresher {
	if a.refresher != nil {
		return a.refresher
	}
	a.refresher = refresh.New(a.store, a.monitor, a.bus, fetcher, a.Thresholds(), refresh.Config{
		Interval:          a.cfg.Refresh.Interval.Duration(),
		MaxAttempts:       a.cfg.Refresh.MaxAttempts,
		InitialDelay:      a.cfg.Refresh.InitialDelay.Duration(),
		BackoffMultiplier: a.cfg.Refresh.BackoffMultiplier,
	})
	return a.refresher
}

// Close stops background work and releases the durable mirror. It is safe
// to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.refresher != nil {
			a.refresher.Stop()
		}
		a.monitor.AfterTransition(nil)
		if a.mirror != nil {
			a.closeErr = a.mirror.Close()
		}
	})
	return a.closeErr
}
