package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dealgrid/freshness/infrastructure/logging"
)

// CheckFunc probes the network once. A nil error means reachable.
type CheckFunc func(ctx context.Context) error

// Watcher periodically samples reachability through a CheckFunc and feeds the
// result into a Monitor. It is the runtime-signal adapter: where a browser
// runtime raises online/offline events, a Go process polls.
type Watcher struct {
	monitor  *Monitor
	check    CheckFunc
	interval time.Duration

	stop     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithInterval sets the probe interval.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = d
	}
}

// WithCheck sets the probe function.
func WithCheck(check CheckFunc) WatcherOption {
	return func(w *Watcher) {
		w.check = check
	}
}

// NewWatcher creates a watcher feeding the given monitor. By default it
// probes nothing; configure a check with WithCheck or HTTPCheck.
func NewWatcher(monitor *Monitor, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		monitor:  monitor,
		interval: 30 * time.Second,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HTTPCheck returns a CheckFunc that issues a HEAD request against url.
func HTTPCheck(url string, timeout time.Duration) CheckFunc {
	client := &http.Client{Timeout: timeout}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}
}

// Start begins probing until Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	if w.check == nil {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := w.check(ctx)
				online := err == nil
				if !online {
					logging.Debug().
						Add(logging.ErrorField(err)).
						Msg("connectivity probe failed")
				}
				w.monitor.Report(online)
			}
		}
	}()
}

// Stop halts probing and waits for the probe goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	w.wg.Wait()
}
