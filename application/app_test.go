package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dealgrid/freshness/application"
	"github.com/dealgrid/freshness/domain/cache"
	"github.com/dealgrid/freshness/domain/config"
	"github.com/dealgrid/freshness/domain/event"
	"github.com/dealgrid/freshness/domain/retry"
)

func newTestApp(t *testing.T, opts ...application.Option) *application.App {
	t.Helper()

	cfg := config.Default()
	cfg.Cache.MirrorInMemory = true

	app, err := application.New(cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("assembles with defaults", func(t *testing.T) {
		t.Parallel()

		app, err := application.New(config.Default())
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer app.Close()

		if !app.IsOnline() {
			t.Error("IsOnline() = false at assembly, want optimistic true")
		}
		if app.Thresholds().MaxAge != 15*time.Minute {
			t.Errorf("Thresholds().MaxAge = %v, want 15m", app.Thresholds().MaxAge)
		}
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		t.Parallel()

		cfg := config.Default()
		cfg.Retry.MaxRetries = -1
		if _, err := application.New(cfg); !errors.Is(err, config.ErrValidationFailed) {
			t.Errorf("New() error = %v, want ErrValidationFailed", err)
		}
	})
}

func TestApp_CacheFacade(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()

	if err := app.Set(ctx, "deals/1", []byte("v1"), cache.FreshStatus()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := app.Set(ctx, "deals/2", []byte("v2"), cache.FreshStatus()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := app.Set(ctx, "profile/1", []byte("p1"), cache.FreshStatus()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, found, err := app.Get(ctx, "deals/1")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if string(entry.Value) != "v1" {
		t.Errorf("Value = %s, want v1", entry.Value)
	}

	if err := app.InvalidatePrefix(ctx, "deals/"); err != nil {
		t.Fatalf("InvalidatePrefix() error = %v", err)
	}
	if _, found, _ := app.Get(ctx, "deals/2"); found {
		t.Error("deals/2 should be invalidated")
	}
	if _, found, _ := app.Get(ctx, "profile/1"); !found {
		t.Error("profile/1 should survive a deals/ invalidation")
	}

	if err := app.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if _, found, _ := app.Get(ctx, "profile/1"); found {
		t.Error("profile/1 should be gone after ClearAll")
	}
}

func TestApp_ConnectivityFanOut(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)

	var order []string
	unsub1 := app.SubscribeConnectivity(func(online bool) {
		if online {
			order = append(order, "listener-1")
		}
	})
	defer unsub1()
	unsub2 := app.SubscribeConnectivity(func(online bool) {
		if online {
			order = append(order, "listener-2")
		}
	})
	defer unsub2()

	unsub3 := app.OnConnectivityRestored(func(context.Context, event.Event) {
		order = append(order, "restored-1")
	})
	defer unsub3()
	unsub4 := app.OnConnectivityRestored(func(context.Context, event.Event) {
		order = append(order, "restored-2")
	})
	defer unsub4()

	// The duplicate report is coalesced and going offline publishes no
	// restoration event.
	app.ReportConnectivity(false)
	app.ReportConnectivity(false)
	if len(order) != 0 {
		t.Fatalf("unexpected notifications while going offline: %v", order)
	}

	// One restoration: monitor listeners first in subscription order, then
	// the derived bus event in subscription order, each exactly once.
	app.ReportConnectivity(true)
	want := []string{"listener-1", "listener-2", "restored-1", "restored-2"}
	if len(order) != len(want) {
		t.Fatalf("notifications = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("notifications = %v, want %v", order, want)
		}
	}

	// A second online report without a prior offline invokes nothing.
	app.ReportConnectivity(true)
	if len(order) != len(want) {
		t.Errorf("duplicate online report produced notifications: %v", order[len(want):])
	}
}

func TestApp_NewRetrySession(t *testing.T) {
	t.Parallel()

	t.Run("uses the configured budget", func(t *testing.T) {
		t.Parallel()

		cfg := config.Default()
		cfg.Retry.MaxRetries = 2
		app, err := application.New(cfg)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		defer app.Close()

		s, err := app.NewRetrySession(func(context.Context) error { return errors.New("boom") }, retry.Options{})
		if err != nil {
			t.Fatalf("NewRetrySession() error = %v", err)
		}
		defer s.Close()

		if s.Snapshot().MaxRetries != 2 {
			t.Errorf("MaxRetries = %d, want 2 from configuration", s.Snapshot().MaxRetries)
		}
	})

	t.Run("session follows the shared monitor", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		s, err := app.NewRetrySession(func(context.Context) error { return nil }, retry.Options{})
		if err != nil {
			t.Fatalf("NewRetrySession() error = %v", err)
		}
		defer s.Close()

		app.ReportConnectivity(false)
		if err := s.Trigger(context.Background()); !errors.Is(err, retry.ErrOffline) {
			t.Errorf("Trigger() error = %v, want ErrOffline via shared monitor", err)
		}
	})

	t.Run("nil action is rejected", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t)
		if _, err := app.NewRetrySession(nil, retry.Options{}); err == nil {
			t.Error("NewRetrySession(nil) should fail")
		}
	})
}

func TestApp_MirrorPersistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Cache.MirrorDir = dir

	ctx := context.Background()

	app, err := application.New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := app.Set(ctx, "deals/1", []byte("survives"), cache.FreshStatus()); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A second app over the same directory restores the entry with
	// served-from-cache provenance.
	app2, err := application.New(cfg)
	if err != nil {
		t.Fatalf("New() #2 error = %v", err)
	}
	defer app2.Close()

	entry, found, err := app2.Get(ctx, "deals/1")
	if err != nil || !found {
		t.Fatalf("Get() after restart = found %v, err %v", found, err)
	}
	if string(entry.Value) != "survives" {
		t.Errorf("Value = %s, want survives", entry.Value)
	}
	if !entry.Status.Cached {
		t.Error("restored entry should carry cached provenance")
	}
}

func TestApp_Close(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	if err := app.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := app.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestApp_EnableRefresh(t *testing.T) {
	t.Parallel()

	app := newTestApp(t)
	ctx := context.Background()

	fetched := make(chan string, 1)
	r := app.EnableRefresh(func(_ context.Context, key string) ([]byte, error) {
		select {
		case fetched <- key:
		default:
		}
		return []byte("fresh"), nil
	})
	r.Track("deals/1")
	r.Sweep(ctx)

	select {
	case key := <-fetched:
		if key != "deals/1" {
			t.Errorf("fetched %q, want deals/1", key)
		}
	default:
		t.Fatal("sweep should fetch the tracked key")
	}

	entry, found, err := app.Get(ctx, "deals/1")
	if err != nil || !found {
		t.Fatalf("Get() = found %v, err %v", found, err)
	}
	if string(entry.Value) != "fresh" {
		t.Errorf("Value = %s, want fresh", entry.Value)
	}
}
