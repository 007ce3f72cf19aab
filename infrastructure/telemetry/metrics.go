// Package telemetry provides observability infrastructure including
// OpenTelemetry metrics for the freshness subsystem.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dealgrid/freshness/domain/cache"
	"github.com/dealgrid/freshness/domain/retry"
)

// MetricsProvider provides access to metrics instruments. It implements the
// cache and retry recorder interfaces so the cache and sessions stay free of
// OpenTelemetry plumbing.
type MetricsProvider struct {
	meter metric.Meter

	// Counters
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	invalidations metric.Int64Counter
	retryAttempts metric.Int64Counter
	exhaustions   metric.Int64Counter
	transitions   metric.Int64Counter

	initOnce sync.Once
	initErr  error
}

// MetricsConfig configures the metrics provider.
type MetricsConfig struct {
	// MeterName is the name of the meter.
	MeterName string
	// MeterVersion is the version of the meter.
	MeterVersion string
}

// DefaultMetricsConfig returns a default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		MeterName:    "github.com/dealgrid/freshness",
		MeterVersion: "1.0.0",
	}
}

// NewMetricsProvider creates a new metrics provider.
func NewMetricsProvider(config MetricsConfig) *MetricsProvider {
	if config.MeterName == "" {
		config = DefaultMetricsConfig()
	}

	provider := otel.GetMeterProvider()
	meter := provider.Meter(
		config.MeterName,
		metric.WithInstrumentationVersion(config.MeterVersion),
	)

	mp := &MetricsProvider{
		meter: meter,
	}

	mp.initOnce.Do(func() {
		mp.initErr = mp.initInstruments()
	})

	return mp
}

// initInstruments initializes all metric instruments.
func (mp *MetricsProvider) initInstruments() error {
	var err error

	mp.cacheHits, err = mp.meter.Int64Counter(
		"freshness.cache.hits",
		metric.WithDescription("Number of query cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	mp.cacheMisses, err = mp.meter.Int64Counter(
		"freshness.cache.misses",
		metric.WithDescription("Number of query cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return err
	}

	mp.invalidations, err = mp.meter.Int64Counter(
		"freshness.cache.invalidations",
		metric.WithDescription("Number of entries invalidated"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	mp.retryAttempts, err = mp.meter.Int64Counter(
		"freshness.retry.attempts",
		metric.WithDescription("Number of retry session attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return err
	}

	mp.exhaustions, err = mp.meter.Int64Counter(
		"freshness.retry.exhaustions",
		metric.WithDescription("Number of retry sessions that spent their budget"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return err
	}

	mp.transitions, err = mp.meter.Int64Counter(
		"freshness.connectivity.transitions",
		metric.WithDescription("Number of reachability transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Error returns any instrument initialization error.
func (mp *MetricsProvider) Error() error {
	return mp.initErr
}

// RecordHit records a query cache hit.
func (mp *MetricsProvider) RecordHit(ctx context.Context, key string) {
	if mp.cacheHits == nil {
		return
	}
	mp.cacheHits.Add(ctx, 1)
}

// RecordMiss records a query cache miss.
func (mp *MetricsProvider) RecordMiss(ctx context.Context, key string) {
	if mp.cacheMisses == nil {
		return
	}
	mp.cacheMisses.Add(ctx, 1)
}

// RecordInvalidation records dropped entries.
func (mp *MetricsProvider) RecordInvalidation(ctx context.Context, keys int) {
	if mp.invalidations == nil {
		return
	}
	mp.invalidations.Add(ctx, int64(keys))
}

// RecordAttempt records a retry session attempt and its outcome.
func (mp *MetricsProvider) RecordAttempt(ctx context.Context, success bool) {
	if mp.retryAttempts == nil {
		return
	}
	mp.retryAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordExhaustion records a session spending its retry budget.
func (mp *MetricsProvider) RecordExhaustion(ctx context.Context) {
	if mp.exhaustions == nil {
		return
	}
	mp.exhaustions.Add(ctx, 1)
}

// RecordTransition records a reachability transition.
func (mp *MetricsProvider) RecordTransition(ctx context.Context, online bool) {
	if mp.transitions == nil {
		return
	}
	mp.transitions.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("online", online)))
}

// Ensure MetricsProvider implements the domain recorder interfaces
var (
	_ cache.Metrics = (*MetricsProvider)(nil)
	_ retry.Metrics = (*MetricsProvider)(nil)
)
