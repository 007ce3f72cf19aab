package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMetrics sets up a test meter provider and returns it along with a reader.
func setupTestMetrics(t *testing.T) (*metric.ManualReader, *MetricsProvider) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	mp := NewMetricsProvider(DefaultMetricsConfig())
	if mp.Error() != nil {
		t.Fatalf("failed to create metrics provider: %v", mp.Error())
	}

	return reader, mp
}

func TestNewMetricsProvider(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	if mp == nil {
		t.Fatal("NewMetricsProvider returned nil")
	}
	if mp.Error() != nil {
		t.Errorf("unexpected error: %v", mp.Error())
	}
}

// collect gathers all recorded metrics into a map by name.
func collect(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestMetricsProvider_CacheRecorders(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.RecordHit(ctx, "deals/1")
	mp.RecordHit(ctx, "deals/2")
	mp.RecordMiss(ctx, "profile/1")
	mp.RecordInvalidation(ctx, 3)

	metrics := collect(t, reader)

	if _, ok := metrics["freshness.cache.hits"]; !ok {
		t.Error("expected freshness.cache.hits to be recorded")
	}
	if _, ok := metrics["freshness.cache.misses"]; !ok {
		t.Error("expected freshness.cache.misses to be recorded")
	}
	if _, ok := metrics["freshness.cache.invalidations"]; !ok {
		t.Error("expected freshness.cache.invalidations to be recorded")
	}
}

func TestMetricsProvider_RetryRecorders(t *testing.T) {
	reader, mp := setupTestMetrics(t)
	defer reader.Shutdown(context.Background())

	ctx := context.Background()
	mp.RecordAttempt(ctx, true)
	mp.RecordAttempt(ctx, false)
	mp.RecordExhaustion(ctx)
	mp.RecordTransition(ctx, false)

	metrics := collect(t, reader)

	if _, ok := metrics["freshness.retry.attempts"]; !ok {
		t.Error("expected freshness.retry.attempts to be recorded")
	}
	if _, ok := metrics["freshness.retry.exhaustions"]; !ok {
		t.Error("expected freshness.retry.exhaustions to be recorded")
	}
	if _, ok := metrics["freshness.connectivity.transitions"]; !ok {
		t.Error("expected freshness.connectivity.transitions to be recorded")
	}
}
