// Package cache provides the domain model for the query cache: entry
// provenance, staleness thresholds, and the interfaces backends implement.
package cache

import (
	"context"
	"time"
)

// Status records the provenance of a single fetched value: whether it was
// served from cache and when it was produced or cached. A Status is never
// mutated; a re-fetch supersedes it with a new one.
type Status struct {
	// Cached reports whether the value was served from cache rather than
	// fetched directly from the origin.
	Cached bool

	// CachedAt is when the value was produced or cached. The zero time
	// means the value was never classified and is treated as stale.
	CachedAt time.Time
}

// FreshStatus returns the status for a value obtained directly from the
// origin.
func FreshStatus() Status {
	return Status{Cached: false, CachedAt: time.Now()}
}

// CachedStatus returns the status for a value served from cache at the given
// time.
func CachedStatus(at time.Time) Status {
	return Status{Cached: true, CachedAt: at}
}

// Thresholds is the process-wide staleness configuration. The soft refresh
// boundary for cached values is implicitly MaxAge/2.
type Thresholds struct {
	// MaxAge is the absolute validity window for a fetched value.
	MaxAge time.Duration
}

// DefaultThresholds returns the default staleness configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{MaxAge: 15 * time.Minute}
}

// Entry is a read-only view of a cached value. Keys are opaque strings
// composed hierarchically (e.g. "deals/42/comments") so a whole resource
// family can be invalidated by prefix.
type Entry struct {
	Key    string
	Value  []byte
	Status Status
}

// Store is the query cache the rest of the application reads and writes
// through. Implementations follow last-write-wins for concurrent sets on the
// same key; consumers never mutate entries directly.
type Store interface {
	// Get retrieves an entry by key.
	// Returns the entry, whether it was found, and any error.
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Set stores a value under key with the given provenance status.
	Set(ctx context.Context, key string, value []byte, status Status) error

	// Invalidate removes the entry under key.
	Invalidate(ctx context.Context, key string) error

	// InvalidateByPrefix removes every entry whose key starts with prefix.
	InvalidateByPrefix(ctx context.Context, prefix string) error

	// Clear removes all entries and purges the durable mirror. Beyond the
	// first successful durable purge, repeated calls are safe no-ops.
	Clear(ctx context.Context) error
}

// Mirror is the durable on-device key-value store backing the query cache's
// best-effort persistence. Implementations may be BadgerDB, in-memory, or any
// other local backend.
type Mirror interface {
	// Get retrieves a raw value by key.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a raw value under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value under key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every value whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values.
	Clear(ctx context.Context) error

	// Close releases resources held by the mirror.
	Close() error
}

// Metrics is an optional recorder for cache outcomes. Implementations must
// never block and never propagate failures back into the cache.
type Metrics interface {
	RecordHit(ctx context.Context, key string)
	RecordMiss(ctx context.Context, key string)
	RecordInvalidation(ctx context.Context, keys int)
}
