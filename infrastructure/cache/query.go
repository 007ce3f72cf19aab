// Package cache implements the query cache: the in-memory response cache the
// application reads and writes through, with best-effort persistence to a
// durable mirror.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dealgrid/freshness/domain/cache"
	"github.com/dealgrid/freshness/infrastructure/logging"
)

// envelope is the JSON wrapper persisted to the mirror so an entry's
// provenance survives restarts.
type envelope struct {
	Value    []byte    `json:"value"`
	Cached   bool      `json:"cached"`
	CachedAt time.Time `json:"cached_at"`
}

// QueryCache is the process-wide key-value response cache. Keys are opaque
// hierarchical strings ("deals/42/comments"); concurrent sets on the same key
// are last-write-wins.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]cache.Entry

	mirror  cache.Mirror
	metrics cache.Metrics

	// purged guards the one-time durable purge performed by Clear.
	purged atomic.Bool
}

// QueryCacheOption configures the cache.
type QueryCacheOption func(*QueryCache)

// WithMirror attaches a durable mirror for best-effort persistence.
func WithMirror(m cache.Mirror) QueryCacheOption {
	return func(c *QueryCache) {
		c.mirror = m
	}
}

// WithMetrics attaches an outcome recorder.
func WithMetrics(m cache.Metrics) QueryCacheOption {
	return func(c *QueryCache) {
		c.metrics = m
	}
}

// NewQueryCache creates a new query cache.
func NewQueryCache(opts ...QueryCacheOption) *QueryCache {
	c := &QueryCache{
		entries: make(map[string]cache.Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves an entry by key. On an in-memory miss the mirror is
// consulted; a value restored from the mirror is served with cached
// provenance. Mirror corruption self-heals and reads as a miss.
func (c *QueryCache) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return cache.Entry{}, false, err
	}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.recordHit(ctx, key)
		return copyEntry(entry), true, nil
	}

	if c.mirror == nil {
		c.recordMiss(ctx, key)
		return cache.Entry{}, false, nil
	}

	raw, found, err := c.mirror.Get(ctx, key)
	if err != nil {
		c.selfHeal(ctx, key, err)
		c.recordMiss(ctx, key)
		return cache.Entry{}, false, nil
	}
	if !found {
		c.recordMiss(ctx, key)
		return cache.Entry{}, false, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.selfHeal(ctx, key, err)
		c.recordMiss(ctx, key)
		return cache.Entry{}, false, nil
	}

	// A value that outlived the process is by definition served from
	// cache, whatever its provenance was when written.
	entry = cache.Entry{
		Key:    key,
		Value:  env.Value,
		Status: cache.CachedStatus(env.CachedAt),
	}

	c.mu.Lock()
	if _, raced := c.entries[key]; !raced {
		c.entries[key] = entry
	}
	c.mu.Unlock()

	c.recordHit(ctx, key)
	return copyEntry(entry), true, nil
}

// Set stores a value under key with the given provenance status.
func (c *QueryCache) Set(ctx context.Context, key string, value []byte, status cache.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if key == "" {
		return cache.ErrInvalidKey
	}

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	entry := cache.Entry{Key: key, Value: valueCopy, Status: status}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if c.mirror != nil {
		raw, err := json.Marshal(envelope{
			Value:    valueCopy,
			Cached:   status.Cached,
			CachedAt: status.CachedAt,
		})
		if err == nil {
			err = c.mirror.Set(ctx, key, raw)
		}
		if err != nil {
			c.selfHeal(ctx, key, err)
		}
	}

	return nil
}

// Invalidate removes the entry under key.
func (c *QueryCache) Invalidate(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Delete(ctx, key); err != nil {
			c.selfHeal(ctx, key, err)
		}
	}

	if existed {
		c.recordInvalidation(ctx, 1)
	}
	return nil
}

// InvalidateByPrefix removes every entry whose key starts with prefix,
// dropping a whole logical resource family in one call.
func (c *QueryCache) InvalidateByPrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	var dropped int
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			dropped++
		}
	}
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.DeletePrefix(ctx, prefix); err != nil {
			c.selfHeal(ctx, prefix, err)
		}
	}

	logging.Debug().
		Add(logging.Prefix(prefix)).
		Msg("cache prefix invalidated")

	if dropped > 0 {
		c.recordInvalidation(ctx, dropped)
	}
	return nil
}

// Clear removes all entries. The durable mirror purge runs at most once per
// cache lifetime; repeated calls clear memory only and are otherwise no-ops.
func (c *QueryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.entries = make(map[string]cache.Entry)
	c.mu.Unlock()

	if c.mirror != nil && c.purged.CompareAndSwap(false, true) {
		if err := c.mirror.Clear(ctx); err != nil {
			logging.Error().
				Add(logging.ErrorField(err)).
				Msg("mirror purge failed")
		}
	}

	return nil
}

// Size returns the current number of in-memory entries.
func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// selfHeal recovers from mirror corruption: the mirror is purged and the
// cache continues as if the data were absent. Never surfaced to consumers.
func (c *QueryCache) selfHeal(ctx context.Context, key string, cause error) {
	logging.Warn().
		Add(logging.Key(key)).
		Add(logging.ErrorField(fmt.Errorf("%w: %v", cache.ErrCorrupt, cause))).
		Msg("mirror corrupt, purging")

	if c.mirror != nil {
		if err := c.mirror.Clear(ctx); err != nil {
			logging.Error().
				Add(logging.ErrorField(err)).
				Msg("mirror purge failed")
		}
	}
}

func (c *QueryCache) recordHit(ctx context.Context, key string) {
	if c.metrics != nil {
		c.metrics.RecordHit(ctx, key)
	}
}

func (c *QueryCache) recordMiss(ctx context.Context, key string) {
	if c.metrics != nil {
		c.metrics.RecordMiss(ctx, key)
	}
}

func (c *QueryCache) recordInvalidation(ctx context.Context, keys int) {
	if c.metrics != nil {
		c.metrics.RecordInvalidation(ctx, keys)
	}
}

// copyEntry returns a read-only view with its own value buffer.
func copyEntry(e cache.Entry) cache.Entry {
	value := make([]byte, len(e.Value))
	copy(value, e.Value)
	e.Value = value
	return e
}

// Ensure QueryCache implements cache.Store
var _ cache.Store = (*QueryCache)(nil)
