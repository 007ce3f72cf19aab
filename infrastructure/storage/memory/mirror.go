// Package memory provides an in-memory implementation of the durable cache
// mirror, used in tests and as the default when no on-device store is
// configured.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/dealgrid/freshness/domain/cache"
)

// Mirror is an in-memory implementation of cache.Mirror.
type Mirror struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMirror creates a new in-memory mirror.
func NewMirror() *Mirror {
	return &Mirror{
		entries: make(map[string][]byte),
	}
}

// Get retrieves a raw value by key.
func (m *Mirror) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}

	// Return a copy to prevent mutation
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores a raw value under key.
func (m *Mirror) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if key == "" {
		return cache.ErrInvalidKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy to prevent external mutation
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	m.entries[key] = valueCopy
	return nil
}

// Delete removes the value under key.
func (m *Mirror) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// DeletePrefix removes every value whose key starts with prefix.
func (m *Mirror) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Clear removes all values.
func (m *Mirror) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string][]byte)
	return nil
}

// Close releases resources. The in-memory mirror holds none.
func (m *Mirror) Close() error {
	return nil
}

// Size returns the current number of values.
func (m *Mirror) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Ensure Mirror implements cache.Mirror
var _ cache.Mirror = (*Mirror)(nil)
