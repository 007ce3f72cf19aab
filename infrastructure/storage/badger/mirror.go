package badger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dealgrid/freshness/domain/cache"
)

// Mirror is a BadgerDB-backed implementation of cache.Mirror, the on-device
// durable store behind the query cache.
type Mirror struct {
	db        *badger.DB
	keyPrefix string
	gcStop    chan struct{}
	gcWg      sync.WaitGroup
	closeOnce sync.Once
}

// NewMirror creates a new BadgerDB mirror with the given configuration.
func NewMirror(cfg Config, opts ...Option) (*Mirror, error) {
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	m := &Mirror{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
		gcStop:    make(chan struct{}),
	}

	if cfg.GCInterval > 0 {
		m.startGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	return m, nil
}

// startGC starts the value log garbage collection goroutine.
func (m *Mirror) startGC(interval time.Duration, discardRatio float64) {
	m.gcWg.Add(1)
	go func() {
		defer m.gcWg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-m.gcStop:
				return
			case <-ticker.C:
				for {
					if err := m.db.RunValueLogGC(discardRatio); err != nil {
						break
					}
				}
			}
		}
	}()
}

// prefixKey adds the key prefix and mirror namespace.
func (m *Mirror) prefixKey(key string) []byte {
	return []byte(m.keyPrefix + "mirror:" + key)
}

// Get retrieves a raw value by key.
func (m *Mirror) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	prefixedKey := m.prefixKey(key)
	var value []byte

	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(prefixedKey)
		if err != nil {
			return err
		}

		value, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	return value, true, nil
}

// Set stores a raw value under key.
func (m *Mirror) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if key == "" {
		return cache.ErrInvalidKey
	}

	prefixedKey := m.prefixKey(key)

	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(prefixedKey, value)
	})
}

// Delete removes the value under key.
func (m *Mirror) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefixedKey := m.prefixKey(key)

	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(prefixedKey)
	})
}

// DeletePrefix removes every value whose key starts with prefix.
func (m *Mirror) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.db.DropPrefix(m.prefixKey(prefix))
}

// Clear removes all values under the mirror namespace.
func (m *Mirror) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.db.DropPrefix([]byte(m.keyPrefix + "mirror:"))
}

// Keys returns all mirror keys matching the given prefix.
func (m *Mirror) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPrefix := m.prefixKey(prefix)
	prefixLen := len(m.keyPrefix) + len("mirror:")

	var keys []string

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = fullPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()[prefixLen:]))
		}
		return nil
	})

	return keys, err
}

// Close stops GC and closes the database.
func (m *Mirror) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.gcStop)
		m.gcWg.Wait()
		err = m.db.Close()
	})
	return err
}

// DB returns the underlying BadgerDB database.
func (m *Mirror) DB() *badger.DB {
	return m.db
}

// Ensure Mirror implements cache.Mirror
var _ cache.Mirror = (*Mirror)(nil)
