package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// L2 is the durable tier, backed by an embedded badger store. Entries
// survive process restarts; badger's native per-entry TTL implements the
// category expiry windows.
type L2 struct {
	db     *badger.DB
	logger *zap.Logger
}

// OpenL2 opens (or creates) the badger store at path. An empty path
// opens an in-memory store, used by tests.
func OpenL2(path string, logger *zap.Logger) (*L2, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	return &L2{db: db, logger: logger}, nil
}

// Close releases the store.
func (c *L2) Close() error {
	return c.db.Close()
}

// Get returns the payload for key, or a miss when absent or expired.
func (c *L2) Get(key string) ([]byte, bool) {
	var payload []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("cache store read failed", zap.Error(err))
		}
		return nil, false
	}
	return payload, true
}

// Set stores payload under key. A zero TTL stores without expiry.
func (c *L2) Set(key string, payload []byte, ttl time.Duration) {
	err := c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), payload)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		// A failed durable write degrades to L1-only caching; the caller
		// already has the computed value.
		c.logger.Warn("cache store write failed", zap.Error(err))
	}
}

// RunGC runs one round of badger value-log garbage collection. Callers
// schedule it; a no-rewrite result is not an error.
func (c *L2) RunGC() {
	if err := c.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		c.logger.Warn("cache store GC failed", zap.Error(err))
	}
}
