package linkeddata

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// DedupeCache records "this URI was already dereferenced recently" so a hot
// pattern's repeated first-seen notifications (spec.md §6: every new
// partial solution subscribing to an already-known pattern does not
// re-trigger first-seen, but a pattern can still be re-interned after a
// reap) don't refetch the same URI on every admission. Implementations
// decide their own recency window.
type DedupeCache interface {
	// Seen reports whether uri was recorded within the cache's window.
	Seen(uri string) bool
	// Record marks uri as freshly fetched.
	Record(uri string) error
}

// BadgerCache is a DedupeCache backed by BadgerDB, grounded on
// internal/storage/badger.go's wrapper: one on-disk (or in-memory, for
// tests) database, native key TTLs doing the expiry work instead of a
// second, hand-rolled timestamp comparison.
type BadgerCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerCache opens (or creates) a Badger database at path. ttl bounds
// how long a URI is considered "recently fetched."
func NewBadgerCache(path string, ttl time.Duration) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open linked data cache: %w", err)
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

// NewInMemoryBadgerCache opens a Badger database that never touches disk,
// for tests and for short-lived demo runs that don't want a cache file left
// behind.
func NewInMemoryBadgerCache(ttl time.Duration) (*BadgerCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory linked data cache: %w", err)
	}
	return &BadgerCache{db: db, ttl: ttl}, nil
}

// Close releases the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// Seen reports whether uri has an unexpired entry.
func (c *BadgerCache) Seen(uri string) bool {
	seen := false
	_ = c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(uri))
		seen = err == nil
		return nil
	})
	return seen
}

// Record stores uri with the cache's configured TTL.
func (c *BadgerCache) Record(uri string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(uri), []byte{1})
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}
