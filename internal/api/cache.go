package api

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/townscope/townscope/internal/logging"
	"github.com/townscope/townscope/pkg/scoring"
)

// ResultCache holds complete rankings keyed by profile hash, config
// version, and filter. Purge drops everything after a catalog change.
type ResultCache interface {
	Get(key string) ([]scoring.MatchResult, bool)
	Put(key string, results []scoring.MatchResult)
	Purge()
	// Name labels cache metrics.
	Name() string
}

// LRUResultCache is a thread-safe in-memory LRU cache of rankings.
type LRUResultCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string][]scoring.MatchResult
	order   []string // oldest first
}

// NewLRUResultCache creates a cache with the given maximum number of entries.
// If maxSize <= 0, it defaults to 128.
func NewLRUResultCache(maxSize int) *LRUResultCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &LRUResultCache{
		maxSize: maxSize,
		entries: make(map[string][]scoring.MatchResult),
	}
}

func (c *LRUResultCache) Name() string { return "lru" }

// Get retrieves a ranking from the cache.
func (c *LRUResultCache) Get(key string) ([]scoring.MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	results, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	// Move to end (most recently used)
	c.moveToEnd(key)
	return results, true
}

// Put adds a ranking to the cache, evicting the oldest if full.
func (c *LRUResultCache) Put(key string, results []scoring.MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		c.entries[key] = results
		c.moveToEnd(key)
		return
	}

	// Evict oldest if at capacity
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = results
	c.order = append(c.order, key)
}

// Purge empties the cache.
func (c *LRUResultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]scoring.MatchResult)
	c.order = nil
}

// Len returns the number of cached rankings.
func (c *LRUResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUResultCache) moveToEnd(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

const resultKeyPrefix = "rank:"

// BadgerResultCache persists rankings in Badger so they survive restarts.
// Entries expire after ttl.
type BadgerResultCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerResultCache wraps an open Badger DB. The caller owns db.
func NewBadgerResultCache(db *badger.DB, ttl time.Duration) *BadgerResultCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &BadgerResultCache{db: db, ttl: ttl}
}

// OpenBadger opens a Badger DB at dir, or an in-memory one if dir is empty.
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

func (c *BadgerResultCache) Name() string { return "badger" }

func (c *BadgerResultCache) Get(key string) ([]scoring.MatchResult, bool) {
	var results []scoring.MatchResult
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(resultKeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &results)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			logging.Warn().Err(err).Str("key", key).Msg("result cache read failed")
		}
		return nil, false
	}
	return results, true
}

func (c *BadgerResultCache) Put(key string, results []scoring.MatchResult) {
	data, err := json.Marshal(results)
	if err != nil {
		logging.Warn().Err(err).Msg("result cache encode failed")
		return
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(resultKeyPrefix+key), data).WithTTL(c.ttl))
	})
	if err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("result cache write failed")
	}
}

func (c *BadgerResultCache) Purge() {
	if err := c.db.DropPrefix([]byte(resultKeyPrefix)); err != nil {
		logging.Warn().Err(err).Msg("result cache purge failed")
	}
}

// noCache disables result caching.
type noCache struct{}

func (noCache) Get(string) ([]scoring.MatchResult, bool) { return nil, false }
func (noCache) Put(string, []scoring.MatchResult)        {}
func (noCache) Purge()                                   {}
func (noCache) Name() string                             { return "none" }

// NoCache returns a ResultCache that stores nothing.
func NoCache() ResultCache { return noCache{} }
