// Package querykit adds query optimization, result caching, batched reads,
// aggregation, and pagination on top of any docstore.Store implementation.
package querykit

import (
	"context"
	"sync"
	"time"

	"github.com/autom8ter/machine/v4"
	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/errors"
)

const (
	// MaxLimit is the most documents a single query may return
	MaxLimit = 1000
	// DefaultLimit is the limit applied to queries that don't specify one
	DefaultLimit = 100
	// DefaultCacheSize is the max entry count of each cache
	DefaultCacheSize = 500
	// DefaultQueryTTL is the default ttl for cached query results
	DefaultQueryTTL = 1 * time.Minute
	// DefaultAggregateTTL is the default ttl for cached aggregate values
	DefaultAggregateTTL = 5 * time.Minute
	// DefaultTimeout is the default per-query timeout
	DefaultTimeout = 10 * time.Second
	// DefaultCleanupInterval is how often expired cache entries are swept
	DefaultCleanupInterval = 1 * time.Minute
)

// Optimizer executes queries against a docstore.Store with bounded result
// caching, cursor pagination, batched reads, and aggregations.
type Optimizer struct {
	store           docstore.Store
	queryCache      Cache[*Result]
	aggCache        Cache[float64]
	logger          Logger
	machine         machine.Machine
	cancel          context.CancelFunc
	cacheSize       int
	defaultLimit    int
	queryTTL        time.Duration
	aggTTL          time.Duration
	timeout         time.Duration
	cleanupInterval time.Duration
	logLevel        string
}

// New returns an Optimizer over the given store
func New(store docstore.Store, opts ...Opt) (*Optimizer, error) {
	if store == nil {
		return nil, errors.New(errors.Validation, "a store is required")
	}
	o := &Optimizer{
		store:           store,
		cacheSize:       DefaultCacheSize,
		defaultLimit:    DefaultLimit,
		queryTTL:        DefaultQueryTTL,
		aggTTL:          DefaultAggregateTTL,
		timeout:         DefaultTimeout,
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		lvl := o.logLevel
		if lvl == "" {
			lvl = "error"
		}
		logger, err := NewLogger(lvl, nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to create logger")
		}
		o.logger = logger
	}
	queryCache := newLRUCache[*Result](o.cacheSize)
	aggCache := newLRUCache[float64](o.cacheSize)
	if o.cleanupInterval <= 0 {
		// without a sweeper, writes occasionally sweep expired entries
		queryCache.sampleRate = 0.01
		aggCache.sampleRate = 0.01
	}
	o.queryCache = queryCache
	o.aggCache = aggCache
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.machine = machine.New()
	if o.cleanupInterval > 0 {
		o.machine.Go(ctx, func(ctx context.Context) error {
			ticker := time.NewTicker(o.cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					removed := o.CleanupExpired()
					if removed > 0 {
						o.logger.Debug(ctx, "swept expired cache entries", map[string]interface{}{
							"removed": removed,
						})
					}
				}
			}
		})
	}
	return o, nil
}

// Close stops background workers and waits for them to exit. The underlying
// store is not closed.
func (o *Optimizer) Close(ctx context.Context) error {
	o.cancel()
	if err := o.machine.Wait(); err != nil {
		o.logger.Error(ctx, "error stopping background workers", err, map[string]interface{}{})
		return errors.Wrap(err, errors.Internal, "failed to stop background workers")
	}
	return nil
}

// Store returns the underlying store
func (o *Optimizer) Store() docstore.Store {
	return o.store
}

// CacheStats returns statistics for the query result cache
func (o *Optimizer) CacheStats() CacheStats {
	return o.queryCache.Stats()
}

// AggregateCacheStats returns statistics for the aggregate cache
func (o *Optimizer) AggregateCacheStats() CacheStats {
	return o.aggCache.Stats()
}

// InvalidateCollection removes all cached queries and aggregates derived from
// the given collection and returns the number of entries removed. Call it
// after writing to a collection to keep reads fresh.
func (o *Optimizer) InvalidateCollection(collection string) int {
	return o.queryCache.InvalidateCollection(collection) + o.aggCache.InvalidateCollection(collection)
}

// ClearCache drops every cached query and aggregate
func (o *Optimizer) ClearCache() {
	o.queryCache.Clear()
	o.aggCache.Clear()
}

// CleanupExpired removes expired entries from both caches and returns the
// number removed
func (o *Optimizer) CleanupExpired() int {
	return o.queryCache.CleanupExpired() + o.aggCache.CleanupExpired()
}

var (
	defaultMu        sync.RWMutex
	defaultOptimizer *Optimizer
)

// Init creates the process-wide default Optimizer if one does not exist
func Init(store docstore.Store, opts ...Opt) (*Optimizer, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultOptimizer != nil {
		return defaultOptimizer, nil
	}
	o, err := New(store, opts...)
	if err != nil {
		return nil, err
	}
	defaultOptimizer = o
	return o, nil
}

// Default returns the process-wide default Optimizer (nil before Init)
func Default() *Optimizer {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultOptimizer
}

// SetDefault replaces the process-wide default Optimizer
func SetDefault(o *Optimizer) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultOptimizer = o
}
