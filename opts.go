package querykit

import "time"

// Opt is an option for configuring an Optimizer
type Opt func(o *Optimizer)

// WithLogger overrides the default logger
func WithLogger(logger Logger) Opt {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// WithLogLevel sets the level of the default logger (error, warn, info, debug).
// It has no effect when a custom logger is supplied.
func WithLogLevel(level string) Opt {
	return func(o *Optimizer) {
		o.logLevel = level
	}
}

// WithCacheSize sets the max entry count of the query and aggregate caches
func WithCacheSize(size int) Opt {
	return func(o *Optimizer) {
		if size > 0 {
			o.cacheSize = size
		}
	}
}

// WithDefaultLimit sets the limit applied to queries that don't specify one
func WithDefaultLimit(limit int) Opt {
	return func(o *Optimizer) {
		if limit > 0 {
			o.defaultLimit = limit
		}
	}
}

// WithQueryTTL sets the default ttl for cached query results
func WithQueryTTL(ttl time.Duration) Opt {
	return func(o *Optimizer) {
		if ttl > 0 {
			o.queryTTL = ttl
		}
	}
}

// WithAggregateTTL sets the default ttl for cached aggregate values
func WithAggregateTTL(ttl time.Duration) Opt {
	return func(o *Optimizer) {
		if ttl > 0 {
			o.aggTTL = ttl
		}
	}
}

// WithTimeout sets the default per-query timeout
func WithTimeout(timeout time.Duration) Opt {
	return func(o *Optimizer) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithCleanupInterval sets how often expired cache entries are swept in the
// background. An interval <= 0 disables the sweeper; expired entries are then
// removed on access and by sampled sweeps on writes.
func WithCleanupInterval(interval time.Duration) Opt {
	return func(o *Optimizer) {
		o.cleanupInterval = interval
	}
}
