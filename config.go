package querykit

import (
	"encoding/json"
	"time"

	"github.com/autom8ter/querykit/errors"
	"github.com/autom8ter/querykit/util"
)

// Config configures an Optimizer. Zero values fall back to defaults.
type Config struct {
	// CacheSize is the max entry count of the query and aggregate caches
	CacheSize int `json:"cache_size" validate:"gte=0"`
	// DefaultLimit is the limit applied to queries that don't specify one
	DefaultLimit int `json:"default_limit" validate:"gte=0,lte=1000"`
	// QueryTTL is the default ttl for cached query results
	QueryTTL time.Duration `json:"query_ttl"`
	// AggregateTTL is the default ttl for cached aggregate values
	AggregateTTL time.Duration `json:"aggregate_ttl"`
	// Timeout is the default per-query timeout
	Timeout time.Duration `json:"timeout"`
	// CleanupInterval is how often expired cache entries are swept
	CleanupInterval time.Duration `json:"cleanup_interval"`
	// LogLevel is the level of the default logger
	LogLevel string `json:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// LoadConfig parses a yaml or json configuration
func LoadConfig(content []byte) (Config, error) {
	jsonContent, err := util.YAMLToJSON(content)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.Validation, "failed to parse config")
	}
	var values map[string]interface{}
	if err := json.Unmarshal(jsonContent, &values); err != nil {
		return Config{}, errors.Wrap(err, errors.Validation, "failed to parse config")
	}
	var cfg Config
	if err := util.Decode(values, &cfg); err != nil {
		return Config{}, err
	}
	if err := util.ValidateStruct(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Opts converts the config into options, skipping zero values
func (c Config) Opts() []Opt {
	var opts []Opt
	if c.CacheSize > 0 {
		opts = append(opts, WithCacheSize(c.CacheSize))
	}
	if c.DefaultLimit > 0 {
		opts = append(opts, WithDefaultLimit(c.DefaultLimit))
	}
	if c.QueryTTL > 0 {
		opts = append(opts, WithQueryTTL(c.QueryTTL))
	}
	if c.AggregateTTL > 0 {
		opts = append(opts, WithAggregateTTL(c.AggregateTTL))
	}
	if c.Timeout > 0 {
		opts = append(opts, WithTimeout(c.Timeout))
	}
	if c.CleanupInterval > 0 {
		opts = append(opts, WithCleanupInterval(c.CleanupInterval))
	}
	if c.LogLevel != "" {
		opts = append(opts, WithLogLevel(c.LogLevel))
	}
	return opts
}
