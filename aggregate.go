package querykit

import (
	"context"
	"time"

	"github.com/autom8ter/querykit/errors"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// AggregateFunction is a supported aggregate function
type AggregateFunction string

const (
	// AggregateCount counts matching documents
	AggregateCount AggregateFunction = "count"
	// AggregateSum sums a numeric field across matching documents
	AggregateSum AggregateFunction = "sum"
	// AggregateAvg averages a numeric field across matching documents
	AggregateAvg AggregateFunction = "avg"
)

// AggregateResult is the outcome of an aggregation
type AggregateResult struct {
	// Value is the computed aggregate
	Value float64 `json:"value"`
	// FromCache is true when the value was served from the aggregate cache
	FromCache bool `json:"from_cache"`
}

// Aggregate computes count/sum/avg over a filtered query. Count uses the
// store's native counting. Sum and avg fetch the field and reduce over its
// numeric values; avg of zero matching rows is 0. Values are cached under
// their own ttl (default 5 minutes); a cacheTTL <= 0 disables caching, nil
// selects the default.
func (o *Optimizer) Aggregate(ctx context.Context, collection string, fn AggregateFunction, field string, where []Where, cacheTTL *time.Duration) (*AggregateResult, error) {
	if collection == "" {
		return nil, errors.New(errors.Validation, "a collection is required")
	}
	switch fn {
	case AggregateCount:
	case AggregateSum, AggregateAvg:
		if field == "" {
			return nil, errors.New(errors.Validation, "aggregate function '%s' requires a field", fn)
		}
	default:
		return nil, errors.New(errors.Validation, "unknown aggregate function: '%s'", fn)
	}
	ttl := o.aggTTL
	if cacheTTL != nil {
		ttl = *cacheTTL
	}
	key := HashAggregate(collection, fn, field, where)
	if ttl > 0 {
		if value, ok := o.aggCache.Get(key); ok {
			o.logger.Debug(ctx, "aggregate cache hit", map[string]interface{}{
				"collection": collection,
				"function":   string(fn),
				"key":        key,
			})
			return &AggregateResult{Value: value, FromCache: true}, nil
		}
	}
	q := o.store.Query(collection)
	for _, w := range where {
		if w.Field == "" || w.Value == nil {
			continue
		}
		q = q.Where(w.Field, string(w.Op), w.Value)
	}
	var value float64
	switch fn {
	case AggregateCount:
		count, err := q.Count(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "aggregate count failed")
		}
		value = float64(count)
	default:
		docs, err := q.Select(field).Documents(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "aggregate fetch failed")
		}
		var values []float64
		for _, d := range docs {
			if d == nil || !d.Exists() {
				continue
			}
			if r := gjson.GetBytes(d.Bytes(), field); r.Type == gjson.Number {
				values = append(values, r.Float())
			}
		}
		sum := lo.SumBy(values, func(v float64) float64 {
			return v
		})
		if fn == AggregateAvg {
			if len(values) > 0 {
				value = sum / float64(len(values))
			}
		} else {
			value = sum
		}
	}
	if ttl > 0 {
		o.aggCache.Set(key, collection, value, ttl)
	}
	return &AggregateResult{Value: value}, nil
}
