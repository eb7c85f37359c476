package querykit

import (
	"strconv"
	"strings"

	"github.com/autom8ter/querykit/util"
	"github.com/cespare/xxhash/v2"
)

// Cache keys are the collection name, a colon, then a fixed size digest of
// the query descriptor. The prefix lets callers reason about keys per
// collection without decoding the digest.

// HashQuery deterministically derives the cache key for a query. Identical
// descriptors (collection, ordered filters and the result affecting options)
// produce the same key; any relevant difference changes it.
func HashQuery(collection string, where []Where, opts Options) string {
	h := xxhash.New()
	writeSegment(h, "query")
	for _, w := range where {
		writeSegment(h, w.Field)
		writeSegment(h, string(w.Op))
		writeSegment(h, util.JSONString(w.Value))
	}
	writeSegment(h, strconv.Itoa(opts.Limit))
	writeSegment(h, strings.Join(opts.SelectFields, ","))
	writeSegment(h, opts.Cursor)
	writeSegment(h, string(opts.CursorDirection))
	return collection + ":" + strconv.FormatUint(h.Sum64(), 16)
}

// HashAggregate derives the cache key for an aggregation. Aggregate keys are
// additionally derived from the function and field.
func HashAggregate(collection string, fn AggregateFunction, field string, where []Where) string {
	h := xxhash.New()
	writeSegment(h, "aggregate")
	writeSegment(h, string(fn))
	writeSegment(h, field)
	for _, w := range where {
		writeSegment(h, w.Field)
		writeSegment(h, string(w.Op))
		writeSegment(h, util.JSONString(w.Value))
	}
	return collection + ":" + strconv.FormatUint(h.Sum64(), 16)
}

func writeSegment(h *xxhash.Digest, segment string) {
	h.WriteString(segment)
	h.WriteString("::")
}
