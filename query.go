package querykit

import (
	"time"

	"github.com/autom8ter/querykit/errors"
	"github.com/autom8ter/querykit/util"
)

// WhereOp is a filter comparison operator
type WhereOp string

// Supported filter operators. The zero value is treated as WhereOpEq at
// execution time so a Where built from a plain value behaves as equality.
const (
	// WhereOpEq matches documents whose field value equals the filter value
	WhereOpEq WhereOp = "eq"
	// WhereOpNeq matches documents whose field value does not equal the filter value
	WhereOpNeq WhereOp = "neq"
	// WhereOpGt matches documents whose field value is greater than the filter value
	WhereOpGt WhereOp = "gt"
	// WhereOpGte matches documents whose field value is greater than or equal to the filter value
	WhereOpGte WhereOp = "gte"
	// WhereOpLt matches documents whose field value is less than the filter value
	WhereOpLt WhereOp = "lt"
	// WhereOpLte matches documents whose field value is less than or equal to the filter value
	WhereOpLte WhereOp = "lte"
	// WhereOpIn matches documents whose field value is an element of the filter value
	WhereOpIn WhereOp = "in"
	// WhereOpContains matches documents whose field value contains the filter value
	WhereOpContains WhereOp = "contains"
)

// Where is a single query filter. Filters with a nil Value or empty Field
// are skipped at execution time.
type Where struct {
	// Field is the document field to compare. Dot notation is supported.
	Field string `json:"field"`
	// Op is the comparison operator
	Op WhereOp `json:"op"`
	// Value is the value to compare against
	Value any `json:"value"`
}

// Eq is shorthand for an equality filter
func Eq(field string, value any) Where {
	return Where{Field: field, Op: WhereOpEq, Value: value}
}

// Cmp is shorthand for a comparison filter
func Cmp(field string, op WhereOp, value any) Where {
	return Where{Field: field, Op: op, Value: value}
}

// CursorDirection positions a query relative to its cursor document
type CursorDirection string

const (
	// CursorStartAfter resumes exclusively after the cursor document
	CursorStartAfter CursorDirection = "startAfter"
	// CursorStartAt resumes inclusively at the cursor document
	CursorStartAt CursorDirection = "startAt"
	// CursorEndBefore ends exclusively before the cursor document
	CursorEndBefore CursorDirection = "endBefore"
	// CursorEndAt ends inclusively at the cursor document
	CursorEndAt CursorDirection = "endAt"
)

// Options tunes a single Execute call
type Options struct {
	// Limit caps the number of returned documents. Values above 1000 are
	// clamped; values <= 0 select the optimizer's default.
	Limit int `json:"limit"`
	// SelectFields restricts materialized fields. The _id field is always
	// included.
	SelectFields []string `json:"select_fields"`
	// Cursor resumes the query relative to the document with this id. A
	// cursor referencing a deleted document anchors nothing and the query
	// runs from the start.
	Cursor string `json:"cursor"`
	// CursorDirection positions the query against Cursor (default startAfter)
	CursorDirection CursorDirection `json:"cursor_direction"`
	// CacheTTL is how long the result may be served from the query cache.
	// Nil selects the optimizer's default; a value <= 0 disables caching
	// for this call.
	CacheTTL *time.Duration `json:"cache_ttl"`
	// IncludeStats attaches execution statistics to the result
	IncludeStats bool `json:"include_stats"`
	// Timeout bounds the primary fetch. Values <= 0 select the optimizer's
	// default.
	Timeout time.Duration `json:"timeout"`
}

// Result is the outcome of an optimized query
type Result struct {
	// Data contains the returned documents in store order
	Data Documents `json:"data"`
	// HasMore reports whether the underlying fetch returned more rows than
	// the requested limit
	HasMore bool `json:"has_more"`
	// NextCursor resumes after the last document in Data. Set only when
	// HasMore is true.
	NextCursor string `json:"next_cursor,omitempty"`
	// FromCache reports whether the result was served from the query cache
	FromCache bool `json:"from_cache"`
	// Stats are attached when Options.IncludeStats is set
	Stats *QueryStats `json:"stats,omitempty"`
}

// QueryStats are statistics collected from a single query execution
type QueryStats struct {
	// ExecutionTime is the wall clock time spent executing the query
	ExecutionTime time.Duration `json:"execution_time"`
	// DocumentsRead counts documents fetched from the store, including the
	// extra row fetched to detect HasMore
	DocumentsRead int `json:"documents_read"`
	// ResponseSize is the serialized size of Data in bytes
	ResponseSize int `json:"response_size"`
	// UsedIndex reports whether the store answered with native filtering or
	// anchoring
	UsedIndex bool `json:"used_index"`
	// ReadOperations counts round trips to the store
	ReadOperations int `json:"read_operations"`
}

// DecodeOptions decodes loosely typed values (e.g. a decoded json body) into
// Options. Duration fields accept strings like "60s".
func DecodeOptions(input any) (Options, error) {
	var o Options
	if err := util.Decode(input, &o); err != nil {
		return Options{}, errors.Wrap(err, errors.Validation, "failed to decode query options")
	}
	return o, nil
}

// DecodeWhere decodes loosely typed values into filter clauses
func DecodeWhere(input any) ([]Where, error) {
	var w []Where
	if err := util.Decode(input, &w); err != nil {
		return nil, errors.Wrap(err, errors.Validation, "failed to decode where clauses")
	}
	return w, nil
}

func (o *Optimizer) normalizeOptions(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = o.defaultLimit
	}
	if opts.Limit > MaxLimit {
		opts.Limit = MaxLimit
	}
	if opts.CursorDirection == "" {
		opts.CursorDirection = CursorStartAfter
	}
	if opts.Timeout <= 0 {
		opts.Timeout = o.timeout
	}
	return opts
}
