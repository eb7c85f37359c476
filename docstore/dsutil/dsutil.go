// Package dsutil implements the query evaluation pipeline shared by the
// docstore backends: filter matching, ordering, cursor anchoring, limiting
// and field projection over raw json documents. Backends supply a ScanFunc
// that enumerates a collection; the pipeline keeps query semantics identical
// across storage engines.
package dsutil

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/errors"
	"github.com/autom8ter/querykit/util"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Anchor modes.
const (
	StartAfter = "startAfter"
	StartAt    = "startAt"
	EndBefore  = "endBefore"
	EndAt      = "endAt"
)

// RawDoc is a docstore.Doc backed by raw json bytes
type RawDoc struct {
	DocID string
	Raw   []byte
}

// NewDoc returns a Doc with the given id and json encoding
func NewDoc(id string, raw []byte) RawDoc {
	return RawDoc{DocID: id, Raw: raw}
}

// Missing returns a placeholder Doc for an id with no stored document
func Missing(id string) RawDoc {
	return RawDoc{DocID: id}
}

// ID returns the document's identifier
func (d RawDoc) ID() string {
	return d.DocID
}

// Exists returns false for placeholder documents
func (d RawDoc) Exists() bool {
	return len(d.Raw) > 0
}

// Data returns the document fields as a map
func (d RawDoc) Data() map[string]any {
	if !d.Exists() {
		return nil
	}
	return cast.ToStringMap(gjson.ParseBytes(d.Raw).Value())
}

// Bytes returns the raw json encoding of the document
func (d RawDoc) Bytes() []byte {
	return d.Raw
}

// Clause is a single parsed filter
type Clause struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// ScanFunc enumerates the candidate documents of a collection
type ScanFunc func(ctx context.Context, collection string) ([]RawDoc, error)

// Query implements docstore.Query over any backend that can enumerate a
// collection.
type Query struct {
	collection string
	scan       ScanFunc
	clauses    []Clause
	orderField string
	orderDir   string
	limit      int
	fields     []string
	anchor     docstore.Doc
	anchorMode string
}

var _ docstore.Query = (*Query)(nil)

// NewQuery returns a Query over the given collection and scan function
func NewQuery(collection string, scan ScanFunc) *Query {
	return &Query{collection: collection, scan: scan}
}

// Where adds a filter clause
func (q *Query) Where(field string, op string, value any) docstore.Query {
	q.clauses = append(q.clauses, Clause{Field: field, Op: op, Value: value})
	return q
}

// OrderBy sorts results by the given field and direction
func (q *Query) OrderBy(field string, direction string) docstore.Query {
	q.orderField = field
	q.orderDir = direction
	return q
}

// Limit caps the number of returned documents
func (q *Query) Limit(limit int) docstore.Query {
	q.limit = limit
	return q
}

// Select restricts returned fields. The _id field is always included.
func (q *Query) Select(fields ...string) docstore.Query {
	q.fields = fields
	return q
}

// StartAfter positions results exclusively after the given document
func (q *Query) StartAfter(doc docstore.Doc) docstore.Query {
	return q.setAnchor(doc, StartAfter)
}

// StartAt positions results inclusively at the given document
func (q *Query) StartAt(doc docstore.Doc) docstore.Query {
	return q.setAnchor(doc, StartAt)
}

// EndBefore ends results exclusively before the given document
func (q *Query) EndBefore(doc docstore.Doc) docstore.Query {
	return q.setAnchor(doc, EndBefore)
}

// EndAt ends results inclusively at the given document
func (q *Query) EndAt(doc docstore.Doc) docstore.Query {
	return q.setAnchor(doc, EndAt)
}

func (q *Query) setAnchor(doc docstore.Doc, mode string) docstore.Query {
	q.anchor = doc
	q.anchorMode = mode
	return q
}

// Documents executes the query pipeline
func (q *Query) Documents(ctx context.Context) ([]docstore.Doc, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "query canceled")
	}
	docs, err := q.scan(ctx, q.collection)
	if err != nil {
		return nil, err
	}
	matched, err := q.filter(docs)
	if err != nil {
		return nil, err
	}
	q.order(matched)
	matched = q.cut(matched)
	if q.limit > 0 && len(matched) > q.limit {
		matched = matched[:q.limit]
	}
	out := make([]docstore.Doc, 0, len(matched))
	for _, d := range matched {
		if len(q.fields) > 0 {
			raw, err := Project(d.Raw, q.fields)
			if err != nil {
				return nil, err
			}
			d = RawDoc{DocID: d.DocID, Raw: raw}
		}
		out = append(out, d)
	}
	return out, nil
}

// Count returns the number of documents matching the query's filters
func (q *Query) Count(ctx context.Context) (int64, error) {
	docs, err := q.scan(ctx, q.collection)
	if err != nil {
		return 0, err
	}
	var count int64
	for _, d := range docs {
		ok, err := MatchAll(d.Raw, q.clauses)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (q *Query) filter(docs []RawDoc) ([]RawDoc, error) {
	if len(q.clauses) == 0 {
		return docs, nil
	}
	out := make([]RawDoc, 0, len(docs))
	for _, d := range docs {
		ok, err := MatchAll(d.Raw, q.clauses)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (q *Query) order(docs []RawDoc) {
	desc := q.orderDir == docstore.DirectionDesc
	sort.Slice(docs, func(i, j int) bool {
		c := q.compare(docs[i], docs[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compare orders by the query's order field, breaking ties by document id so
// the order is total and anchors position deterministically.
func (q *Query) compare(a, b RawDoc) int {
	if q.orderField != "" {
		if c := CompareField(q.orderField, a.Raw, b.Raw); c != 0 {
			return c
		}
	}
	return strings.Compare(a.DocID, b.DocID)
}

func (q *Query) cut(docs []RawDoc) []RawDoc {
	if q.anchor == nil || q.anchorMode == "" {
		return docs
	}
	var (
		desc      = q.orderDir == docstore.DirectionDesc
		anchorRaw = q.anchor.Bytes()
		anchorID  = q.anchor.ID()
	)
	cmp := func(d RawDoc) int {
		c := 0
		if q.orderField != "" {
			c = CompareField(q.orderField, d.Raw, anchorRaw)
		}
		if c == 0 {
			c = strings.Compare(d.DocID, anchorID)
		}
		if desc {
			return -c
		}
		return c
	}
	after := sort.Search(len(docs), func(i int) bool { return cmp(docs[i]) > 0 })
	at := sort.Search(len(docs), func(i int) bool { return cmp(docs[i]) >= 0 })
	switch q.anchorMode {
	case StartAfter:
		return docs[after:]
	case StartAt:
		return docs[at:]
	case EndBefore:
		return docs[:at]
	case EndAt:
		return docs[:after]
	}
	return docs
}

// MatchAll reports whether the json encoded document satisfies every clause
func MatchAll(raw []byte, clauses []Clause) (bool, error) {
	for _, c := range clauses {
		ok, err := Match(raw, c)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Match reports whether the json encoded document satisfies the clause.
// Equality is loosely typed (json encodings are compared, so integer and
// float values of equal magnitude match); range operators compare
// numerically.
func Match(raw []byte, c Clause) (bool, error) {
	result := gjson.GetBytes(raw, c.Field)
	switch c.Op {
	case docstore.OpEq:
		return util.JSONString(result.Value()) == util.JSONString(c.Value), nil
	case docstore.OpNeq:
		return util.JSONString(result.Value()) != util.JSONString(c.Value), nil
	case docstore.OpGt:
		return result.Float() > cast.ToFloat64(c.Value), nil
	case docstore.OpGte:
		return result.Float() >= cast.ToFloat64(c.Value), nil
	case docstore.OpLt:
		return result.Float() < cast.ToFloat64(c.Value), nil
	case docstore.OpLte:
		return result.Float() <= cast.ToFloat64(c.Value), nil
	case docstore.OpIn:
		bits, _ := json.Marshal(c.Value)
		target := util.JSONString(result.Value())
		for _, element := range gjson.ParseBytes(bits).Array() {
			if util.JSONString(element.Value()) == target {
				return true, nil
			}
		}
		return false, nil
	case docstore.OpContains:
		switch fieldVal := result.Value().(type) {
		case []any:
			target := util.JSONString(c.Value)
			return lo.ContainsBy(fieldVal, func(v any) bool {
				return util.JSONString(v) == target
			}), nil
		case string:
			return strings.Contains(fieldVal, cast.ToString(c.Value)), nil
		default:
			return strings.Contains(util.JSONString(fieldVal), util.JSONString(c.Value)), nil
		}
	default:
		return false, errors.New(errors.Validation, "invalid operator: '%s'", c.Op)
	}
}

// CompareField compares the given field of two json encoded documents,
// returning -1, 0 or 1. Numbers compare numerically, booleans and strings
// naturally; other types fall back to comparing json encodings.
func CompareField(field string, a, b []byte) int {
	av := gjson.GetBytes(a, field)
	bv := gjson.GetBytes(b, field)
	switch av.Value().(type) {
	case bool:
		return compareBool(av.Bool(), bv.Bool())
	case float64:
		switch {
		case av.Float() < bv.Float():
			return -1
		case av.Float() > bv.Float():
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(av.String(), bv.String())
	default:
		return strings.Compare(util.JSONString(av.Value()), util.JSONString(bv.Value()))
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

// Project returns a json document restricted to the given fields. The _id
// field is always kept. Dot notation fields materialize at their nested
// paths.
func Project(raw []byte, fields []string) ([]byte, error) {
	out := "{}"
	var err error
	for _, field := range lo.Uniq(append([]string{"_id"}, fields...)) {
		result := gjson.GetBytes(raw, field)
		if !result.Exists() {
			continue
		}
		out, err = sjson.Set(out, field, result.Value())
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to project field '%s'", field)
		}
	}
	return []byte(out), nil
}
