// Package docstore defines the document datastore capability consumed by the
// query optimization layer. Implementations live in subpackages and register
// themselves by name with the registry package.
package docstore

import "context"

// Comparison operators accepted by Query.Where.
const (
	OpEq       = "eq"
	OpNeq      = "neq"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpIn       = "in"
	OpContains = "contains"
)

// Sort directions accepted by Query.OrderBy.
const (
	DirectionAsc  = "asc"
	DirectionDesc = "desc"
)

// Doc is a single document held by a store. Documents carry their identifier
// under the _id field of their json encoding as well.
type Doc interface {
	// ID returns the document's identifier within its collection
	ID() string
	// Exists returns false for placeholder results referencing missing documents
	Exists() bool
	// Data returns the document fields as a map
	Data() map[string]any
	// Bytes returns the raw json encoding of the document fields
	Bytes() []byte
}

// Query is a buildable, executable read against a single collection. Builder
// methods return the query for chaining. When no OrderBy is given, results
// follow the collection's natural _id order.
type Query interface {
	// Where adds a filter clause using one of the Op constants
	Where(field string, op string, value any) Query
	// OrderBy sorts results by the given field and direction
	OrderBy(field string, direction string) Query
	// Limit caps the number of returned documents
	Limit(limit int) Query
	// Select restricts returned fields. The _id field is always included.
	Select(fields ...string) Query
	// StartAfter positions results exclusively after the given document
	StartAfter(doc Doc) Query
	// StartAt positions results inclusively at the given document
	StartAt(doc Doc) Query
	// EndBefore ends results exclusively before the given document
	EndBefore(doc Doc) Query
	// EndAt ends results inclusively at the given document
	EndAt(doc Doc) Query
	// Documents executes the query and returns the matching documents
	Documents(ctx context.Context) ([]Doc, error)
	// Count returns the number of documents matching the query's filters
	// without materializing them
	Count(ctx context.Context) (int64, error)
}

// Store is a minimal document database client.
type Store interface {
	// Query starts a query against the given collection
	Query(collection string) Query
	// GetDocument gets a single document by id. A missing document is
	// returned with Exists() == false and a nil error.
	GetDocument(ctx context.Context, collection, id string) (Doc, error)
	// GetByIDs gets many documents by id in a single round trip. Missing ids
	// are omitted from the result.
	GetByIDs(ctx context.Context, collection string, ids []string) ([]Doc, error)
	// Set stores a document keyed by its _id field, assigning a generated id
	// when the field is absent. It returns the document id.
	Set(ctx context.Context, collection string, document map[string]any) (string, error)
	// Delete removes a document by id
	Delete(ctx context.Context, collection, id string) error
	// Close releases the store's resources
	Close() error
}
