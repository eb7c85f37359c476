// Package memory provides an in-memory docstore backend, used by tests and
// embedded deployments.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/docstore/dsutil"
	"github.com/autom8ter/querykit/docstore/registry"
	"github.com/autom8ter/querykit/errors"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cast"
)

func init() {
	registry.Register("memory", func(params map[string]interface{}) (docstore.Store, error) {
		return New(), nil
	})
}

// Store is an in-memory document store
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string][]byte
}

var _ docstore.Store = (*Store)(nil)

// New returns an empty in-memory store
func New() *Store {
	return &Store{collections: map[string]map[string][]byte{}}
}

// Query starts a query against the given collection
func (s *Store) Query(collection string) docstore.Query {
	return dsutil.NewQuery(collection, s.scan)
}

// GetDocument gets a single document by id
func (s *Store) GetDocument(ctx context.Context, collection, id string) (docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.collections[collection][id]
	if !ok {
		return dsutil.Missing(id), nil
	}
	return dsutil.NewDoc(id, raw), nil
}

// GetByIDs gets many documents by id. Missing ids are omitted.
func (s *Store) GetByIDs(ctx context.Context, collection string, ids []string) ([]docstore.Doc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]docstore.Doc, 0, len(ids))
	for _, id := range ids {
		if raw, ok := s.collections[collection][id]; ok {
			out = append(out, dsutil.NewDoc(id, raw))
		}
	}
	return out, nil
}

// Set stores a document keyed by its _id field, assigning a ksuid when the
// field is absent. It returns the document id.
func (s *Store) Set(ctx context.Context, collection string, document map[string]any) (string, error) {
	id := cast.ToString(document["_id"])
	if id == "" {
		id = ksuid.New().String()
	}
	doc := make(map[string]any, len(document)+1)
	for k, v := range document {
		doc[k] = v
	}
	doc["_id"] = id
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, errors.Validation, "failed to encode document")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[collection] == nil {
		s.collections[collection] = map[string][]byte{}
	}
	s.collections[collection][id] = raw
	return id, nil
}

// Delete removes a document by id
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

// Close drops all collections
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = map[string]map[string][]byte{}
	return nil
}

func (s *Store) scan(ctx context.Context, collection string) ([]dsutil.RawDoc, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]dsutil.RawDoc, 0, len(s.collections[collection]))
	for id, raw := range s.collections[collection] {
		docs = append(docs, dsutil.NewDoc(id, raw))
	}
	return docs, nil
}
