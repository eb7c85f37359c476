// Package badger provides a badgerdb backed docstore backend. Documents are
// stored as json values under collection/id keys; a ristretto cache fronts
// point reads.
package badger

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/docstore/dsutil"
	"github.com/autom8ter/querykit/docstore/registry"
	"github.com/autom8ter/querykit/errors"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/ristretto"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cast"
)

func init() {
	registry.Register("badger", func(params map[string]interface{}) (docstore.Store, error) {
		return Open(cast.ToString(params["storage_path"]))
	})
}

// Store is a badger backed document store
type Store struct {
	db    *badger.DB
	cache *ristretto.Cache
}

var _ docstore.Store = (*Store)(nil)

// Open opens a badger store at the given path. An empty path opens an
// in-memory store.
func Open(storagePath string) (*Store, error) {
	opts := badger.DefaultOptions(storagePath)
	if storagePath == "" {
		opts.InMemory = true
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts = opts.WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to open badger storage")
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000, // number of keys to track frequency of.
		MaxCost:     1000,  // maximum cost of cache.
		BufferItems: 64,    // number of keys per Get buffer.
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to open document cache")
	}
	return &Store{
		db:    db,
		cache: cache,
	}, nil
}

// Query starts a query against the given collection
func (s *Store) Query(collection string) docstore.Query {
	return dsutil.NewQuery(collection, s.scan)
}

// GetDocument gets a single document by id
func (s *Store) GetDocument(ctx context.Context, collection, id string) (docstore.Doc, error) {
	k := key(collection, id)
	if cached, ok := s.cache.Get(string(k)); ok {
		return dsutil.NewDoc(id, cached.([]byte)), nil
	}
	var doc docstore.Doc = dsutil.Missing(id)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		s.cache.Set(string(k), raw, 1)
		doc = dsutil.NewDoc(id, raw)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to get document %s/%s", collection, id)
	}
	return doc, nil
}

// GetByIDs gets many documents by id in a single transaction. Missing ids
// are omitted.
func (s *Store) GetByIDs(ctx context.Context, collection string, ids []string) ([]docstore.Doc, error) {
	out := make([]docstore.Doc, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			k := key(collection, id)
			if cached, ok := s.cache.Get(string(k)); ok {
				out = append(out, dsutil.NewDoc(id, cached.([]byte)))
				continue
			}
			item, err := txn.Get(k)
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			s.cache.Set(string(k), raw, 1)
			out = append(out, dsutil.NewDoc(id, raw))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to get documents from %s", collection)
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
	k := key(collection, id)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, raw)
	})
	if err != nil {
		return "", errors.Wrap(err, errors.Internal, "failed to set document %s/%s", collection, id)
	}
	s.cache.Set(string(k), raw, 1)
	return id, nil
}

// Delete removes a document by id
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	k := key(collection, id)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
	if err != nil {
		return errors.Wrap(err, errors.Internal, "failed to delete document %s/%s", collection, id)
	}
	s.cache.Del(string(k))
	return nil
}

// Close syncs and closes the underlying database
func (s *Store) Close() error {
	if err := s.db.Sync(); err != nil {
		return err
	}
	s.cache.Close()
	return s.db.Close()
}

func (s *Store) scan(ctx context.Context, collection string) ([]dsutil.RawDoc, error) {
	prefix := []byte(collection + "/")
	var docs []dsutil.RawDoc
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			id := strings.TrimPrefix(string(item.Key()), collection+"/")
			docs = append(docs, dsutil.NewDoc(id, raw))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to scan %s", collection)
	}
	return docs, nil
}

func key(collection, id string) []byte {
	return []byte(collection + "/" + id)
}
