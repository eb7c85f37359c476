// Package redis provides a redis backed docstore backend. Documents are
// stored as json strings under collection/id keys and MGET serves as the
// multi-get primitive.
package redis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/docstore/dsutil"
	"github.com/autom8ter/querykit/docstore/registry"
	"github.com/autom8ter/querykit/errors"
	"github.com/autom8ter/querykit/util"
	"github.com/go-redis/redis/v9"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cast"
)

func init() {
	registry.Register("redis", func(params map[string]interface{}) (docstore.Store, error) {
		var cfg Config
		if err := util.Decode(params, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.Validation, "invalid redis params")
		}
		return Open(cfg)
	})
}

// Config configures the redis backend
type Config struct {
	// Addr is the redis server address
	Addr string `json:"addr" validate:"required"`
	// Password is an optional server password
	Password string `json:"password"`
	// DB is the redis database number
	DB int `json:"db"`
}

// Store is a redis backed document store
type Store struct {
	client *redis.Client
}

var _ docstore.Store = (*Store)(nil)

// Open connects to redis with the given config
func Open(cfg Config) (*Store, error) {
	if err := util.ValidateStruct(cfg); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{client: client}, nil
}

// Query starts a query against the given collection
func (s *Store) Query(collection string) docstore.Query {
	return dsutil.NewQuery(collection, s.scan)
}

// GetDocument gets a single document by id
func (s *Store) GetDocument(ctx context.Context, collection, id string) (docstore.Doc, error) {
	raw, err := s.client.Get(ctx, key(collection, id)).Bytes()
	if err == redis.Nil {
		return dsutil.Missing(id), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to get document %s/%s", collection, id)
	}
	return dsutil.NewDoc(id, raw), nil
}

// GetByIDs gets many documents by id with a single MGET. Missing ids are
// omitted.
func (s *Store) GetByIDs(ctx context.Context, collection string, ids []string) ([]docstore.Doc, error) {
	if len(ids) == 0 {
		return []docstore.Doc{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, key(collection, id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to get documents from %s", collection)
	}
	out := make([]docstore.Doc, 0, len(values))
	for i, value := range values {
		if value == nil {
			continue
		}
		out = append(out, dsutil.NewDoc(ids[i], []byte(cast.ToString(value))))
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
	if err := s.client.Set(ctx, key(collection, id), raw, 0).Err(); err != nil {
		return "", errors.Wrap(err, errors.Internal, "failed to set document %s/%s", collection, id)
	}
	return id, nil
}

// Delete removes a document by id
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := s.client.Del(ctx, key(collection, id)).Err(); err != nil {
		return errors.Wrap(err, errors.Internal, "failed to delete document %s/%s", collection, id)
	}
	return nil
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) scan(ctx context.Context, collection string) ([]dsutil.RawDoc, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, collection+"/*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to scan %s", collection)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "failed to scan %s", collection)
	}
	docs := make([]dsutil.RawDoc, 0, len(values))
	for i, value := range values {
		if value == nil {
			continue
		}
		id := strings.TrimPrefix(keys[i], collection+"/")
		docs = append(docs, dsutil.NewDoc(id, []byte(cast.ToString(value))))
	}
	return docs, nil
}

func key(collection, id string) string {
	return collection + "/" + id
}
