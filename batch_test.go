package querykit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/autom8ter/querykit"
	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/docstore/memory"
	"github.com/autom8ter/querykit/errors"
	"github.com/autom8ter/querykit/testutil"
	"github.com/stretchr/testify/assert"
)

// countingStore records every multi-get round trip
type countingStore struct {
	docstore.Store
	mu    sync.Mutex
	calls int
	sizes []int
}

func (c *countingStore) GetByIDs(ctx context.Context, collection string, ids []string) ([]docstore.Doc, error) {
	c.mu.Lock()
	c.calls++
	c.sizes = append(c.sizes, len(ids))
	c.mu.Unlock()
	return c.Store.GetByIDs(ctx, collection, ids)
}

func TestBatchRead(t *testing.T) {
	newBatchOptimizer := func(t *testing.T) (*countingStore, *querykit.Optimizer, context.Context) {
		store := &countingStore{Store: memory.New()}
		o, err := querykit.New(store, querykit.WithLogger(querykit.NewNopLogger()))
		assert.NoError(t, err)
		ctx := context.Background()
		t.Cleanup(func() {
			o.Close(ctx)
			store.Close()
		})
		return store, o, ctx
	}
	t.Run("duplicate ids are fetched once", func(t *testing.T) {
		store, o, ctx := newBatchOptimizer(t)
		ids, err := testutil.Seed(ctx, store, "users", 2, testutil.NewUserDoc)
		assert.NoError(t, err)
		docs, err := o.BatchRead(ctx, querykit.BatchConfig{
			Collection: "users",
			IDs:        []string{ids[0], ids[0], ids[1]},
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, len(docs))
		assert.Equal(t, 1, store.calls)
		assert.Equal(t, []int{2}, store.sizes)
	})
	t.Run("ids are chunked", func(t *testing.T) {
		store, o, ctx := newBatchOptimizer(t)
		seeded, err := testutil.Seed(ctx, store, "users", 5, testutil.NewUserDoc)
		assert.NoError(t, err)
		ids := append([]string{}, seeded...)
		for i := 0; i < 245; i++ {
			ids = append(ids, fmt.Sprintf("ghost-%d", i))
		}
		docs, err := o.BatchRead(ctx, querykit.BatchConfig{
			Collection: "users",
			IDs:        ids,
		})
		assert.NoError(t, err)
		assert.Equal(t, 5, len(docs))
		assert.Equal(t, 3, store.calls)
		total := 0
		for _, size := range store.sizes {
			assert.LessOrEqual(t, size, querykit.MaxBatchSize)
			total += size
		}
		assert.Equal(t, 250, total)
	})
	t.Run("batch size is clamped", func(t *testing.T) {
		store, o, ctx := newBatchOptimizer(t)
		ids, err := testutil.Seed(ctx, store, "users", 3, testutil.NewUserDoc)
		assert.NoError(t, err)
		_, err = o.BatchRead(ctx, querykit.BatchConfig{
			Collection: "users",
			IDs:        ids,
			BatchSize:  500,
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, store.calls)
		docs, err := o.BatchRead(ctx, querykit.BatchConfig{
			Collection: "users",
			IDs:        ids,
			BatchSize:  1,
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, len(docs))
		assert.Equal(t, 4, store.calls)
	})
	t.Run("empty ids short circuit", func(t *testing.T) {
		store, o, ctx := newBatchOptimizer(t)
		docs, err := o.BatchRead(ctx, querykit.BatchConfig{Collection: "users"})
		assert.NoError(t, err)
		assert.Equal(t, 0, len(docs))
		assert.Equal(t, 0, store.calls)
	})
	t.Run("missing ids are omitted", func(t *testing.T) {
		store, o, ctx := newBatchOptimizer(t)
		ids, err := testutil.Seed(ctx, store, "users", 1, testutil.NewUserDoc)
		assert.NoError(t, err)
		docs, err := o.BatchRead(ctx, querykit.BatchConfig{
			Collection: "users",
			IDs:        []string{ids[0], "ghost"},
		})
		assert.NoError(t, err)
		assert.Equal(t, []string{ids[0]}, docs.IDs())
	})
	t.Run("select fields projection", func(t *testing.T) {
		_, o, ctx := newBatchOptimizer(t)
		ids, err := testutil.Seed(ctx, o.Store(), "users", 3, testutil.NewUserDoc)
		assert.NoError(t, err)
		docs, err := o.BatchRead(ctx, querykit.BatchConfig{
			Collection:   "users",
			IDs:          ids,
			SelectFields: []string{"name"},
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, len(docs))
		for _, doc := range docs {
			assert.NotEmpty(t, doc.ID())
			assert.True(t, doc.Exists("name"))
			assert.False(t, doc.Exists("age"))
		}
	})
	t.Run("collection is required", func(t *testing.T) {
		_, o, ctx := newBatchOptimizer(t)
		_, err := o.BatchRead(ctx, querykit.BatchConfig{IDs: []string{"a"}})
		assert.NotNil(t, err)
		assert.True(t, errors.HasCode(err, errors.Validation))
	})
}
