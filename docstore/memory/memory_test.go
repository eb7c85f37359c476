package memory_test

import (
	"context"
	"testing"

	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/docstore/memory"
	"github.com/autom8ter/querykit/errors"
	"github.com/stretchr/testify/assert"
)

func seedStore(ctx context.Context, t *testing.T, store *memory.Store) {
	for _, doc := range []map[string]interface{}{
		{"_id": "order-1", "status": "paid", "amount": 10.0, "tags": []string{"rush", "gift"}},
		{"_id": "order-2", "status": "paid", "amount": 25.0, "tags": []string{}},
		{"_id": "order-3", "status": "pending", "amount": 50.0},
	} {
		_, err := store.Set(ctx, "orders", doc)
		assert.NoError(t, err)
	}
}

func ids(docs []docstore.Doc) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	t.Run("set and get", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		id, err := store.Set(ctx, "orders", map[string]interface{}{"_id": "order-1", "status": "paid"})
		assert.NoError(t, err)
		assert.Equal(t, "order-1", id)
		doc, err := store.GetDocument(ctx, "orders", "order-1")
		assert.NoError(t, err)
		assert.True(t, doc.Exists())
		assert.Equal(t, "order-1", doc.ID())
		assert.Equal(t, "paid", doc.Data()["status"])
	})
	t.Run("set assigns an id when absent", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		id, err := store.Set(ctx, "orders", map[string]interface{}{"status": "paid"})
		assert.NoError(t, err)
		assert.NotEmpty(t, id)
		doc, err := store.GetDocument(ctx, "orders", id)
		assert.NoError(t, err)
		assert.True(t, doc.Exists())
		assert.Equal(t, id, doc.Data()["_id"])
	})
	t.Run("missing documents exist as placeholders", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		doc, err := store.GetDocument(ctx, "orders", "ghost")
		assert.NoError(t, err)
		assert.False(t, doc.Exists())
		assert.Equal(t, "ghost", doc.ID())
	})
	t.Run("get by ids omits missing", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		docs, err := store.GetByIDs(ctx, "orders", []string{"order-1", "ghost", "order-3"})
		assert.NoError(t, err)
		assert.Equal(t, []string{"order-1", "order-3"}, ids(docs))
	})
	t.Run("delete", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		assert.NoError(t, store.Delete(ctx, "orders", "order-1"))
		doc, err := store.GetDocument(ctx, "orders", "order-1")
		assert.NoError(t, err)
		assert.False(t, doc.Exists())
	})
	t.Run("query operators", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		cases := []struct {
			name  string
			field string
			op    string
			value interface{}
			want  []string
		}{
			{"eq", "status", docstore.OpEq, "paid", []string{"order-1", "order-2"}},
			{"eq loose typing", "amount", docstore.OpEq, 10, []string{"order-1"}},
			{"neq", "status", docstore.OpNeq, "paid", []string{"order-3"}},
			{"gt", "amount", docstore.OpGt, 10, []string{"order-2", "order-3"}},
			{"gte", "amount", docstore.OpGte, 25, []string{"order-2", "order-3"}},
			{"lt", "amount", docstore.OpLt, 25, []string{"order-1"}},
			{"lte", "amount", docstore.OpLte, 25, []string{"order-1", "order-2"}},
			{"in", "status", docstore.OpIn, []string{"pending", "refunded"}, []string{"order-3"}},
			{"contains element", "tags", docstore.OpContains, "rush", []string{"order-1"}},
			{"contains substring", "status", docstore.OpContains, "pend", []string{"order-3"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				docs, err := store.Query("orders").Where(tc.field, tc.op, tc.value).Documents(ctx)
				assert.NoError(t, err)
				assert.Equal(t, tc.want, ids(docs))
			})
		}
	})
	t.Run("invalid operator", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		_, err := store.Query("orders").Where("status", "~", "paid").Documents(ctx)
		assert.NotNil(t, err)
		assert.True(t, errors.HasCode(err, errors.Validation))
	})
	t.Run("order by", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		asc, err := store.Query("orders").OrderBy("amount", docstore.DirectionAsc).Documents(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"order-1", "order-2", "order-3"}, ids(asc))
		desc, err := store.Query("orders").OrderBy("amount", docstore.DirectionDesc).Documents(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"order-3", "order-2", "order-1"}, ids(desc))
	})
	t.Run("natural order is by id", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		docs, err := store.Query("orders").Documents(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"order-1", "order-2", "order-3"}, ids(docs))
	})
	t.Run("limit", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		docs, err := store.Query("orders").Limit(2).Documents(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"order-1", "order-2"}, ids(docs))
	})
	t.Run("anchors", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		anchor, err := store.GetDocument(ctx, "orders", "order-2")
		assert.NoError(t, err)
		cases := []struct {
			name   string
			anchor func(q docstore.Query) docstore.Query
			want   []string
		}{
			{"start after", func(q docstore.Query) docstore.Query { return q.StartAfter(anchor) }, []string{"order-3"}},
			{"start at", func(q docstore.Query) docstore.Query { return q.StartAt(anchor) }, []string{"order-2", "order-3"}},
			{"end before", func(q docstore.Query) docstore.Query { return q.EndBefore(anchor) }, []string{"order-1"}},
			{"end at", func(q docstore.Query) docstore.Query { return q.EndAt(anchor) }, []string{"order-1", "order-2"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				docs, err := tc.anchor(store.Query("orders")).Documents(ctx)
				assert.NoError(t, err)
				assert.Equal(t, tc.want, ids(docs))
			})
		}
	})
	t.Run("anchors follow the order by", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		anchor, err := store.GetDocument(ctx, "orders", "order-2")
		assert.NoError(t, err)
		docs, err := store.Query("orders").OrderBy("amount", docstore.DirectionDesc).StartAfter(anchor).Documents(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []string{"order-1"}, ids(docs))
	})
	t.Run("select", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		docs, err := store.Query("orders").Select("status").Documents(ctx)
		assert.NoError(t, err)
		for _, d := range docs {
			data := d.Data()
			assert.NotEmpty(t, data["_id"])
			assert.NotEmpty(t, data["status"])
			_, hasAmount := data["amount"]
			assert.False(t, hasAmount)
		}
	})
	t.Run("count", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		seedStore(ctx, t, store)
		count, err := store.Query("orders").Count(ctx)
		assert.NoError(t, err)
		assert.EqualValues(t, 3, count)
		count, err = store.Query("orders").Where("status", docstore.OpEq, "paid").Count(ctx)
		assert.NoError(t, err)
		assert.EqualValues(t, 2, count)
	})
	t.Run("empty collection", func(t *testing.T) {
		store := memory.New()
		defer store.Close()
		docs, err := store.Query("empty").Documents(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, len(docs))
	})
}
