package testutil

import (
	"context"
	"time"

	"github.com/autom8ter/querykit"
	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/docstore/memory"
	"github.com/brianvoe/gofakeit/v6"
)

// NewUserDoc returns a fake user document
func NewUserDoc() map[string]interface{} {
	return map[string]interface{}{
		"_id":  gofakeit.UUID(),
		"name": gofakeit.Name(),
		"contact": map[string]interface{}{
			"email": gofakeit.Email(),
		},
		"account_id": gofakeit.IntRange(0, 100),
		"language":   gofakeit.Language(),
		"age":        gofakeit.IntRange(18, 90),
	}
}

// NewOrderDoc returns a fake order document
func NewOrderDoc() map[string]interface{} {
	return map[string]interface{}{
		"_id":     gofakeit.UUID(),
		"user_id": gofakeit.UUID(),
		"amount":  gofakeit.Price(1, 1000),
		"status":  gofakeit.RandomString([]string{"pending", "paid", "shipped"}),
	}
}

// Seed writes n fixture documents to the collection and returns their ids in
// insertion order
func Seed(ctx context.Context, store docstore.Store, collection string, n int, fixture func() map[string]interface{}) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := store.Set(ctx, collection, fixture())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// TestOptimizer runs fn against an optimizer backed by an in-memory store
func TestOptimizer(fn func(ctx context.Context, o *querykit.Optimizer, store docstore.Store), opts ...querykit.Opt) error {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()
	store := memory.New()
	defer store.Close()
	o, err := querykit.New(store, opts...)
	if err != nil {
		return err
	}
	defer o.Close(ctx)
	fn(ctx, o, store)
	return nil
}
