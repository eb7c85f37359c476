package querykit_test

import (
	"context"
	"fmt"

	"github.com/autom8ter/querykit"
	"github.com/autom8ter/querykit/docstore/memory"
	"github.com/autom8ter/querykit/docstore/registry"
)

func getOptimizer() *querykit.Optimizer {
	o, err := querykit.New(memory.New(), querykit.WithLogger(querykit.NewNopLogger()))
	if err != nil {
		panic(err)
	}
	return o
}

func seedExampleOrders(ctx context.Context, o *querykit.Optimizer) {
	for _, doc := range []map[string]interface{}{
		{"_id": "order-1", "status": "paid", "amount": 10.0},
		{"_id": "order-2", "status": "paid", "amount": 25.0},
		{"_id": "order-3", "status": "pending", "amount": 50.0},
	} {
		if _, err := o.Store().Set(ctx, "orders", doc); err != nil {
			panic(err)
		}
	}
}

func ExampleNew() {
	store, err := registry.Open("memory", nil)
	if err != nil {
		panic(err)
	}
	o, err := querykit.New(store,
		querykit.WithCacheSize(1000),
		querykit.WithDefaultLimit(50),
	)
	if err != nil {
		panic(err)
	}
	defer o.Close(context.Background())
}

func ExampleOptimizer_Execute() {
	ctx := context.Background()
	o := getOptimizer()
	defer o.Close(ctx)
	seedExampleOrders(ctx, o)

	result, err := o.Execute(ctx, "orders", []querykit.Where{
		querykit.Eq("status", "paid"),
	}, querykit.Options{Limit: 1})
	if err != nil {
		panic(err)
	}
	fmt.Println(len(result.Data), result.HasMore, result.NextCursor)
	// Output:
	// 1 true order-1
}

func ExampleOptimizer_BatchRead() {
	ctx := context.Background()
	o := getOptimizer()
	defer o.Close(ctx)
	seedExampleOrders(ctx, o)

	docs, err := o.BatchRead(ctx, querykit.BatchConfig{
		Collection: "orders",
		IDs:        []string{"order-1", "order-1", "order-3", "missing"},
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(len(docs))
	// Output:
	// 2
}

func ExampleOptimizer_Aggregate() {
	ctx := context.Background()
	o := getOptimizer()
	defer o.Close(ctx)
	seedExampleOrders(ctx, o)

	sum, err := o.Aggregate(ctx, "orders", querykit.AggregateSum, "amount", nil, nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(sum.Value)
	// Output:
	// 85
}

func ExampleOptimizer_Paginate() {
	ctx := context.Background()
	o := getOptimizer()
	defer o.Close(ctx)
	seedExampleOrders(ctx, o)

	page, err := o.Paginate(ctx, "orders", querykit.PaginateOptions{
		OrderBy:   "amount",
		Direction: querykit.OrderByDesc,
		PageSize:  2,
	})
	if err != nil {
		panic(err)
	}
	fmt.Println(page.Data.IDs(), page.HasNextPage)
	// Output:
	// [order-3 order-2] true
}

func ExampleLoadConfig() {
	cfg, err := querykit.LoadConfig([]byte(`
cache_size: 1000
query_ttl: 30s
aggregate_ttl: 10m
log_level: error
`))
	if err != nil {
		panic(err)
	}
	o, err := querykit.New(memory.New(), cfg.Opts()...)
	if err != nil {
		panic(err)
	}
	defer o.Close(context.Background())
}
