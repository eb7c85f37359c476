package querykit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/autom8ter/querykit/docstore"
	"github.com/autom8ter/querykit/errors"
)

type fetchResult struct {
	docs []docstore.Doc
	err  error
}

// Execute runs a filtered, projected, cursor-paginated query against the
// store. Results are cached under a key derived from the query's logical
// identity; a hit skips the store entirely. A per-call CacheTTL <= 0
// disables caching for that call.
func (o *Optimizer) Execute(ctx context.Context, collection string, where []Where, opts Options) (*Result, error) {
	if collection == "" {
		return nil, errors.New(errors.Validation, "a collection is required")
	}
	opts = o.normalizeOptions(opts)
	ttl := o.queryTTL
	if opts.CacheTTL != nil {
		ttl = *opts.CacheTTL
	}
	key := HashQuery(collection, where, opts)
	if ttl > 0 {
		if cached, ok := o.queryCache.Get(key); ok {
			o.logger.Debug(ctx, "query cache hit", map[string]interface{}{
				"collection": collection,
				"key":        key,
			})
			hit := *cached
			hit.FromCache = true
			return &hit, nil
		}
		o.logger.Debug(ctx, "query cache miss", map[string]interface{}{
			"collection": collection,
			"key":        key,
		})
	}
	var (
		start    = time.Now()
		readOps  = 0
		applied  = 0
		anchored = false
	)
	q := o.store.Query(collection)
	for _, w := range where {
		if w.Field == "" || w.Value == nil {
			continue
		}
		q = q.Where(w.Field, string(w.Op), w.Value)
		applied++
	}
	if opts.Cursor != "" {
		anchor, err := o.store.GetDocument(ctx, collection, opts.Cursor)
		readOps++
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to resolve query cursor")
		}
		if anchor != nil && anchor.Exists() {
			q = anchorQuery(q, anchor, opts.CursorDirection)
			anchored = true
		} else {
			o.logger.Debug(ctx, "query cursor not found, continuing unanchored", map[string]interface{}{
				"collection": collection,
				"cursor":     opts.Cursor,
			})
		}
	}
	if len(opts.SelectFields) > 0 {
		q = q.Select(opts.SelectFields...)
	}
	q = q.Limit(opts.Limit + 1)
	docs, err := o.fetch(ctx, q, opts.Timeout)
	readOps++
	if err != nil {
		if errors.HasCode(err, errors.Timeout) {
			o.logger.Warn(ctx, "query timed out", map[string]interface{}{
				"collection": collection,
				"timeout":    opts.Timeout.String(),
			})
		}
		return nil, err
	}
	hasMore := len(docs) > opts.Limit
	kept := docs
	if hasMore {
		kept = docs[:opts.Limit]
	}
	data, err := materialize(kept)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Data:    data,
		HasMore: hasMore,
	}
	if hasMore && len(data) > 0 {
		result.NextCursor = data[len(data)-1].ID()
	}
	if opts.IncludeStats {
		raw, _ := json.Marshal(data)
		result.Stats = &QueryStats{
			ExecutionTime:  time.Since(start),
			DocumentsRead:  len(docs),
			ResponseSize:   len(raw),
			UsedIndex:      applied > 0 || anchored,
			ReadOperations: readOps,
		}
	}
	if ttl > 0 {
		stored := *result
		o.queryCache.Set(key, collection, &stored, ttl)
	}
	return result, nil
}

// fetch races the store read against a timer. On timeout the in-flight read
// is left to the store client to cancel; the caller gets the error promptly.
func (o *Optimizer) fetch(ctx context.Context, q docstore.Query, timeout time.Duration) ([]docstore.Doc, error) {
	resultCh := make(chan fetchResult, 1)
	go func() {
		docs, err := q.Documents(ctx)
		resultCh <- fetchResult{docs: docs, err: err}
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil, errors.New(errors.Timeout, "query exceeded timeout of %s", timeout)
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.Internal, "query context canceled")
	case r := <-resultCh:
		if r.err != nil {
			return nil, errors.Wrap(r.err, errors.Internal, "query fetch failed")
		}
		return r.docs, nil
	}
}

func anchorQuery(q docstore.Query, anchor docstore.Doc, direction CursorDirection) docstore.Query {
	switch direction {
	case CursorStartAt:
		return q.StartAt(anchor)
	case CursorEndBefore:
		return q.EndBefore(anchor)
	case CursorEndAt:
		return q.EndAt(anchor)
	default:
		return q.StartAfter(anchor)
	}
}

// materialize decodes store rows into documents, preserving order and
// skipping rows that don't exist
func materialize(docs []docstore.Doc) (Documents, error) {
	out := make(Documents, 0, len(docs))
	for _, d := range docs {
		if d == nil || !d.Exists() {
			continue
		}
		doc, err := NewDocumentFromBytes(d.Bytes())
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to decode document")
		}
		if doc.ID() == "" {
			if err := doc.Set("_id", d.ID()); err != nil {
				return nil, errors.Wrap(err, errors.Internal, "failed to decode document")
			}
		}
		out = append(out, doc)
	}
	return out, nil
}
