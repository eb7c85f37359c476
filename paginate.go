package querykit

import (
	"context"

	"github.com/autom8ter/querykit/errors"
	"github.com/autom8ter/querykit/util"
)

// OrderByDirection is the direction of an order by
type OrderByDirection string

const (
	// OrderByAsc orders ascending
	OrderByAsc OrderByDirection = "asc"
	// OrderByDesc orders descending
	OrderByDesc OrderByDirection = "desc"
)

// PaginateOptions configures a page fetch
type PaginateOptions struct {
	// OrderBy is the field pages are ordered by
	OrderBy string `json:"order_by" validate:"required"`
	// Direction is the order direction (default asc)
	Direction OrderByDirection `json:"direction" validate:"omitempty,oneof=asc desc"`
	// PageSize is the max documents per page (default 100, ceiling 1000)
	PageSize int `json:"page_size"`
	// Cursor resumes after the document it references
	Cursor string `json:"cursor"`
	// Where filters the paged query
	Where []Where `json:"where"`
}

// Page is a single page of documents
type Page struct {
	// Data are the page's documents in order
	Data Documents `json:"data"`
	// NextCursor resumes the next page, present iff HasNextPage
	NextCursor string `json:"next_cursor,omitempty"`
	// PrevCursor echoes the cursor this page was fetched with
	PrevCursor string `json:"prev_cursor,omitempty"`
	// HasNextPage is true when more documents follow this page
	HasNextPage bool `json:"has_next_page"`
	// HasPrevPage is true when this page was fetched with a cursor
	HasPrevPage bool `json:"has_prev_page"`
}

// Paginate fetches one forward page of a filtered query ordered by a single
// field. Pages are never cached. A stale cursor degrades to the first page
// rather than failing.
func (o *Optimizer) Paginate(ctx context.Context, collection string, opts PaginateOptions) (*Page, error) {
	if collection == "" {
		return nil, errors.New(errors.Validation, "a collection is required")
	}
	if err := util.ValidateStruct(opts); err != nil {
		return nil, err
	}
	size := opts.PageSize
	if size <= 0 {
		size = o.defaultLimit
	}
	if size > MaxLimit {
		size = MaxLimit
	}
	direction := opts.Direction
	if direction == "" {
		direction = OrderByAsc
	}
	q := o.store.Query(collection)
	for _, w := range opts.Where {
		if w.Field == "" || w.Value == nil {
			continue
		}
		q = q.Where(w.Field, string(w.Op), w.Value)
	}
	q = q.OrderBy(opts.OrderBy, string(direction))
	if opts.Cursor != "" {
		anchor, err := o.store.GetDocument(ctx, collection, opts.Cursor)
		if err != nil {
			return nil, errors.Wrap(err, errors.Internal, "failed to resolve page cursor")
		}
		if anchor != nil && anchor.Exists() {
			q = q.StartAfter(anchor)
		} else {
			o.logger.Debug(ctx, "page cursor not found, continuing unanchored", map[string]interface{}{
				"collection": collection,
				"cursor":     opts.Cursor,
			})
		}
	}
	docs, err := q.Limit(size + 1).Documents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.Internal, "pagination fetch failed")
	}
	hasNext := len(docs) > size
	kept := docs
	if hasNext {
		kept = docs[:size]
	}
	data, err := materialize(kept)
	if err != nil {
		return nil, err
	}
	page := &Page{
		Data:        data,
		PrevCursor:  opts.Cursor,
		HasNextPage: hasNext,
		HasPrevPage: opts.Cursor != "",
	}
	if hasNext && len(data) > 0 {
		page.NextCursor = data[len(data)-1].ID()
	}
	return page, nil
}
