package querykit

import (
	"context"

	"github.com/autom8ter/querykit/errors"
	"github.com/autom8ter/querykit/util"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// MaxBatchSize is the most ids a single multi-get round trip may carry
const MaxBatchSize = 100

// BatchConfig configures a batch read
type BatchConfig struct {
	// Collection is the collection to read from
	Collection string `json:"collection" validate:"required"`
	// IDs are the document ids to read. Duplicates are removed before use.
	IDs []string `json:"ids"`
	// SelectFields optionally projects each document to the given fields
	// plus its id
	SelectFields []string `json:"select_fields"`
	// BatchSize is the max ids per multi-get (default and ceiling 100)
	BatchSize int `json:"batch_size"`
}

// BatchRead resolves many ids into documents via deduplicated, chunked,
// concurrent multi-gets. Ids that don't exist are omitted. Results are not
// cached and carry no ordering guarantee beyond chunk order.
func (o *Optimizer) BatchRead(ctx context.Context, config BatchConfig) (Documents, error) {
	if err := util.ValidateStruct(config); err != nil {
		return nil, err
	}
	if len(config.IDs) == 0 {
		return Documents{}, nil
	}
	size := config.BatchSize
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	ids := lo.Uniq(config.IDs)
	chunks := lo.Chunk(ids, size)
	results := make([]Documents, len(chunks))
	egp, ctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		egp.Go(func() error {
			docs, err := o.store.GetByIDs(ctx, config.Collection, chunk)
			if err != nil {
				return errors.Wrap(err, errors.Internal, "batch read failed")
			}
			data, err := materialize(docs)
			if err != nil {
				return err
			}
			if len(config.SelectFields) > 0 {
				projected := make(Documents, 0, len(data))
				for _, doc := range data {
					p, err := doc.Project(config.SelectFields)
					if err != nil {
						return err
					}
					projected = append(projected, p)
				}
				data = projected
			}
			results[i] = data
			return nil
		})
	}
	if err := egp.Wait(); err != nil {
		return nil, err
	}
	var out Documents
	for _, batch := range results {
		out = append(out, batch...)
	}
	if out == nil {
		out = Documents{}
	}
	return out, nil
}
