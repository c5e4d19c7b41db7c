package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"

	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/repository"
)

// CategoryLoader batches per-site category lookups into single queries so a
// page of site rows costs one round trip instead of one per row.
type CategoryLoader struct {
	loader *dataloader.Loader
}

func NewCategoryLoader(categories repository.CategoryRepository) *CategoryLoader {
	batch := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]uuid.UUID, 0, len(keys))
		for i, key := range keys {
			id, err := uuid.Parse(key.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("parse site id: %w", err)}
				continue
			}
			ids = append(ids, id)
		}

		bySite, err := categories.ListBySiteIDs(ctx, ids)
		for i, key := range keys {
			if results[i] != nil {
				continue
			}
			if err != nil {
				results[i] = &dataloader.Result{Error: err}
				continue
			}
			refs := bySite[uuid.MustParse(key.String())]
			if refs == nil {
				refs = []domain.CategoryRef{}
			}
			results[i] = &dataloader.Result{Data: refs}
		}
		return results
	}

	return &CategoryLoader{
		loader: dataloader.NewBatchedLoader(batch,
			dataloader.WithWait(5*time.Millisecond),
			dataloader.WithClearCacheOnBatch(),
		),
	}
}

// Load returns the categories of one site.
func (l *CategoryLoader) Load(ctx context.Context, siteID uuid.UUID) ([]domain.CategoryRef, error) {
	data, err := l.loader.Load(ctx, dataloader.StringKey(siteID.String()))()
	if err != nil {
		return nil, err
	}
	refs, _ := data.([]domain.CategoryRef)
	return refs, nil
}

// LoadMany returns the categories of each site, index-aligned with siteIDs.
func (l *CategoryLoader) LoadMany(ctx context.Context, siteIDs []uuid.UUID) ([][]domain.CategoryRef, error) {
	thunks := make([]dataloader.Thunk, len(siteIDs))
	for i, id := range siteIDs {
		thunks[i] = l.loader.Load(ctx, dataloader.StringKey(id.String()))
	}

	out := make([][]domain.CategoryRef, len(siteIDs))
	for i, thunk := range thunks {
		data, err := thunk()
		if err != nil {
			return nil, err
		}
		refs, _ := data.([]domain.CategoryRef)
		out[i] = refs
	}
	return out, nil
}
