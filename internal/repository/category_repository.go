package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchantops/gridview/internal/domain"
)

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository creates a category repository backed by pgx.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

// ListBySiteIDs loads the categories attached to each of the given sites in
// one round trip. Sites without categories are absent from the result map.
func (r *categoryRepository) ListBySiteIDs(ctx context.Context, siteIDs []uuid.UUID) (map[uuid.UUID][]domain.CategoryRef, error) {
	if len(siteIDs) == 0 {
		return map[uuid.UUID][]domain.CategoryRef{}, nil
	}

	query := `
		SELECT sc.site_id, c.id, c.name
		FROM site_categories sc
		JOIN categories c ON c.id = sc.category_id
		WHERE sc.site_id = ANY($1)
		ORDER BY sc.site_id, c.name`

	rows, err := r.pool.Query(ctx, query, siteIDs)
	if err != nil {
		return nil, fmt.Errorf("list site categories: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]domain.CategoryRef, len(siteIDs))
	for rows.Next() {
		var siteID uuid.UUID
		var ref domain.CategoryRef
		if err := rows.Scan(&siteID, &ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("scan site category: %w", err)
		}
		result[siteID] = append(result[siteID], ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate site categories: %w", err)
	}
	return result, nil
}
