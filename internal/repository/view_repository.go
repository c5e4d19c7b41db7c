package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/merchantops/gridview/internal/db"
	"github.com/merchantops/gridview/internal/domain"
)

const viewColumns = `id, owner_id, resource_table, view_name, columns, filters, sort, column_order, created_at, updated_at`

// viewRepository implements ViewRepository over pgx.
type viewRepository struct {
	conn *db.Connection
}

// NewViewRepository creates a view repository.
func NewViewRepository(conn *db.Connection) ViewRepository {
	return &viewRepository{conn: conn}
}

func (r *viewRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.View, error) {
	row := r.conn.Pool.QueryRow(ctx, `SELECT `+viewColumns+` FROM views WHERE id = $1`, id)
	view, err := scanView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.View{}, domain.ErrNotFound
		}
		return domain.View{}, fmt.Errorf("get view: %w", err)
	}
	return view, nil
}

func (r *viewRepository) GetByName(ctx context.Context, ownerID uuid.UUID, resource, name string) (domain.View, error) {
	row := r.conn.Pool.QueryRow(ctx,
		`SELECT `+viewColumns+` FROM views WHERE owner_id = $1 AND resource_table = $2 AND view_name = $3`,
		ownerID, resource, name)
	view, err := scanView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.View{}, domain.ErrNotFound
		}
		return domain.View{}, fmt.Errorf("get view by name: %w", err)
	}
	return view, nil
}

func (r *viewRepository) ListByResource(ctx context.Context, ownerID uuid.UUID, resource string) ([]domain.View, error) {
	rows, err := r.conn.Pool.Query(ctx,
		`SELECT `+viewColumns+` FROM views WHERE owner_id = $1 AND resource_table = $2 ORDER BY created_at`,
		ownerID, resource)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	defer rows.Close()

	views := make([]domain.View, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan view: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate views: %w", err)
	}
	return views, nil
}

func (r *viewRepository) Create(ctx context.Context, view domain.View) (domain.View, error) {
	columnsJSON, sortJSON, orderJSON, err := encodeViewBlobs(view)
	if err != nil {
		return domain.View{}, err
	}

	row := r.conn.Pool.QueryRow(ctx, `
		INSERT INTO views (owner_id, resource_table, view_name, columns, filters, sort, column_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+viewColumns,
		view.OwnerID, view.ResourceTable, view.Name, columnsJSON, filtersOrEmpty(view.Filters), sortJSON, orderJSON)

	created, err := scanView(row)
	if err != nil {
		return domain.View{}, fmt.Errorf("create view: %w", err)
	}
	return created, nil
}

// EnsureDefault relies on the unique (owner_id, resource_table, view_name)
// index so concurrent first accesses cannot create duplicate defaults. The
// insert and the re-read run in one transaction so the returned row is the
// one the statement observed.
func (r *viewRepository) EnsureDefault(ctx context.Context, view domain.View) (domain.View, error) {
	columnsJSON, sortJSON, orderJSON, err := encodeViewBlobs(view)
	if err != nil {
		return domain.View{}, err
	}

	var ensured domain.View
	err = r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO views (owner_id, resource_table, view_name, columns, filters, sort, column_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (owner_id, resource_table, view_name) DO NOTHING`,
			view.OwnerID, view.ResourceTable, view.Name, columnsJSON, filtersOrEmpty(view.Filters), sortJSON, orderJSON); err != nil {
			return fmt.Errorf("ensure default view: %w", err)
		}
		row := tx.QueryRow(ctx,
			`SELECT `+viewColumns+` FROM views WHERE owner_id = $1 AND resource_table = $2 AND view_name = $3`,
			view.OwnerID, view.ResourceTable, view.Name)
		got, err := scanView(row)
		if err != nil {
			return fmt.Errorf("get default view: %w", err)
		}
		ensured = got
		return nil
	})
	if err != nil {
		return domain.View{}, err
	}
	return ensured, nil
}

func (r *viewRepository) Update(ctx context.Context, view domain.View) (domain.View, error) {
	columnsJSON, sortJSON, orderJSON, err := encodeViewBlobs(view)
	if err != nil {
		return domain.View{}, err
	}

	row := r.conn.Pool.QueryRow(ctx, `
		UPDATE views
		SET view_name = $2, columns = $3, filters = $4, sort = $5, column_order = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+viewColumns,
		view.ID, view.Name, columnsJSON, filtersOrEmpty(view.Filters), sortJSON, orderJSON)

	updated, err := scanView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.View{}, domain.ErrNotFound
		}
		return domain.View{}, fmt.Errorf("update view: %w", err)
	}
	return updated, nil
}

func (r *viewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Pool.Exec(ctx, `DELETE FROM views WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete view: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func encodeViewBlobs(view domain.View) (columns, sort, order json.RawMessage, err error) {
	columns, err = domain.ColumnsToJSONB(view.Columns)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal view columns: %w", err)
	}
	sort, err = domain.SortToJSONB(view.Sort)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal view sort: %w", err)
	}
	order, err = domain.ColumnsToJSONB(view.ColumnOrder)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal view column order: %w", err)
	}
	return columns, sort, order, nil
}

func filtersOrEmpty(filters json.RawMessage) json.RawMessage {
	if len(filters) == 0 {
		return json.RawMessage(`{}`)
	}
	return filters
}

func scanView(row pgx.Row) (domain.View, error) {
	var (
		view        domain.View
		columnsJSON json.RawMessage
		sortJSON    json.RawMessage
		orderJSON   json.RawMessage
	)
	if err := row.Scan(
		&view.ID,
		&view.OwnerID,
		&view.ResourceTable,
		&view.Name,
		&columnsJSON,
		&view.Filters,
		&sortJSON,
		&orderJSON,
		&view.CreatedAt,
		&view.UpdatedAt,
	); err != nil {
		return domain.View{}, err
	}

	columns, err := domain.ColumnsFromJSONB(columnsJSON)
	if err != nil {
		return domain.View{}, fmt.Errorf("decode view columns: %w", err)
	}
	sort, err := domain.SortFromJSONB(sortJSON)
	if err != nil {
		return domain.View{}, fmt.Errorf("decode view sort: %w", err)
	}
	order, err := domain.ColumnsFromJSONB(orderJSON)
	if err != nil {
		return domain.View{}, fmt.Errorf("decode view column order: %w", err)
	}

	view.Columns = columns
	view.Sort = sort
	view.ColumnOrder = order
	return view, nil
}
