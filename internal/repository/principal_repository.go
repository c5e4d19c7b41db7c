package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchantops/gridview/internal/domain"
)

// principalRepository implements PrincipalRepository over pgx.
type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository creates a principal repository.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

// GetColumnAccess loads the role column grants for one table, in grant
// order, together with that user's resource overrides for the same table.
func (r *principalRepository) GetColumnAccess(ctx context.Context, userID uuid.UUID, table string) (domain.ColumnAccess, error) {
	const roleQuery = `
		SELECT res.column_name
		FROM user_roles ur
		JOIN role_resources rr ON rr.role_id = ur.role_id
		JOIN resources res ON res.id = rr.resource_id
		WHERE ur.user_id = $1 AND res.table_name = $2
		ORDER BY ur.position, res.id`

	rows, err := r.pool.Query(ctx, roleQuery, userID, table)
	if err != nil {
		return domain.ColumnAccess{}, fmt.Errorf("load role column grants: %w", err)
	}
	defer rows.Close()

	var access domain.ColumnAccess
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return domain.ColumnAccess{}, fmt.Errorf("scan role column grant: %w", err)
		}
		access.RoleColumns = append(access.RoleColumns, column)
	}
	if err := rows.Err(); err != nil {
		return domain.ColumnAccess{}, fmt.Errorf("iterate role column grants: %w", err)
	}

	const overrideQuery = `
		SELECT res.column_name, o.granted
		FROM user_resource_overrides o
		JOIN resources res ON res.id = o.resource_id
		WHERE o.user_id = $1 AND res.table_name = $2
		ORDER BY res.id`

	overrideRows, err := r.pool.Query(ctx, overrideQuery, userID, table)
	if err != nil {
		return domain.ColumnAccess{}, fmt.Errorf("load resource overrides: %w", err)
	}
	defer overrideRows.Close()

	for overrideRows.Next() {
		var override domain.ResourceOverride
		if err := overrideRows.Scan(&override.Column, &override.Granted); err != nil {
			return domain.ColumnAccess{}, fmt.Errorf("scan resource override: %w", err)
		}
		access.Overrides = append(access.Overrides, override)
	}
	if err := overrideRows.Err(); err != nil {
		return domain.ColumnAccess{}, fmt.Errorf("iterate resource overrides: %w", err)
	}

	return access, nil
}

// GetPermissionAccess loads the role permission keys and the user's
// permission overrides.
func (r *principalRepository) GetPermissionAccess(ctx context.Context, userID uuid.UUID) (domain.PermissionAccess, error) {
	const roleQuery = `
		SELECT p.permission_key
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY ur.position, p.id`

	rows, err := r.pool.Query(ctx, roleQuery, userID)
	if err != nil {
		return domain.PermissionAccess{}, fmt.Errorf("load role permissions: %w", err)
	}
	defer rows.Close()

	var access domain.PermissionAccess
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return domain.PermissionAccess{}, fmt.Errorf("scan role permission: %w", err)
		}
		access.RoleKeys = append(access.RoleKeys, key)
	}
	if err := rows.Err(); err != nil {
		return domain.PermissionAccess{}, fmt.Errorf("iterate role permissions: %w", err)
	}

	const overrideQuery = `
		SELECT p.permission_key, o.granted
		FROM user_permission_overrides o
		JOIN permissions p ON p.id = o.permission_id
		WHERE o.user_id = $1
		ORDER BY p.id`

	overrideRows, err := r.pool.Query(ctx, overrideQuery, userID)
	if err != nil {
		return domain.PermissionAccess{}, fmt.Errorf("load permission overrides: %w", err)
	}
	defer overrideRows.Close()

	for overrideRows.Next() {
		var override domain.PermissionOverride
		if err := overrideRows.Scan(&override.Key, &override.Granted); err != nil {
			return domain.PermissionAccess{}, fmt.Errorf("scan permission override: %w", err)
		}
		access.Overrides = append(access.Overrides, override)
	}
	if err := overrideRows.Err(); err != nil {
		return domain.PermissionAccess{}, fmt.Errorf("iterate permission overrides: %w", err)
	}

	return access, nil
}
