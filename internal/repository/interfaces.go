// Package repository implements persistence over pgx: principal access
// lookups, view storage, and execution of compiled query descriptors as
// parameterized SQL.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/merchantops/gridview/internal/domain"
)

// PrincipalRepository loads the raw material of access resolution.
type PrincipalRepository interface {
	GetColumnAccess(ctx context.Context, userID uuid.UUID, table string) (domain.ColumnAccess, error)
	GetPermissionAccess(ctx context.Context, userID uuid.UUID) (domain.PermissionAccess, error)
}

// ViewRepository persists named view configurations.
type ViewRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.View, error)
	GetByName(ctx context.Context, ownerID uuid.UUID, resource, name string) (domain.View, error)
	ListByResource(ctx context.Context, ownerID uuid.UUID, resource string) ([]domain.View, error)
	Create(ctx context.Context, view domain.View) (domain.View, error)
	// EnsureDefault inserts the default view unless one already exists for
	// (owner, resource) and returns the surviving row either way.
	EnsureDefault(ctx context.Context, view domain.View) (domain.View, error)
	Update(ctx context.Context, view domain.View) (domain.View, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GridRepository executes compiled query descriptors against the relational
// store. Count and Query must be driven by the identical where predicate.
type GridRepository interface {
	Count(ctx context.Context, entity string, descriptor domain.QueryDescriptor) (int64, error)
	Query(ctx context.Context, entity string, descriptor domain.QueryDescriptor, skip, take int) ([]domain.OrderedRow, error)
	GroupCount(ctx context.Context, entity string, descriptor domain.QueryDescriptor, groupColumn string) ([]domain.GroupBucket, error)
}

// CategoryRepository serves batched many-to-many category hydration.
type CategoryRepository interface {
	ListBySiteIDs(ctx context.Context, siteIDs []uuid.UUID) (map[uuid.UUID][]domain.CategoryRef, error)
}
