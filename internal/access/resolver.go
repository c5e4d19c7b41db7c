package access

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/repository"
)

// Resolver computes effective access sets on demand. Any repository failure
// resolves to an empty set rather than an error: no access beats an
// exception leaking schema or permission details to the caller.
type Resolver struct {
	principals repository.PrincipalRepository
	cache      Cache
	logger     *zap.Logger
}

// NewResolver creates a resolver over the principal repository.
func NewResolver(principals repository.PrincipalRepository, cache Cache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{principals: principals, cache: cache, logger: logger}
}

// ResolveColumns returns the ordered effective column set of one principal
// for one table: role grants in grant order, granted overrides appended,
// revoked overrides removed. Cached per (user, table).
func (r *Resolver) ResolveColumns(ctx context.Context, userID uuid.UUID, table string) []string {
	key := columnCacheKey(userID, table)
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	access, err := r.principals.GetColumnAccess(ctx, userID, table)
	if err != nil {
		r.logger.Warn("column access lookup failed, resolving to no access",
			zap.String("user_id", userID.String()),
			zap.String("table", table),
			zap.Error(err))
		return []string{}
	}

	columns := access.EffectiveColumns()
	r.cache.Set(key, columns)
	return columns
}

// ResolvePermissions returns the effective permission keys of a principal.
// Cached per user.
func (r *Resolver) ResolvePermissions(ctx context.Context, userID uuid.UUID) []string {
	key := permissionCacheKey(userID)
	if cached, ok := r.cache.Get(key); ok {
		return cached
	}

	access, err := r.principals.GetPermissionAccess(ctx, userID)
	if err != nil {
		r.logger.Warn("permission lookup failed, resolving to no access",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return []string{}
	}

	keys := access.EffectiveKeys()
	r.cache.Set(key, keys)
	return keys
}

// HasPermission reports whether the principal holds the permission key.
func (r *Resolver) HasPermission(ctx context.Context, userID uuid.UUID, permission string) bool {
	for _, key := range r.ResolvePermissions(ctx, userID) {
		if key == permission {
			return true
		}
	}
	return false
}

// Guard returns ErrAccessDenied unless the principal holds the permission.
func (r *Resolver) Guard(ctx context.Context, userID uuid.UUID, permission string) error {
	if !r.HasPermission(ctx, userID, permission) {
		return domain.ErrAccessDenied
	}
	return nil
}

func columnCacheKey(userID uuid.UUID, table string) string {
	return "columns:" + userID.String() + ":" + table
}

func permissionCacheKey(userID uuid.UUID) string {
	return "permissions:" + userID.String()
}
