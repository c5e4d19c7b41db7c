package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/merchantops/gridview/internal/domain"
)

type fakePrincipals struct {
	columns     domain.ColumnAccess
	permissions domain.PermissionAccess
	err         error
	columnCalls int
}

func (f *fakePrincipals) GetColumnAccess(ctx context.Context, userID uuid.UUID, table string) (domain.ColumnAccess, error) {
	f.columnCalls++
	return f.columns, f.err
}

func (f *fakePrincipals) GetPermissionAccess(ctx context.Context, userID uuid.UUID) (domain.PermissionAccess, error) {
	return f.permissions, f.err
}

type fakeCache struct {
	entries map[string][]string
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]string)}
}

func (c *fakeCache) Get(key string) ([]string, bool) {
	v, ok := c.entries[key]
	return v, ok
}

func (c *fakeCache) Set(key string, values []string) {
	c.sets++
	c.entries[key] = values
}

func (c *fakeCache) TTL() time.Duration { return time.Minute }

func TestResolveColumnsOverridePrecedence(t *testing.T) {
	principals := &fakePrincipals{
		columns: domain.ColumnAccess{
			RoleColumns: []string{"website", "costPrice", "remark"},
			Overrides: []domain.ResourceOverride{
				{Column: "remark", Granted: false},
				{Column: "sellPrice", Granted: true},
			},
		},
	}
	resolver := NewResolver(principals, newFakeCache(), nil)

	columns := resolver.ResolveColumns(context.Background(), uuid.New(), "sites")

	require.Equal(t, []string{"website", "costPrice", "sellPrice"}, columns)
}

func TestResolveColumnsFailClosedWithoutCaching(t *testing.T) {
	principals := &fakePrincipals{err: errors.New("connection refused")}
	cache := newFakeCache()
	resolver := NewResolver(principals, cache, nil)
	userID := uuid.New()

	columns := resolver.ResolveColumns(context.Background(), userID, "sites")
	require.Empty(t, columns)
	require.Zero(t, cache.sets, "failures must not be cached")

	// Next call retries the repository instead of serving the failure.
	resolver.ResolveColumns(context.Background(), userID, "sites")
	require.Equal(t, 2, principals.columnCalls)
}

func TestResolveColumnsServedFromCache(t *testing.T) {
	principals := &fakePrincipals{
		columns: domain.ColumnAccess{RoleColumns: []string{"website"}},
	}
	cache := newFakeCache()
	resolver := NewResolver(principals, cache, nil)
	userID := uuid.New()

	first := resolver.ResolveColumns(context.Background(), userID, "sites")
	second := resolver.ResolveColumns(context.Background(), userID, "sites")

	require.Equal(t, first, second)
	require.Equal(t, 1, principals.columnCalls)
}

func TestResolvePermissionsOverridePrecedence(t *testing.T) {
	principals := &fakePrincipals{
		permissions: domain.PermissionAccess{
			RoleKeys: []string{"sites", "orders"},
			Overrides: []domain.PermissionOverride{
				{Key: "orders", Granted: false},
				{Key: "clients", Granted: true},
			},
		},
	}
	resolver := NewResolver(principals, newFakeCache(), nil)

	keys := resolver.ResolvePermissions(context.Background(), uuid.New())

	require.Equal(t, []string{"sites", "clients"}, keys)
}

func TestGuard(t *testing.T) {
	principals := &fakePrincipals{
		permissions: domain.PermissionAccess{RoleKeys: []string{"sites"}},
	}
	resolver := NewResolver(principals, newFakeCache(), nil)
	userID := uuid.New()

	require.NoError(t, resolver.Guard(context.Background(), userID, "sites"))
	require.ErrorIs(t, resolver.Guard(context.Background(), userID, "orders"), domain.ErrAccessDenied)
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(8, 20*time.Millisecond)
	cache.Set("k", []string{"a"})

	got, ok := cache.Get("k")
	require.True(t, ok)
	require.Equal(t, []string{"a"}, got)

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.Get("k")
	require.False(t, ok)
}
