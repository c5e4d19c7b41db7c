package listing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/merchantops/gridview/internal/access"
	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/schema"
	"github.com/merchantops/gridview/internal/views"
)

type fakePrincipals struct {
	columns     []string
	permissions []string
}

func (f *fakePrincipals) GetColumnAccess(ctx context.Context, userID uuid.UUID, table string) (domain.ColumnAccess, error) {
	return domain.ColumnAccess{RoleColumns: f.columns}, nil
}

func (f *fakePrincipals) GetPermissionAccess(ctx context.Context, userID uuid.UUID) (domain.PermissionAccess, error) {
	return domain.PermissionAccess{RoleKeys: f.permissions}, nil
}

type fakeGrid struct {
	countDescriptor domain.QueryDescriptor
	queryDescriptor domain.QueryDescriptor
	groupDescriptor domain.QueryDescriptor
	skip, take      int
	rows            []domain.OrderedRow
	total           int64
	groups          []domain.GroupBucket
}

func (f *fakeGrid) Count(ctx context.Context, entity string, descriptor domain.QueryDescriptor) (int64, error) {
	f.countDescriptor = descriptor
	return f.total, nil
}

func (f *fakeGrid) Query(ctx context.Context, entity string, descriptor domain.QueryDescriptor, skip, take int) ([]domain.OrderedRow, error) {
	f.queryDescriptor = descriptor
	f.skip, f.take = skip, take
	return f.rows, nil
}

func (f *fakeGrid) GroupCount(ctx context.Context, entity string, descriptor domain.QueryDescriptor, groupColumn string) ([]domain.GroupBucket, error) {
	f.groupDescriptor = descriptor
	return f.groups, nil
}

type fakeViewStore struct {
	views map[uuid.UUID]domain.View
}

func (f *fakeViewStore) GetByID(ctx context.Context, id uuid.UUID) (domain.View, error) {
	view, ok := f.views[id]
	if !ok {
		return domain.View{}, domain.ErrNotFound
	}
	return view, nil
}

func (f *fakeViewStore) GetByName(ctx context.Context, ownerID uuid.UUID, resource, name string) (domain.View, error) {
	for _, view := range f.views {
		if view.OwnerID == ownerID && view.ResourceTable == resource && view.Name == name {
			return view, nil
		}
	}
	return domain.View{}, domain.ErrNotFound
}

func (f *fakeViewStore) ListByResource(ctx context.Context, ownerID uuid.UUID, resource string) ([]domain.View, error) {
	var result []domain.View
	for _, view := range f.views {
		if view.OwnerID == ownerID && view.ResourceTable == resource {
			result = append(result, view)
		}
	}
	return result, nil
}

func (f *fakeViewStore) Create(ctx context.Context, view domain.View) (domain.View, error) {
	view.ID = uuid.New()
	f.views[view.ID] = view
	return view, nil
}

func (f *fakeViewStore) EnsureDefault(ctx context.Context, view domain.View) (domain.View, error) {
	if existing, err := f.GetByName(ctx, view.OwnerID, view.ResourceTable, view.Name); err == nil {
		return existing, nil
	}
	return f.Create(ctx, view)
}

func (f *fakeViewStore) Update(ctx context.Context, view domain.View) (domain.View, error) {
	f.views[view.ID] = view
	return view, nil
}

func (f *fakeViewStore) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.views, id)
	return nil
}

type fakeCategories struct{}

func (fakeCategories) ListBySiteIDs(ctx context.Context, siteIDs []uuid.UUID) (map[uuid.UUID][]domain.CategoryRef, error) {
	return map[uuid.UUID][]domain.CategoryRef{}, nil
}

func newTestService(t *testing.T, principals *fakePrincipals, grid *fakeGrid) *Service {
	t.Helper()
	registry := schema.DefaultRegistry()
	resolver := access.NewResolver(principals, access.NewCache(16, time.Minute), nil)
	viewService := views.NewService(&fakeViewStore{views: make(map[uuid.UUID]domain.View)}, registry, nil)
	loader := NewCategoryLoader(fakeCategories{})
	return NewService(registry, resolver, grid, viewService, loader, nil, Options{
		DefaultPageSize: 25,
		MaxPageSize:     100,
	})
}

func TestListDeniedWithoutPermission(t *testing.T) {
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website"},
		permissions: []string{"orders"},
	}, &fakeGrid{})

	_, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
	})

	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestListDeniedWithoutColumns(t *testing.T) {
	service := newTestService(t, &fakePrincipals{
		permissions: []string{"sites"},
	}, &fakeGrid{})

	_, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
	})

	require.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestListUnknownResource(t *testing.T) {
	service := newTestService(t, &fakePrincipals{}, &fakeGrid{})

	_, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "warehouse",
	})

	require.ErrorIs(t, err, domain.ErrUnknownEntity)
}

func TestListCountAndDataShareTheWherePredicate(t *testing.T) {
	grid := &fakeGrid{total: 7}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website", "costPrice"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website", "costPrice"},
		Filter:   map[string]any{"website": map[string]any{"contains": "shop"}},
	})

	require.NoError(t, err)
	require.Equal(t, int64(7), result.TotalCount)
	require.Equal(t, grid.countDescriptor.Where, grid.queryDescriptor.Where)
	require.NotNil(t, grid.countDescriptor.Where)
}

func TestListIntersectsColumnsWithAllowList(t *testing.T) {
	grid := &fakeGrid{}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website", "costPrice", "secretColumn"},
	})

	require.NoError(t, err)
	require.Equal(t, []string{"website"}, result.AvailableColumns)
}

func TestListForbiddenFilterColumnDropsSilently(t *testing.T) {
	grid := &fakeGrid{}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website"},
		Filter:   map[string]any{"costPrice": map[string]any{"gte": float64(100)}},
	})

	require.NoError(t, err)
	require.Nil(t, grid.queryDescriptor.Where)
	require.Nil(t, result.AppliedFilters)
}

func TestListPageNormalization(t *testing.T) {
	grid := &fakeGrid{}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website"},
		Page:     3,
		PageSize: 5000,
	})

	require.NoError(t, err)
	require.Equal(t, 3, result.Page)
	require.Equal(t, 100, result.PageSize, "page size is capped")
	require.Equal(t, 200, grid.skip)
	require.Equal(t, 100, grid.take)
}

func TestListGroupedIsTagged(t *testing.T) {
	grid := &fakeGrid{
		total:  10,
		groups: []domain.GroupBucket{{Key: "live", Count: 6}, {Key: "draft", Count: 4}},
	}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website", "status"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website", "status"},
		GroupBy:  "status",
	})

	require.NoError(t, err)
	require.Equal(t, domain.ResultGrouped, result.Kind)
	require.Len(t, result.Groups, 2)
	require.Empty(t, result.Rows)
	require.Equal(t, grid.countDescriptor.Where, grid.groupDescriptor.Where)
}

func TestListRowsCarryAvailableColumnOrder(t *testing.T) {
	grid := &fakeGrid{
		rows: []domain.OrderedRow{{
			Columns: []string{"website", "costPrice"},
			Values:  map[string]any{"website": "shop.example", "costPrice": 10},
		}},
	}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website", "costPrice"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"costPrice", "website"},
	})

	require.NoError(t, err)
	require.Equal(t, []string{"costPrice", "website"}, result.AvailableColumns)
	require.Equal(t, []string{"costPrice", "website"}, result.Rows[0].Columns)
}

func TestListEchoesAppliedFiltersAndSort(t *testing.T) {
	grid := &fakeGrid{}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website", "costPrice"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website"},
		Filter:   map[string]any{"website": map[string]any{"contains": "shop"}},
		Sort: []domain.SortField{
			{Column: "costPrice", Direction: domain.SortDesc},
			{Column: "secretColumn", Direction: domain.SortAsc},
		},
	})

	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"website": map[string]any{"contains": "shop"},
	}, result.AppliedFilters)
	require.Equal(t, []domain.SortField{{Column: "costPrice", Direction: domain.SortDesc}}, result.AppliedSort)
}

func TestListSortOutsideAllowListIsPruned(t *testing.T) {
	grid := &fakeGrid{}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website"},
		Sort:     []domain.SortField{{Column: "costPrice", Direction: domain.SortDesc}},
	})

	require.NoError(t, err)
	require.Nil(t, grid.queryDescriptor.OrderBy)
	require.Empty(t, result.AppliedSort)
}

func TestListExcludeModeIntersectsWithAllowList(t *testing.T) {
	grid := &fakeGrid{
		rows: []domain.OrderedRow{{
			Columns: []string{"website"},
			Values:  map[string]any{"website": "shop.example"},
		}},
	}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website", "costPrice"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:      uuid.New(),
		Resource:    "site",
		ExcludeMode: true,
		Exclude:     []string{"costPrice"},
	})

	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": true, "website": true}, grid.queryDescriptor.Select)
	require.Equal(t, []string{"website"}, result.AvailableColumns)
	require.Equal(t, map[string]string{"website": "String"}, result.AvailableColumnTypes)
	require.Equal(t, []string{"website"}, result.Rows[0].Columns)
}

func TestListExcludeModeWithoutExclusionsStaysBounded(t *testing.T) {
	grid := &fakeGrid{}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:      uuid.New(),
		Resource:    "site",
		ExcludeMode: true,
	})

	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": true, "website": true}, grid.queryDescriptor.Select)
	require.Equal(t, []string{"website"}, result.AvailableColumns)
}

func TestListViewSummariesIncludeDefault(t *testing.T) {
	grid := &fakeGrid{}
	service := newTestService(t, &fakePrincipals{
		columns:     []string{"website"},
		permissions: []string{"sites"},
	}, grid)

	result, err := service.List(context.Background(), Request{
		UserID:   uuid.New(),
		Resource: "site",
		Columns:  []string{"website"},
	})

	require.NoError(t, err)
	require.Len(t, result.Views, 1)
	require.Equal(t, domain.DefaultViewName, result.Views[0].Name)
}
