package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/schema"
)

func testCompiler(t *testing.T) (*Compiler, *schema.Registry) {
	t.Helper()
	registry := schema.DefaultRegistry()
	return NewCompiler(registry), registry
}

func lookupEntity(t *testing.T, registry *schema.Registry, name string) *schema.Entity {
	t.Helper()
	entity, err := registry.Lookup(name)
	require.NoError(t, err)
	return entity
}

func TestCompileAllowListedFilterWithSort(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	allowed := []string{"website", "costPrice", "vendor.name"}
	filter := Sanitize(map[string]any{
		"AND": []any{
			map[string]any{"website": map[string]any{"contains": "shop"}},
			map[string]any{"secretColumn": map[string]any{"equals": float64(1)}},
		},
	}, NewColumnSet(allowed))

	descriptor := compiler.Compile(site, Request{
		Filter:  filter,
		Sort:    []domain.SortField{{Column: "costPrice", Direction: domain.SortDesc}},
		Allowed: allowed,
	})

	require.Equal(t, map[string]any{
		"AND": []map[string]any{
			{"website": map[string]any{"contains": "shop", "mode": "insensitive"}},
		},
	}, descriptor.Where)
	require.Equal(t, []map[string]any{{"costPrice": "desc"}}, descriptor.OrderBy)
}

func TestCompileGlobalSearchFansOutOverStringColumns(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	descriptor := compiler.Compile(site, Request{
		Search:  "acme",
		Allowed: []string{"website", "remark"},
	})

	require.Equal(t, map[string]any{
		"OR": []map[string]any{
			{"website": map[string]any{"contains": "acme", "mode": "insensitive"}},
			{"remark": map[string]any{"contains": "acme", "mode": "insensitive"}},
		},
	}, descriptor.Where)
}

func TestCompileGlobalSearchAndsWithExplicitFilter(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	filter := Sanitize(map[string]any{
		"website": map[string]any{"equals": "x"},
	}, NewColumnSet([]string{"website"}))

	descriptor := compiler.Compile(site, Request{
		Filter:  filter,
		Search:  "acme",
		Allowed: []string{"website"},
	})

	and, ok := descriptor.Where["AND"].([]map[string]any)
	require.True(t, ok, "explicit filter and search group must be ANDed")
	require.Len(t, and, 2)
	require.Contains(t, and[1], "OR")
}

func TestCompileGlobalSearchSkipsEnumsIdentifiersAndCategories(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	descriptor := compiler.Compile(site, Request{
		Search:  "x",
		Allowed: []string{"status", "vendorId", "id", "categories", "costPrice"},
	})

	require.Nil(t, descriptor.Where)
}

func TestCompileDottedPathNestsUnderRelation(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	where := compiler.CompileFilter(site, &domain.Condition{
		Column:  "vendor.name",
		Clauses: []domain.OperatorClause{{Operator: "contains", Value: "Acme"}},
	})

	require.Equal(t, map[string]any{
		"vendor": map[string]any{
			"name": map[string]any{"contains": "Acme", "mode": "insensitive"},
		},
	}, where)
}

func TestCompileTwoHopPathThroughSite(t *testing.T) {
	compiler, registry := testCompiler(t)
	order := lookupEntity(t, registry, "order")

	where := compiler.CompileFilter(order, &domain.Condition{
		Column:  "vendor.name",
		Clauses: []domain.OperatorClause{{Operator: "equals", Value: "Acme"}},
	})

	require.Equal(t, map[string]any{
		"site": map[string]any{
			"vendor": map[string]any{
				"name": map[string]any{"equals": "Acme", "mode": "insensitive"},
			},
		},
	}, where)
}

func TestCompileUnknownPathDropsSilently(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	where := compiler.CompileFilter(site, &domain.Condition{
		Column:  "warehouse.name",
		Clauses: []domain.OperatorClause{{Operator: "equals", Value: "x"}},
	})

	require.Nil(t, where)
}

func TestCompileEnumEqualsStaysExact(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	where := compiler.CompileFilter(site, &domain.Condition{
		Column:  "status",
		Clauses: []domain.OperatorClause{{Operator: "equals", Value: "Active"}},
	})

	require.Equal(t, map[string]any{
		"status": map[string]any{"equals": "Active"},
	}, where)
}

func TestCompileNullMarkersRewriteTheCondition(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	isNull := compiler.CompileFilter(site, &domain.Condition{
		Column:  "remark",
		Clauses: []domain.OperatorClause{{Operator: "gte", Value: "isNull"}},
	})
	require.Equal(t, map[string]any{"remark": nil}, isNull)

	isNotNull := compiler.CompileFilter(site, &domain.Condition{
		Column:  "remark",
		Clauses: []domain.OperatorClause{{Operator: "equals", Value: "isNotNull"}},
	})
	require.Equal(t, map[string]any{
		"NOT": map[string]any{"remark": nil},
	}, isNotNull)
}

func TestCompileBetweenBecomesBoundedRange(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	where := compiler.CompileFilter(site, &domain.Condition{
		Column:  "costPrice",
		Clauses: []domain.OperatorClause{{Operator: "between", Value: []any{float64(10), float64(20)}}},
	})

	require.Equal(t, map[string]any{
		"costPrice": map[string]any{"gte": float64(10), "lte": float64(20)},
	}, where)
}

func TestCompileCategoriesBecomesExistenceClause(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	where := compiler.CompileFilter(site, &domain.Condition{
		Column:  "categories",
		Clauses: []domain.OperatorClause{{Operator: "in", Value: []any{"c1", "c2"}}},
	})

	require.Equal(t, map[string]any{
		"categories": map[string]any{
			"some": map[string]any{"id": map[string]any{"in": []any{"c1", "c2"}}},
		},
	}, where)
}

func TestCompileDateShapedStringStaysExact(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	where := compiler.CompileFilter(site, &domain.Condition{
		Column:  "remark",
		Clauses: []domain.OperatorClause{{Operator: "equals", Value: "2024-01-02"}},
	})

	require.Equal(t, map[string]any{
		"remark": map[string]any{"equals": "2024-01-02"},
	}, where)
}

func TestCompileDateTimeColumnComparesExactly(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	where := compiler.CompileFilter(site, &domain.Condition{
		Column:  "createdAt",
		Clauses: []domain.OperatorClause{{Operator: "equals", Value: "recently"}},
	})

	require.Equal(t, map[string]any{
		"createdAt": map[string]any{"equals": "recently"},
	}, where)
}

func TestCompileNameColumnAlwaysInsensitive(t *testing.T) {
	compiler, registry := testCompiler(t)
	vendor := lookupEntity(t, registry, "vendor")

	where := compiler.CompileFilter(vendor, &domain.Condition{
		Column:  "name",
		Clauses: []domain.OperatorClause{{Operator: "equals", Value: "Acme"}},
	})

	require.Equal(t, map[string]any{
		"name": map[string]any{"equals": "Acme", "mode": "insensitive"},
	}, where)
}

func TestCompileSortNestsAndDropsInvalid(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	orderBy := compiler.CompileSort(site, []domain.SortField{
		{Column: "vendor.name", Direction: domain.SortAsc},
		{Column: "website", Direction: "sideways"},
		{Column: "warehouse.name", Direction: domain.SortDesc},
		{Column: "costPrice", Direction: domain.SortDesc},
	})

	require.Equal(t, []map[string]any{
		{"vendor": map[string]any{"name": "asc"}},
		{"costPrice": "desc"},
	}, orderBy)
}

func TestCompileSelectExactMode(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	descriptor := compiler.Compile(site, Request{Projection: []string{"website", "vendor.name"}})

	require.Equal(t, map[string]any{
		"id":      true,
		"website": true,
		"vendor": map[string]any{
			"select": map[string]any{"id": true, "name": true},
		},
	}, descriptor.Select)
}

func TestCompileSelectExcludeMode(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	descriptor := compiler.Compile(site, Request{
		ExcludeMode: true,
		Exclude:     []string{"remark", "vendor.name", "sellPrice", "vendorId"},
	})

	require.NotContains(t, descriptor.Select, "remark")
	require.NotContains(t, descriptor.Select, "sellPrice")
	require.NotContains(t, descriptor.Select, "vendorId")
	require.Equal(t, true, descriptor.Select["website"])
	require.Equal(t, true, descriptor.Select["costPrice"])

	vendorSelect, ok := descriptor.Select["vendor"].(map[string]any)
	require.True(t, ok, "relation sub-select keeps identifying columns")
	require.Equal(t, map[string]any{"select": map[string]any{"id": true}}, vendorSelect)
}

func TestCompileExcludeModeBoundByAllowList(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	descriptor := compiler.Compile(site, Request{
		ExcludeMode: true,
		Allowed:     []string{"website"},
	})

	require.Equal(t, map[string]any{"id": true, "website": true}, descriptor.Select)
}

func TestCompileDropsSortOutsideAllowList(t *testing.T) {
	compiler, registry := testCompiler(t)
	site := lookupEntity(t, registry, "site")

	descriptor := compiler.Compile(site, Request{
		Sort:    []domain.SortField{{Column: "costPrice", Direction: domain.SortDesc}},
		Allowed: []string{"website"},
	})

	require.Nil(t, descriptor.OrderBy)
}
