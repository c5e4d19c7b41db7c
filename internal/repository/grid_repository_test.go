package repository

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/merchantops/gridview/internal/schema"
)

func siteQuery(t *testing.T) (*gridQuery, *schema.Entity) {
	t.Helper()
	registry := schema.DefaultRegistry()
	site, err := registry.Lookup("site")
	require.NoError(t, err)
	return newGridQuery(registry, site), site
}

func TestBuildWhereSubstringOperators(t *testing.T) {
	q, site := siteQuery(t)

	where := q.buildWhere(site, rootAlias, map[string]any{
		"website": map[string]any{"contains": "shop", "mode": "insensitive"},
	})

	require.Equal(t, `t.website ILIKE $1`, where)
	require.Equal(t, []any{`%shop%`}, q.b.args)
}

func TestBuildWhereLikeEscapesWildcards(t *testing.T) {
	q, site := siteQuery(t)

	q.buildWhere(site, rootAlias, map[string]any{
		"website": map[string]any{"startsWith": "50%_off"},
	})

	require.Equal(t, []any{`50\%\_off%`}, q.b.args)
}

func TestBuildWhereComparisonAndListOperators(t *testing.T) {
	q, site := siteQuery(t)

	where := q.buildWhere(site, rootAlias, map[string]any{
		"costPrice": map[string]any{"gte": 10, "lte": 20},
		"status":    map[string]any{"in": []any{"live", "paused"}},
	})

	require.Equal(t, `t.cost_price >= $1 AND t.cost_price <= $2 AND t.status IN ($3, $4)`, where)
	require.Equal(t, []any{10, 20, "live", "paused"}, q.b.args)
}

func TestBuildWhereNullChecks(t *testing.T) {
	q, site := siteQuery(t)

	where := q.buildWhere(site, rootAlias, map[string]any{
		"remark": nil,
	})
	require.Equal(t, `t.remark IS NULL`, where)

	q2, _ := siteQuery(t)
	where = q2.buildWhere(site, rootAlias, map[string]any{
		"NOT": map[string]any{"remark": nil},
	})
	require.Equal(t, `NOT (t.remark IS NULL)`, where)
}

func TestBuildWhereRelationJoins(t *testing.T) {
	q, site := siteQuery(t)

	where := q.buildWhere(site, rootAlias, map[string]any{
		"vendor": map[string]any{"name": map[string]any{"equals": "Acme", "mode": "insensitive"}},
	})

	require.Equal(t, `LOWER(vendor.name) = LOWER($1)`, where)
	require.Equal(t, " LEFT JOIN vendors vendor ON vendor.id = t.vendor_id", q.joinSQL())
}

func TestBuildWhereTwoHopRelationJoins(t *testing.T) {
	registry := schema.DefaultRegistry()
	order, err := registry.Lookup("order")
	require.NoError(t, err)
	q := newGridQuery(registry, order)

	where := q.buildWhere(order, rootAlias, map[string]any{
		"site": map[string]any{"vendor": map[string]any{"name": map[string]any{"equals": "Acme"}}},
	})

	require.Equal(t, `site_vendor.name = $1`, where)
	require.Equal(t,
		" LEFT JOIN sites site ON site.id = t.site_id"+
			" LEFT JOIN vendors site_vendor ON site_vendor.id = site.vendor_id",
		q.joinSQL())
}

func TestBuildWhereConnectors(t *testing.T) {
	q, site := siteQuery(t)

	where := q.buildWhere(site, rootAlias, map[string]any{
		"OR": []map[string]any{
			{"website": map[string]any{"contains": "a", "mode": "insensitive"}},
			{"remark": map[string]any{"contains": "b", "mode": "insensitive"}},
		},
	})

	require.Equal(t, `((t.website ILIKE $1) OR (t.remark ILIKE $2))`, where)
}

func TestBuildWhereCategoriesExistence(t *testing.T) {
	q, site := siteQuery(t)

	where := q.buildWhere(site, rootAlias, map[string]any{
		"categories": map[string]any{
			"some": map[string]any{"id": map[string]any{"in": []any{"c1", "c2"}}},
		},
	})

	require.Equal(t,
		`EXISTS (SELECT 1 FROM site_categories jt JOIN categories c ON c.id = jt.category_id WHERE jt.site_id = t.id AND c.id IN ($1, $2))`,
		where)
}

func TestBuildWhereManyRelationUsesDeclaredJoinColumns(t *testing.T) {
	registry, err := schema.NewRegistry([]*schema.Entity{
		{
			Name:  "article",
			Table: "articles",
			Columns: []schema.Column{
				{Name: "id", Kind: schema.KindString, SQLName: "id"},
			},
			Relations: []schema.Relation{
				{Name: "tags", Target: "tag", Many: true, JoinTable: "article_tags", JoinSource: "article_id", JoinTarget: "tag_id"},
			},
		},
		{
			Name:  "tag",
			Table: "tags",
			Columns: []schema.Column{
				{Name: "id", Kind: schema.KindString, SQLName: "id"},
				{Name: "name", Kind: schema.KindString, SQLName: "name"},
			},
		},
	})
	require.NoError(t, err)
	article, err := registry.Lookup("article")
	require.NoError(t, err)
	q := newGridQuery(registry, article)

	where := q.buildWhere(article, rootAlias, map[string]any{
		"tags": map[string]any{
			"some": map[string]any{"id": map[string]any{"in": []any{"t1"}}},
		},
	})

	require.Equal(t,
		`EXISTS (SELECT 1 FROM article_tags jt JOIN tags c ON c.id = jt.tag_id WHERE jt.article_id = t.id AND c.id IN ($1))`,
		where)
}

func TestBuildSelectAliasesDottedPaths(t *testing.T) {
	q, site := siteQuery(t)

	exprs, outputs := q.buildSelect(site, map[string]any{
		"id":      true,
		"website": true,
		"vendor": map[string]any{
			"select": map[string]any{"id": true, "name": true},
		},
	})

	require.Equal(t, []string{
		`t.id AS "id"`,
		`vendor.id AS "vendor.id"`,
		`vendor.name AS "vendor.name"`,
		`t.website AS "website"`,
	}, exprs)
	require.Equal(t, []string{"id", "vendor.id", "vendor.name", "website"}, outputs)
}

func TestBuildOrderByNestsAndDefaultsToAsc(t *testing.T) {
	q, site := siteQuery(t)

	orderBy := q.buildOrderBy(site, []map[string]any{
		{"costPrice": "desc"},
		{"vendor": map[string]any{"name": "asc"}},
		{"website": "mystery"},
	})

	require.Equal(t,
		`t.cost_price DESC NULLS LAST, vendor.name ASC NULLS LAST, t.website ASC NULLS LAST`,
		orderBy)
}
