package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/schema"
)

const rootAlias = "t"

// gridRepository executes compiled query descriptors as parameterized SQL.
type gridRepository struct {
	pool     *pgxpool.Pool
	registry *schema.Registry
}

// NewGridRepository creates a descriptor executor over pgx.
func NewGridRepository(pool *pgxpool.Pool, registry *schema.Registry) GridRepository {
	return &gridRepository{pool: pool, registry: registry}
}

// Count runs the count side of a descriptor. The where predicate is built
// from the same descriptor as Query so the two stay consistent.
func (r *gridRepository) Count(ctx context.Context, entity string, descriptor domain.QueryDescriptor) (int64, error) {
	root, err := r.registry.Lookup(entity)
	if err != nil {
		return 0, err
	}

	q := newGridQuery(r.registry, root)
	where := q.buildWhere(root, rootAlias, descriptor.Where)

	sql := "SELECT COUNT(*) FROM " + root.Table + " " + rootAlias + q.joinSQL()
	if where != "" {
		sql += " WHERE " + where
	}

	var total int64
	if err := r.pool.QueryRow(ctx, sql, q.b.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return total, nil
}

// Query runs the bounded data side of a descriptor.
func (r *gridRepository) Query(ctx context.Context, entity string, descriptor domain.QueryDescriptor, skip, take int) ([]domain.OrderedRow, error) {
	root, err := r.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}

	q := newGridQuery(r.registry, root)
	selects, outputs := q.buildSelect(root, descriptor.Select)
	where := q.buildWhere(root, rootAlias, descriptor.Where)
	orderBy := q.buildOrderBy(root, descriptor.OrderBy)

	sql := "SELECT " + strings.Join(selects, ", ") + " FROM " + root.Table + " " + rootAlias + q.joinSQL()
	if where != "" {
		sql += " WHERE " + where
	}
	if orderBy != "" {
		sql += " ORDER BY " + orderBy
	}
	if take <= 0 {
		take = 25
	}
	if skip < 0 {
		skip = 0
	}
	sql += fmt.Sprintf(" LIMIT %s OFFSET %s", q.b.placeholder(q.b.addArg(take)), q.b.placeholder(q.b.addArg(skip)))

	rows, err := r.pool.Query(ctx, sql, q.b.args...)
	if err != nil {
		return nil, fmt.Errorf("execute grid query: %w", err)
	}
	defer rows.Close()

	result := make([]domain.OrderedRow, 0, take)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read grid row: %w", err)
		}
		row := domain.OrderedRow{Columns: outputs, Values: make(map[string]any, len(outputs))}
		for i, key := range outputs {
			if i < len(values) {
				row.Values[key] = normalizeValue(values[i])
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate grid rows: %w", err)
	}
	return result, nil
}

// GroupCount aggregates row counts per distinct value of one root column,
// constrained by the descriptor's where predicate.
func (r *gridRepository) GroupCount(ctx context.Context, entity string, descriptor domain.QueryDescriptor, groupColumn string) ([]domain.GroupBucket, error) {
	root, err := r.registry.Lookup(entity)
	if err != nil {
		return nil, err
	}
	column, ok := root.Column(groupColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", domain.ErrUnknownEntity, entity, groupColumn)
	}

	q := newGridQuery(r.registry, root)
	where := q.buildWhere(root, rootAlias, descriptor.Where)

	expr := rootAlias + "." + column.SQLName
	sql := "SELECT " + expr + ", COUNT(*) FROM " + root.Table + " " + rootAlias + q.joinSQL()
	if where != "" {
		sql += " WHERE " + where
	}
	sql += " GROUP BY " + expr + " ORDER BY COUNT(*) DESC, " + expr

	rows, err := r.pool.Query(ctx, sql, q.b.args...)
	if err != nil {
		return nil, fmt.Errorf("execute group query: %w", err)
	}
	defer rows.Close()

	buckets := make([]domain.GroupBucket, 0)
	for rows.Next() {
		var bucket domain.GroupBucket
		if err := rows.Scan(&bucket.Key, &bucket.Count); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		bucket.Key = normalizeValue(bucket.Key)
		buckets = append(buckets, bucket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group rows: %w", err)
	}
	return buckets, nil
}

type sqlBuilder struct {
	args []any
}

func newSQLBuilder() *sqlBuilder {
	return &sqlBuilder{args: make([]any, 0)}
}

func (b *sqlBuilder) addArg(value any) int {
	b.args = append(b.args, value)
	return len(b.args)
}

func (b *sqlBuilder) placeholder(idx int) string {
	return fmt.Sprintf("$%d", idx)
}

type joinClause struct {
	alias string
	sql   string
}

// gridQuery accumulates joins and arguments while a descriptor is lowered
// into SQL. All descriptor maps are walked in sorted key order so the
// generated SQL is deterministic.
type gridQuery struct {
	b        *sqlBuilder
	registry *schema.Registry
	root     *schema.Entity
	joins    []joinClause
	joinIdx  map[string]string
}

func newGridQuery(registry *schema.Registry, root *schema.Entity) *gridQuery {
	return &gridQuery{
		b:        newSQLBuilder(),
		registry: registry,
		root:     root,
		joinIdx:  make(map[string]string),
	}
}

func (q *gridQuery) joinSQL() string {
	var sb strings.Builder
	for _, join := range q.joins {
		sb.WriteString(" ")
		sb.WriteString(join.sql)
	}
	return sb.String()
}

// ensureJoin adds a LEFT JOIN for a single-valued relation once and returns
// its alias. path identifies the relation chain from the root.
func (q *gridQuery) ensureJoin(parentAlias, path string, rel schema.Relation) (string, *schema.Entity) {
	target, _ := q.registry.Lookup(rel.Target)
	if alias, ok := q.joinIdx[path]; ok {
		return alias, target
	}
	alias := strings.ReplaceAll(path, ".", "_")
	q.joinIdx[path] = alias
	q.joins = append(q.joins, joinClause{
		alias: alias,
		sql:   fmt.Sprintf("LEFT JOIN %s %s ON %s.id = %s.%s", target.Table, alias, alias, parentAlias, rel.ForeignKey),
	})
	return alias, target
}

// buildSelect lowers a nested select block into SQL select expressions and
// the ordered output keys they map to. Relation selections produce dotted
// output keys named after the terminal relation, matching the dotted paths
// clients use.
func (q *gridQuery) buildSelect(entity *schema.Entity, selects map[string]any) (exprs []string, outputs []string) {
	if len(selects) == 0 {
		selects = map[string]any{"id": true}
	}

	var walk func(e *schema.Entity, alias, path string, block map[string]any)
	walk = func(e *schema.Entity, alias, path string, block map[string]any) {
		for _, key := range sortedKeys(block) {
			value := block[key]
			if rel, ok := e.Relation(key); ok {
				if rel.Many {
					// Many-valued relations are hydrated in batch after the
					// main query.
					continue
				}
				nested, ok := value.(map[string]any)
				if !ok {
					continue
				}
				inner, ok := nested["select"].(map[string]any)
				if !ok {
					continue
				}
				joinPath := key
				if path != "" {
					joinPath = path + "." + key
				}
				joinAlias, target := q.ensureJoin(alias, joinPath, rel)
				walk(target, joinAlias, joinPath, inner)
				continue
			}

			column, ok := e.Column(key)
			if !ok {
				continue
			}
			output := key
			if path != "" {
				segments := strings.Split(path, ".")
				output = segments[len(segments)-1] + "." + key
			}
			exprs = append(exprs, fmt.Sprintf("%s.%s AS %q", alias, column.SQLName, output))
			outputs = append(outputs, output)
		}
	}

	walk(entity, rootAlias, "", selects)
	return exprs, outputs
}

// buildWhere lowers a nested where block into one SQL predicate.
func (q *gridQuery) buildWhere(entity *schema.Entity, alias string, where map[string]any) string {
	return strings.Join(q.whereClauses(entity, alias, "", where), " AND ")
}

func (q *gridQuery) whereClauses(entity *schema.Entity, alias, path string, where map[string]any) []string {
	clauses := make([]string, 0, len(where))
	for _, key := range sortedKeys(where) {
		value := where[key]
		switch {
		case key == "AND" || key == "OR":
			if grouped := q.connectorClause(entity, alias, path, key, value); grouped != "" {
				clauses = append(clauses, grouped)
			}
		case key == "NOT":
			child, ok := value.(map[string]any)
			if !ok {
				continue
			}
			inner := q.whereClauses(entity, alias, path, child)
			if len(inner) > 0 {
				clauses = append(clauses, "NOT ("+strings.Join(inner, " AND ")+")")
			}
		default:
			if rel, ok := entity.Relation(key); ok {
				if clause := q.relationClause(entity, alias, path, rel, value); clause != "" {
					clauses = append(clauses, clause)
				}
				continue
			}
			column, ok := entity.Column(key)
			if !ok {
				continue
			}
			if clause := q.columnClause(alias, column, value); clause != "" {
				clauses = append(clauses, clause)
			}
		}
	}
	return clauses
}

func (q *gridQuery) connectorClause(entity *schema.Entity, alias, path, op string, value any) string {
	children := asObjectList(value)
	groups := make([]string, 0, len(children))
	for _, child := range children {
		inner := q.whereClauses(entity, alias, path, child)
		if len(inner) == 0 {
			continue
		}
		groups = append(groups, "("+strings.Join(inner, " AND ")+")")
	}
	if len(groups) == 0 {
		return ""
	}
	if len(groups) == 1 {
		return groups[0]
	}
	return "(" + strings.Join(groups, " "+op+" ") + ")"
}

func (q *gridQuery) relationClause(entity *schema.Entity, alias, path string, rel schema.Relation, value any) string {
	nested, ok := value.(map[string]any)
	if !ok {
		return ""
	}

	if rel.Many {
		return q.manyRelationClause(alias, rel, nested)
	}

	joinPath := rel.Name
	if path != "" {
		joinPath = path + "." + rel.Name
	}
	joinAlias, target := q.ensureJoin(alias, joinPath, rel)
	inner := q.whereClauses(target, joinAlias, joinPath, nested)
	return strings.Join(inner, " AND ")
}

// manyRelationClause compiles some/none quantifiers over a many-to-many
// relation into EXISTS subqueries against the join table.
func (q *gridQuery) manyRelationClause(alias string, rel schema.Relation, value map[string]any) string {
	target, _ := q.registry.Lookup(rel.Target)

	build := func(nested map[string]any) string {
		sub := fmt.Sprintf("SELECT 1 FROM %s jt JOIN %s c ON c.id = jt.%s WHERE jt.%s = %s.id",
			rel.JoinTable, target.Table, rel.JoinTarget, rel.JoinSource, alias)
		idFilter, _ := nested["id"].(map[string]any)
		if in, ok := idFilter["in"].([]any); ok && len(in) > 0 {
			placeholders := make([]string, len(in))
			for i, id := range in {
				placeholders[i] = q.b.placeholder(q.b.addArg(id))
			}
			sub += " AND c.id IN (" + strings.Join(placeholders, ", ") + ")"
		}
		return sub
	}

	if nested, ok := value["some"].(map[string]any); ok {
		return "EXISTS (" + build(nested) + ")"
	}
	if nested, ok := value["none"].(map[string]any); ok {
		return "NOT EXISTS (" + build(nested) + ")"
	}
	if empty, ok := value["isEmpty"].(bool); ok {
		clause := fmt.Sprintf("EXISTS (SELECT 1 FROM %s jt WHERE jt.%s = %s.id)", rel.JoinTable, rel.JoinSource, alias)
		if empty {
			return "NOT " + clause
		}
		return clause
	}
	return ""
}

// columnClause compiles one column's operator map into SQL.
func (q *gridQuery) columnClause(alias string, column schema.Column, value any) string {
	expr := alias + "." + column.SQLName

	ops, ok := value.(map[string]any)
	if !ok {
		if value == nil {
			return expr + " IS NULL"
		}
		return expr + " = " + q.b.placeholder(q.b.addArg(value))
	}

	insensitive := false
	if mode, ok := ops["mode"].(string); ok && mode == "insensitive" {
		insensitive = true
	}

	fragments := make([]string, 0, len(ops))
	for _, op := range sortedKeys(ops) {
		v := ops[op]
		switch op {
		case "mode":
		case "equals":
			if v == nil {
				fragments = append(fragments, expr+" IS NULL")
			} else if insensitive {
				fragments = append(fragments, "LOWER("+expr+") = LOWER("+q.b.placeholder(q.b.addArg(v))+")")
			} else {
				fragments = append(fragments, expr+" = "+q.b.placeholder(q.b.addArg(v)))
			}
		case "not":
			if v == nil {
				fragments = append(fragments, expr+" IS NOT NULL")
			} else {
				fragments = append(fragments, expr+" <> "+q.b.placeholder(q.b.addArg(v)))
			}
		case "in":
			fragments = append(fragments, q.listClause(expr, v, false))
		case "notIn":
			fragments = append(fragments, q.listClause(expr, v, true))
		case "lt":
			fragments = append(fragments, expr+" < "+q.b.placeholder(q.b.addArg(v)))
		case "lte":
			fragments = append(fragments, expr+" <= "+q.b.placeholder(q.b.addArg(v)))
		case "gt":
			fragments = append(fragments, expr+" > "+q.b.placeholder(q.b.addArg(v)))
		case "gte":
			fragments = append(fragments, expr+" >= "+q.b.placeholder(q.b.addArg(v)))
		case "contains":
			fragments = append(fragments, q.patternClause(expr, v, insensitive, "%", "%"))
		case "startsWith":
			fragments = append(fragments, q.patternClause(expr, v, insensitive, "", "%"))
		case "endsWith":
			fragments = append(fragments, q.patternClause(expr, v, insensitive, "%", ""))
		}
	}

	fragments = compactStrings(fragments)
	return strings.Join(fragments, " AND ")
}

func (q *gridQuery) listClause(expr string, value any, negated bool) string {
	values, ok := value.([]any)
	if !ok || len(values) == 0 {
		return ""
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = q.b.placeholder(q.b.addArg(v))
	}
	op := " IN ("
	if negated {
		op = " NOT IN ("
	}
	return expr + op + strings.Join(placeholders, ", ") + ")"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (q *gridQuery) patternClause(expr string, value any, insensitive bool, prefix, suffix string) string {
	term, ok := value.(string)
	if !ok {
		return ""
	}
	pattern := prefix + likeEscaper.Replace(term) + suffix
	op := " LIKE "
	if insensitive {
		op = " ILIKE "
	}
	return expr + op + q.b.placeholder(q.b.addArg(pattern))
}

// buildOrderBy lowers nested orderBy entries, preserving their order.
func (q *gridQuery) buildOrderBy(entity *schema.Entity, orderBy []map[string]any) string {
	terms := make([]string, 0, len(orderBy))
	for _, entry := range orderBy {
		if term := q.orderTerm(entity, rootAlias, "", entry); term != "" {
			terms = append(terms, term)
		}
	}
	return strings.Join(terms, ", ")
}

func (q *gridQuery) orderTerm(entity *schema.Entity, alias, path string, entry map[string]any) string {
	for _, key := range sortedKeys(entry) {
		value := entry[key]
		if rel, ok := entity.Relation(key); ok && !rel.Many {
			nested, ok := value.(map[string]any)
			if !ok {
				continue
			}
			joinPath := rel.Name
			if path != "" {
				joinPath = path + "." + rel.Name
			}
			joinAlias, target := q.ensureJoin(alias, joinPath, rel)
			if term := q.orderTerm(target, joinAlias, joinPath, nested); term != "" {
				return term
			}
			continue
		}
		column, ok := entity.Column(key)
		if !ok {
			continue
		}
		direction := "ASC"
		if dir, ok := value.(string); ok && strings.EqualFold(dir, "desc") {
			direction = "DESC"
		}
		return alias + "." + column.SQLName + " " + direction + " NULLS LAST"
	}
	return ""
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func asObjectList(value any) []map[string]any {
	switch v := value.(type) {
	case []map[string]any:
		return v
	case []any:
		children := make([]map[string]any, 0, len(v))
		for _, raw := range v {
			if child, ok := raw.(map[string]any); ok {
				children = append(children, child)
			}
		}
		return children
	case map[string]any:
		return []map[string]any{v}
	}
	return nil
}

func compactStrings(values []string) []string {
	kept := values[:0]
	for _, v := range values {
		if v != "" {
			kept = append(kept, v)
		}
	}
	return kept
}

// normalizeValue maps pgx scan values onto JSON-friendly types.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case [16]byte:
		return uuid.UUID(v).String()
	default:
		return value
	}
}
