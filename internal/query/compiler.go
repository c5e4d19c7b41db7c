package query

import (
	"regexp"
	"strings"

	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/schema"
)

// isoDatePattern recognizes ISO-8601-shaped string values. Schema-declared
// column types are authoritative for typed columns; the pattern is only a
// fallback guard against date-shaped strings stored in free-text columns.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}([T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?)?$`)

// Compiler translates sanitized filter trees, sort specs and projections
// into nested query descriptors, consulting the schema registry for
// relation paths. Compilation is pure and never errors on well-typed but
// unusable input; unusable pieces narrow to nothing instead.
type Compiler struct {
	registry *schema.Registry
}

// NewCompiler creates a compiler over the given registry.
func NewCompiler(registry *schema.Registry) *Compiler {
	return &Compiler{registry: registry}
}

// Request carries one compilation unit. Projection and Exclude are distinct
// modes: Projection selects exactly the named columns, ExcludeMode starts
// from the entity's full eligible projection and removes Exclude entries.
type Request struct {
	Projection  []string
	Exclude     []string
	ExcludeMode bool
	Filter      domain.FilterNode
	Sort        []domain.SortField
	Search      string
	// Allowed is the caller's resolved column allow-list. When present it
	// bounds the projection and sort, and it enumerates the string columns
	// a global search fans out across.
	Allowed []string
}

// Compile builds the query descriptor for one entity.
func (c *Compiler) Compile(entity *schema.Entity, req Request) domain.QueryDescriptor {
	descriptor := domain.QueryDescriptor{}

	projection := req.Projection
	if req.ExcludeMode {
		projection = ExcludePaths(schema.FullProjection(entity), req.Exclude)
	}
	sort := req.Sort
	if len(req.Allowed) > 0 {
		allowed := NewColumnSet(req.Allowed)
		projection = restrictPaths(projection, allowed)
		sort = restrictSort(sort, allowed)
	}
	descriptor.Select = c.buildSelect(entity, projection)

	where := c.CompileFilter(entity, req.Filter)
	if search := c.buildGlobalSearch(entity, req.Allowed, req.Search); search != nil {
		if where == nil {
			where = search
		} else {
			where = map[string]any{"AND": []map[string]any{where, search}}
		}
	}
	descriptor.Where = where

	descriptor.OrderBy = c.CompileSort(entity, sort)
	return descriptor
}

// CompileFilter lowers a sanitized filter tree into a nested where clause.
func (c *Compiler) CompileFilter(entity *schema.Entity, node domain.FilterNode) map[string]any {
	switch n := node.(type) {
	case nil:
		return nil
	case *domain.Connector:
		children := make([]map[string]any, 0, len(n.Children))
		for _, child := range n.Children {
			if compiled := c.CompileFilter(entity, child); compiled != nil {
				children = append(children, compiled)
			}
		}
		if len(children) == 0 {
			return nil
		}
		if n.Op == domain.ConnectorNot && len(children) == 1 {
			return map[string]any{string(n.Op): children[0]}
		}
		return map[string]any{string(n.Op): children}
	case *domain.Condition:
		return c.compileCondition(entity, n)
	}
	return nil
}

// CompileSort lowers sort fields through the same relation nesting as
// filters. Entries keep their client order; unknown columns and invalid
// directions drop silently.
func (c *Compiler) CompileSort(entity *schema.Entity, sort []domain.SortField) []map[string]any {
	if len(sort) == 0 {
		return nil
	}
	orderBy := make([]map[string]any, 0, len(sort))
	for _, field := range sort {
		direction, ok := domain.NormalizeDirection(string(field.Direction))
		if !ok {
			continue
		}
		table, column := schema.SplitPath(field.Column)
		chain, _, ok := c.registry.ResolvePath(entity, table, column)
		if !ok {
			continue
		}
		orderBy = append(orderBy, nestClause(chain, map[string]any{column: string(direction)}))
	}
	if len(orderBy) == 0 {
		return nil
	}
	return orderBy
}

// compileCondition lowers one condition. Unknown or unreachable columns
// compile to nothing, mirroring the sanitizer's silent-prune contract.
func (c *Compiler) compileCondition(entity *schema.Entity, cond *domain.Condition) map[string]any {
	if cond.Column == "categories" {
		return compileCategories(entity, cond)
	}

	table, column := schema.SplitPath(cond.Column)
	chain, owner, ok := c.registry.ResolvePath(entity, table, column)
	if !ok {
		return nil
	}
	columnDef, _ := owner.Column(column)

	// Null checks rewrite the whole condition regardless of which operator
	// carried the marker value.
	for _, clause := range cond.Clauses {
		switch clause.Value {
		case "isNull":
			return nestClause(chain, map[string]any{column: nil})
		case "isNotNull":
			return nestClause(chain, map[string]any{"NOT": map[string]any{column: nil}})
		}
	}

	ops := make(map[string]any, len(cond.Clauses))
	for _, clause := range cond.Clauses {
		switch clause.Operator {
		case "between":
			if bounds, ok := clause.Value.([]any); ok && len(bounds) == 2 {
				ops["gte"] = bounds[0]
				ops["lte"] = bounds[1]
			}
		case "hasSome":
			ops["hasSome"] = clause.Value
		case "isEmpty":
			ops["isEmpty"] = clause.Value
		case "mode":
			// Folded back in below only when string matching applies.
		default:
			ops[clause.Operator] = clause.Value
			if insensitiveMatch(columnDef, column, clause.Operator, clause.Value) {
				ops["mode"] = "insensitive"
			}
		}
	}
	if len(ops) == 0 {
		return nil
	}
	return nestClause(chain, map[string]any{column: ops})
}

// insensitiveMatch decides whether a string comparison is case-insensitive.
// The name column always matches insensitively; enum columns never do;
// otherwise substring operators and equals-on-free-string qualify. The
// schema-declared type wins over value shape: DateTime columns compare
// exactly, and the ISO-shape fallback only guards date-shaped strings kept
// in plain string columns.
func insensitiveMatch(def schema.Column, column, operator string, value any) bool {
	substring := operator == "contains" || operator == "startsWith" || operator == "endsWith"
	str, isString := value.(string)

	if column == "name" && (substring || (operator == "equals" && isString)) {
		return true
	}
	if def.IsEnum() {
		return false
	}
	if substring {
		return true
	}
	if operator == "equals" && isString && def.Kind == schema.KindString && !isoDatePattern.MatchString(str) {
		return true
	}
	return false
}

// compileCategories lowers a condition on the many-to-many categories
// relation into a relational existence clause over category ids.
func compileCategories(entity *schema.Entity, cond *domain.Condition) map[string]any {
	rel, ok := entity.Relation("categories")
	if !ok || !rel.Many {
		return nil
	}

	ids := make([]any, 0)
	for _, clause := range cond.Clauses {
		switch v := clause.Value.(type) {
		case []any:
			ids = append(ids, v...)
		case nil:
		default:
			ids = append(ids, v)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return map[string]any{"categories": map[string]any{"some": map[string]any{"id": map[string]any{"in": ids}}}}
}

// buildGlobalSearch ORs an insensitive contains across every allow-listed
// string column, skipping enums, identifier columns and the categories
// relation. The group is ANDed with the explicit filter by Compile.
func (c *Compiler) buildGlobalSearch(entity *schema.Entity, allowed []string, term string) map[string]any {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}

	conditions := make([]map[string]any, 0, len(allowed))
	for _, path := range allowed {
		table, column := schema.SplitPath(path)
		if column == "categories" || isIdentifierColumn(column) {
			continue
		}
		chain, owner, ok := c.registry.ResolvePath(entity, table, column)
		if !ok {
			continue
		}
		def, _ := owner.Column(column)
		if def.Kind != schema.KindString {
			continue
		}
		conditions = append(conditions, nestClause(chain, map[string]any{
			column: map[string]any{"contains": term, "mode": "insensitive"},
		}))
	}
	if len(conditions) == 0 {
		return nil
	}
	return map[string]any{"OR": conditions}
}

// buildSelect turns dotted-path columns into a nested select block.
// Relation selections always carry the relation's identifying id column.
func (c *Compiler) buildSelect(entity *schema.Entity, columns []string) map[string]any {
	if len(columns) == 0 {
		return nil
	}

	selects := map[string]any{"id": true}
	for _, path := range columns {
		table, column := schema.SplitPath(path)

		// A bare relation name selects its identifying columns.
		if table == "" {
			if rel, ok := entity.Relation(column); ok {
				relationSelect(selects, []schema.Relation{rel}, "id", "name")
				continue
			}
			if _, ok := entity.Column(column); ok {
				selects[column] = true
			}
			continue
		}

		chain, _, ok := c.registry.ResolvePath(entity, table, column)
		if !ok {
			continue
		}
		if len(chain) == 0 {
			selects[column] = true
			continue
		}
		relationSelect(selects, chain, "id", column)
	}
	return selects
}

// relationSelect merges columns into the nested select block of a relation
// chain, creating {relation: {select: {...}}} levels as needed.
func relationSelect(root map[string]any, chain []schema.Relation, columns ...string) {
	current := root
	for _, rel := range chain {
		nested, ok := current[rel.Name].(map[string]any)
		if !ok {
			nested = map[string]any{"select": map[string]any{"id": true}}
			current[rel.Name] = nested
		}
		current = nested["select"].(map[string]any)
	}
	for _, column := range columns {
		current[column] = true
	}
}

func nestClause(chain []schema.Relation, clause map[string]any) map[string]any {
	for i := len(chain) - 1; i >= 0; i-- {
		clause = map[string]any{chain[i].Name: clause}
	}
	return clause
}

// ExcludePaths removes the excluded paths from a full projection, keeping
// the remaining paths in their original order.
func ExcludePaths(full []string, excluded []string) []string {
	if len(excluded) == 0 {
		return full
	}
	drop := make(map[string]struct{}, len(excluded))
	for _, path := range excluded {
		drop[path] = struct{}{}
	}
	kept := make([]string, 0, len(full))
	for _, path := range full {
		if _, gone := drop[path]; gone {
			continue
		}
		kept = append(kept, path)
	}
	return kept
}

func restrictPaths(paths []string, allowed ColumnSet) []string {
	kept := make([]string, 0, len(paths))
	for _, path := range paths {
		if allowed.Has(path) {
			kept = append(kept, path)
		}
	}
	return kept
}

func restrictSort(sort []domain.SortField, allowed ColumnSet) []domain.SortField {
	kept := make([]domain.SortField, 0, len(sort))
	for _, field := range sort {
		if allowed.Has(field.Column) {
			kept = append(kept, field)
		}
	}
	return kept
}

func isIdentifierColumn(column string) bool {
	return column == "id" || strings.HasSuffix(column, "Id")
}
