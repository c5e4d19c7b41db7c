// Package schema holds the static, introspectable description of every
// queryable entity: scalar and enum columns, and one-hop forward relations.
// The registry is pure lookup and safe for concurrent use.
package schema

import (
	"fmt"

	"github.com/merchantops/gridview/internal/domain"
)

// ColumnKind is the semantic type of an entity column.
type ColumnKind string

const (
	KindString   ColumnKind = "String"
	KindInt      ColumnKind = "Int"
	KindBigInt   ColumnKind = "BigInt"
	KindBoolean  ColumnKind = "Boolean"
	KindDateTime ColumnKind = "DateTime"
	KindEnum     ColumnKind = "Enum"
)

// Column describes one scalar or enum field of an entity.
type Column struct {
	Name     string
	Kind     ColumnKind
	Enum     string // enum type name when Kind == KindEnum
	Nullable bool
	List     bool
	SQLName  string // physical column name
}

// IsEnum reports whether the column carries a declared enum type.
func (c Column) IsEnum() bool {
	return c.Kind == KindEnum
}

// Relation is a one-hop forward reference to another entity.
type Relation struct {
	Name       string // field name used in dotted paths, e.g. "vendor"
	Target     string // target entity name
	Many       bool   // true for to-many relations (categories)
	ForeignKey string // physical FK column on the owning table
	JoinTable  string // physical join table for to-many relations
	JoinSource string // join-table column referencing the owning row
	JoinTarget string // join-table column referencing the target row
}

// Entity is the registered description of one queryable entity.
type Entity struct {
	Name      string
	Table     string // physical table name
	Columns   []Column
	Relations []Relation

	columnIndex   map[string]Column
	relationIndex map[string]Relation
}

// Column looks up a scalar column by its field name.
func (e *Entity) Column(name string) (Column, bool) {
	c, ok := e.columnIndex[name]
	return c, ok
}

// Relation looks up a forward relation by its field name.
func (e *Entity) Relation(name string) (Relation, bool) {
	r, ok := e.relationIndex[name]
	return r, ok
}

// ColumnNames returns the declared column names in declaration order.
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// Registry is the set of registered entities.
type Registry struct {
	entities map[string]*Entity
	order    []string
}

// NewRegistry indexes the provided entities. Duplicate names and relations
// pointing at unregistered targets are configuration mistakes and fail fast.
func NewRegistry(entities []*Entity) (*Registry, error) {
	r := &Registry{entities: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if _, exists := r.entities[e.Name]; exists {
			return nil, fmt.Errorf("schema registry: duplicate entity %q", e.Name)
		}
		e.columnIndex = make(map[string]Column, len(e.Columns))
		for _, c := range e.Columns {
			e.columnIndex[c.Name] = c
		}
		e.relationIndex = make(map[string]Relation, len(e.Relations))
		for _, rel := range e.Relations {
			e.relationIndex[rel.Name] = rel
		}
		r.entities[e.Name] = e
		r.order = append(r.order, e.Name)
	}

	for _, e := range r.entities {
		for _, rel := range e.Relations {
			if _, ok := r.entities[rel.Target]; !ok {
				return nil, fmt.Errorf("schema registry: %s.%s references unknown entity %q", e.Name, rel.Name, rel.Target)
			}
			if rel.Many && (rel.JoinTable == "" || rel.JoinSource == "" || rel.JoinTarget == "") {
				return nil, fmt.Errorf("schema registry: %s.%s is to-many but lacks join table columns", e.Name, rel.Name)
			}
		}
	}
	return r, nil
}

// Lookup returns the entity registered under name.
func (r *Registry) Lookup(name string) (*Entity, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEntity, name)
	}
	return e, nil
}

// LookupByTable returns the entity whose backing table matches.
func (r *Registry) LookupByTable(table string) (*Entity, error) {
	for _, e := range r.entities {
		if e.Table == table {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: table %s", domain.ErrUnknownEntity, table)
}

// Has reports whether an entity is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entities[name]
	return ok
}

// Names returns registered entity names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ResolvePath translates a dotted path rooted at entity into the relation
// chain leading to the terminal column owner, plus the column name. The
// chain is empty for direct columns. A second hop is followed only through
// a declared relation of the first hop (e.g. order → site → vendor).
// Unknown or unreachable tables resolve to ok == false and are expected to
// be dropped silently by callers.
func (r *Registry) ResolvePath(root *Entity, table, column string) (chain []Relation, owner *Entity, ok bool) {
	if table == "" || table == root.Name {
		if _, has := root.Column(column); !has {
			return nil, nil, false
		}
		return nil, root, true
	}

	if rel, has := root.Relation(table); has {
		target := r.entities[rel.Target]
		if _, hasCol := target.Column(column); !hasCol {
			return nil, nil, false
		}
		return []Relation{rel}, target, true
	}

	// Two-hop chain: the named table is a relation of one of the root's
	// direct relations.
	for _, first := range root.Relations {
		if first.Many {
			continue
		}
		mid := r.entities[first.Target]
		rel, has := mid.Relation(table)
		if !has || rel.Many {
			continue
		}
		target := r.entities[rel.Target]
		if _, hasCol := target.Column(column); !hasCol {
			continue
		}
		return []Relation{first, rel}, target, true
	}

	return nil, nil, false
}

// ColumnType resolves the declared column behind a dotted path. ok is false
// for unknown paths.
func (r *Registry) ColumnType(root *Entity, path string) (Column, bool) {
	table, column := SplitPath(path)
	_, owner, ok := r.ResolvePath(root, table, column)
	if !ok {
		return Column{}, false
	}
	return owner.columnIndex[column], true
}

// SplitPath splits a dotted path into its table and column parts. Paths
// without a dot address the root entity directly.
func SplitPath(path string) (table, column string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}
