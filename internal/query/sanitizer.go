// Package query contains the pure core of the platform: sanitization of
// client filter trees against a resolved column allow-list, and compilation
// of sanitized trees into nested query descriptors.
package query

import (
	"sort"

	"github.com/merchantops/gridview/internal/domain"
)

// allowedOperators is the fixed operator whitelist enforced inside kept
// conditions. Anything else is stripped without signalling the caller.
var allowedOperators = map[string]struct{}{
	"equals":     {},
	"not":        {},
	"in":         {},
	"notIn":      {},
	"lt":         {},
	"lte":        {},
	"gt":         {},
	"gte":        {},
	"contains":   {},
	"startsWith": {},
	"endsWith":   {},
	"mode":       {},
	"some":       {},
	"every":      {},
	"none":       {},
	"is":         {},
	"isNot":      {},
}

// ColumnSet is a resolved column allow-list.
type ColumnSet map[string]struct{}

// NewColumnSet indexes an ordered allow-list for membership checks.
func NewColumnSet(columns []string) ColumnSet {
	set := make(ColumnSet, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether a column is allow-listed.
func (s ColumnSet) Has(column string) bool {
	_, ok := s[column]
	return ok
}

// Sanitize prunes a raw client filter document against the allow-list and
// returns the surviving tree, or nil when nothing survives.
//
// This is the single security boundary between client input and query
// execution. A condition on a forbidden or unknown column vanishes without
// an error so malicious filters cannot discover which columns exist. The top
// level may carry at most one connector key among AND/OR/NOT; more than one
// rejects the whole document.
func Sanitize(payload map[string]any, allowed ColumnSet) domain.FilterNode {
	if len(payload) == 0 {
		return nil
	}

	connectors := 0
	for key := range payload {
		if domain.IsConnectorKey(key) {
			connectors++
		}
	}
	if connectors > 1 {
		return nil
	}

	return sanitizeObject(payload, allowed)
}

// sanitizeObject turns one raw object into a filter node. Objects holding
// several entries collapse into an implicit AND connector.
func sanitizeObject(obj map[string]any, allowed ColumnSet) domain.FilterNode {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	nodes := make([]domain.FilterNode, 0, len(keys))
	for _, key := range keys {
		if domain.IsConnectorKey(key) {
			if node := sanitizeConnector(domain.ConnectorOp(key), obj[key], allowed); node != nil {
				nodes = append(nodes, node)
			}
			continue
		}
		if node := sanitizeCondition(key, obj[key], allowed); node != nil {
			nodes = append(nodes, node)
		}
	}

	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	}
	return &domain.Connector{Op: domain.ConnectorAnd, Children: nodes}
}

// sanitizeConnector filters connector children and drops connectors that
// end up empty. The child payload may be a list of objects or, for NOT, a
// single object.
func sanitizeConnector(op domain.ConnectorOp, value any, allowed ColumnSet) domain.FilterNode {
	var rawChildren []any
	switch v := value.(type) {
	case []any:
		rawChildren = v
	case map[string]any:
		rawChildren = []any{v}
	default:
		return nil
	}

	children := make([]domain.FilterNode, 0, len(rawChildren))
	for _, raw := range rawChildren {
		child, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if node := sanitizeObject(child, allowed); node != nil {
			children = append(children, node)
		}
	}

	if len(children) == 0 {
		return nil
	}
	return &domain.Connector{Op: op, Children: children}
}

// sanitizeCondition keeps a leaf condition only when its column is
// allow-listed, then strips operator keys outside the whitelist. A bare
// scalar value is shorthand for equals.
func sanitizeCondition(column string, value any, allowed ColumnSet) domain.FilterNode {
	if !allowed.Has(column) {
		return nil
	}

	switch v := value.(type) {
	case map[string]any:
		operators := make([]string, 0, len(v))
		for op := range v {
			operators = append(operators, op)
		}
		sort.Strings(operators)

		clauses := make([]domain.OperatorClause, 0, len(operators))
		for _, op := range operators {
			if _, ok := allowedOperators[op]; !ok {
				continue
			}
			clauses = append(clauses, domain.OperatorClause{Operator: op, Value: v[op]})
		}
		if len(clauses) == 0 {
			return nil
		}
		return &domain.Condition{Column: column, Clauses: clauses}
	case nil, string, float64, bool, []any:
		return &domain.Condition{Column: column, Clauses: []domain.OperatorClause{{Operator: "equals", Value: v}}}
	}
	return nil
}
