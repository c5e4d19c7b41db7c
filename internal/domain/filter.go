package domain

import (
	"encoding/json"
)

// ConnectorOp is the logical operator of a connector node in a filter tree.
type ConnectorOp string

const (
	ConnectorAnd ConnectorOp = "AND"
	ConnectorOr  ConnectorOp = "OR"
	ConnectorNot ConnectorOp = "NOT"
)

// IsConnectorKey reports whether a raw filter key names a connector.
func IsConnectorKey(key string) bool {
	switch ConnectorOp(key) {
	case ConnectorAnd, ConnectorOr, ConnectorNot:
		return true
	}
	return false
}

// FilterNode is a node in a sanitized filter tree: either a Connector
// grouping child nodes, or a Condition on a single column.
type FilterNode interface {
	filterNode()
}

// Connector groups child filter nodes under a logical operator.
type Connector struct {
	Op       ConnectorOp
	Children []FilterNode
}

func (Connector) filterNode() {}

// OperatorClause is one operator/value pair inside a condition, e.g.
// contains: "shop". A condition may carry several clauses on the same
// column (gte + lte, contains + mode).
type OperatorClause struct {
	Operator string
	Value    any
}

// Condition constrains a single column, addressed by dotted path.
type Condition struct {
	Column  string
	Clauses []OperatorClause
}

func (Condition) filterNode() {}

// Clause returns the value of the named operator clause when present.
func (c Condition) Clause(operator string) (any, bool) {
	for _, cl := range c.Clauses {
		if cl.Operator == operator {
			return cl.Value, true
		}
	}
	return nil, false
}

// DecodeFilterPayload parses a raw client filter document into a generic
// map. Only the JSON shape is validated here; column and operator vetting
// happens during sanitization.
func DecodeFilterPayload(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrValidation
	}
	return payload, nil
}

// EncodeFilterNode renders a sanitized filter tree back into the nested
// map shape used by query descriptors and response echoes.
func EncodeFilterNode(node FilterNode) map[string]any {
	switch n := node.(type) {
	case nil:
		return nil
	case *Connector:
		children := make([]map[string]any, 0, len(n.Children))
		for _, child := range n.Children {
			if encoded := EncodeFilterNode(child); encoded != nil {
				children = append(children, encoded)
			}
		}
		if len(children) == 0 {
			return nil
		}
		if n.Op == ConnectorNot && len(children) == 1 {
			return map[string]any{string(n.Op): children[0]}
		}
		return map[string]any{string(n.Op): children}
	case *Condition:
		clauses := make(map[string]any, len(n.Clauses))
		for _, cl := range n.Clauses {
			clauses[cl.Operator] = cl.Value
		}
		if len(clauses) == 0 {
			return nil
		}
		return map[string]any{n.Column: clauses}
	}
	return nil
}
