package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// QueryDescriptor is the compiled, execution-ready form of a grid request:
// nested select/where/orderBy maps addressed to the data access layer.
type QueryDescriptor struct {
	Select  map[string]any   `json:"select,omitempty"`
	Where   map[string]any   `json:"where,omitempty"`
	OrderBy []map[string]any `json:"orderBy,omitempty"`
}

// ResultKind tags the shape of an executed grid result.
type ResultKind string

const (
	ResultFlat    ResultKind = "flat"
	ResultGrouped ResultKind = "grouped"
)

// OrderedRow is one result row whose JSON encoding emits keys in the
// caller-required column order rather than map order.
type OrderedRow struct {
	Columns []string
	Values  map[string]any
}

// Get returns the value stored under a column.
func (r OrderedRow) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// MarshalJSON writes the row as an object with keys in Columns order.
// Values present in the row but absent from Columns are appended after the
// ordered block so no data is silently dropped.
func (r OrderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	written := make(map[string]struct{}, len(r.Values))
	first := true
	write := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	for _, column := range r.Columns {
		value, ok := r.Values[column]
		if !ok {
			continue
		}
		if err := write(column, value); err != nil {
			return nil, err
		}
		written[column] = struct{}{}
	}

	extras := make([]string, 0)
	for key := range r.Values {
		if _, done := written[key]; !done {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		if err := write(key, r.Values[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GroupBucket is one aggregated group-by row.
type GroupBucket struct {
	Key   any   `json:"key"`
	Count int64 `json:"count"`
}

// ListResult is the response payload of a grid listing.
type ListResult struct {
	Kind ResultKind `json:"kind"`

	TotalCount int64         `json:"totalCount"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	Rows       []OrderedRow  `json:"rows"`
	Groups     []GroupBucket `json:"groups,omitempty"`

	AvailableColumns     []string          `json:"availableColumns"`
	AvailableColumnTypes map[string]string `json:"availableColumnTypes"`
	AppliedFilters       map[string]any    `json:"appliedFilters"`
	AppliedSort          []SortField       `json:"appliedSort"`
	Views                []ViewSummary     `json:"views"`
}
