package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DefaultViewName is the sentinel name of the lazily created default view.
// Exactly one view with this name exists per (user, resource).
const DefaultViewName = "grid"

// View is a persisted named configuration of columns, filters and sort for
// one resource, owned by one user.
type View struct {
	ID            uuid.UUID       `json:"id"`
	OwnerID       uuid.UUID       `json:"owner_id"`
	ResourceTable string          `json:"resource_table"`
	Name          string          `json:"view_name"`
	Columns       []string        `json:"columns"`
	Filters       json.RawMessage `json:"filters"`
	Sort          []SortField     `json:"sort"`
	ColumnOrder   []string        `json:"column_order"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsDefault reports whether this is the per-resource default view.
func (v View) IsDefault() bool {
	return v.Name == DefaultViewName
}

// ViewSummary is the sidebar-facing shape of a view.
type ViewSummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"viewName"`
}

// ViewInput carries the mutable fields of a view for create and update.
type ViewInput struct {
	Name        string          `json:"viewName"`
	Columns     []string        `json:"columns"`
	Filters     json.RawMessage `json:"filters"`
	Sort        []SortField     `json:"sort"`
	ColumnOrder []string        `json:"columnOrder"`
}

// Helper utilities for encoding/decoding view data to JSONB blobs used by
// persistence.

func ColumnsToJSONB(columns []string) (json.RawMessage, error) {
	if columns == nil {
		columns = []string{}
	}
	return json.Marshal(columns)
}

func ColumnsFromJSONB(data json.RawMessage) ([]string, error) {
	if len(data) == 0 {
		return []string{}, nil
	}
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, err
	}
	if columns == nil {
		columns = []string{}
	}
	return columns, nil
}

func SortToJSONB(sort []SortField) (json.RawMessage, error) {
	if sort == nil {
		sort = []SortField{}
	}
	return json.Marshal(sort)
}

func SortFromJSONB(data json.RawMessage) ([]SortField, error) {
	if len(data) == 0 {
		return []SortField{}, nil
	}
	var sort []SortField
	if err := json.Unmarshal(data, &sort); err != nil {
		return nil, err
	}
	if sort == nil {
		sort = []SortField{}
	}
	return sort, nil
}
