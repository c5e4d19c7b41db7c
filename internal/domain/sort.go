package domain

import "strings"

// SortDirection is an ordering direction for a sort field.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField orders results by a single dotted-path column.
type SortField struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// NormalizeDirection maps a raw client direction onto asc/desc, reporting
// whether the input was one of the two accepted spellings.
func NormalizeDirection(raw string) (SortDirection, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(SortAsc):
		return SortAsc, true
	case string(SortDesc):
		return SortDesc, true
	}
	return SortAsc, false
}
