package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderedRowMarshalsInColumnOrder(t *testing.T) {
	row := OrderedRow{
		Columns: []string{"website", "costPrice", "vendor.name"},
		Values: map[string]any{
			"vendor.name": "Acme",
			"costPrice":   42,
			"website":     "shop.example",
		},
	}

	encoded, err := json.Marshal(row)
	require.NoError(t, err)
	require.JSONEq(t, `{"website":"shop.example","costPrice":42,"vendor.name":"Acme"}`, string(encoded))

	// Key order must follow Columns, not Go map iteration.
	require.Equal(t,
		`{"website":"shop.example","costPrice":42,"vendor.name":"Acme"}`,
		string(encoded))
}

func TestOrderedRowAppendsExtrasAfterOrderedBlock(t *testing.T) {
	row := OrderedRow{
		Columns: []string{"website"},
		Values: map[string]any{
			"website": "shop.example",
			"id":      "abc",
		},
	}

	encoded, err := json.Marshal(row)
	require.NoError(t, err)
	require.Equal(t, `{"website":"shop.example","id":"abc"}`, string(encoded))
}

func TestOrderedRowSkipsColumnsWithoutValues(t *testing.T) {
	row := OrderedRow{
		Columns: []string{"website", "remark"},
		Values:  map[string]any{"website": "shop.example"},
	}

	encoded, err := json.Marshal(row)
	require.NoError(t, err)
	require.Equal(t, `{"website":"shop.example"}`, string(encoded))
}
