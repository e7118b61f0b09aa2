package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

func TestSuggestChart_TimeSeriesGetsLineChart(t *testing.T) {
	result := &models.ResultTable{
		Columns: []string{"day", "revenue"},
		Rows: []map[string]any{
			{"day": time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), "revenue": 120.5},
		},
	}

	suggestion := SuggestChart(result)
	require.NotNil(t, suggestion)
	assert.Equal(t, models.ChartKindLine, suggestion.Kind)
	assert.Equal(t, "day", suggestion.XColumn)
	assert.Equal(t, "revenue", suggestion.YColumn)
}

func TestSuggestChart_DateStringsCountAsTimeSeries(t *testing.T) {
	result := &models.ResultTable{
		Columns: []string{"week", "orders"},
		Rows: []map[string]any{
			{"week": "2025-03-03", "orders": int64(42)},
		},
	}

	suggestion := SuggestChart(result)
	require.NotNil(t, suggestion)
	assert.Equal(t, models.ChartKindLine, suggestion.Kind)
}

func TestSuggestChart_CategoricalGetsBarChart(t *testing.T) {
	result := &models.ResultTable{
		Columns: []string{"country", "visitors"},
		Rows: []map[string]any{
			{"country": "Portugal", "visitors": int64(900)},
		},
	}

	suggestion := SuggestChart(result)
	require.NotNil(t, suggestion)
	assert.Equal(t, models.ChartKindBar, suggestion.Kind)
	assert.Equal(t, "country", suggestion.XColumn)
	assert.Equal(t, "visitors", suggestion.YColumn)
}

func TestSuggestChart_NoSuggestionWithoutNumericColumn(t *testing.T) {
	result := &models.ResultTable{
		Columns: []string{"country", "city"},
		Rows: []map[string]any{
			{"country": "Portugal", "city": "Lisbon"},
		},
	}
	assert.Nil(t, SuggestChart(result))
}

func TestSuggestChart_NoSuggestionForEmptyResults(t *testing.T) {
	assert.Nil(t, SuggestChart(nil))
	assert.Nil(t, SuggestChart(&models.ResultTable{Columns: []string{"a", "b"}}))
	assert.Nil(t, SuggestChart(&models.ResultTable{
		Columns: []string{"total"},
		Rows:    []map[string]any{{"total": 1}},
	}))
}
