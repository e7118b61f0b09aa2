package services

import (
	"time"

	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

var chartDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// SuggestChart picks a default visualization for a result table: the first
// time-like or textual column as the x axis, the first numeric column as
// the y axis, a line chart for time series and a bar chart otherwise.
// Returns nil when the table is empty or has no numeric column.
func SuggestChart(result *models.ResultTable) *models.ChartSuggestion {
	if result == nil || len(result.Rows) == 0 || len(result.Columns) < 2 {
		return nil
	}

	sample := result.Rows[0]

	xColumn := ""
	timeSeries := false
	for _, col := range result.Columns {
		if isTimeValue(sample[col]) {
			xColumn = col
			timeSeries = true
			break
		}
		if _, ok := sample[col].(string); ok && xColumn == "" {
			xColumn = col
		}
	}
	if xColumn == "" {
		xColumn = result.Columns[0]
	}

	yColumn := ""
	for _, col := range result.Columns {
		if col == xColumn {
			continue
		}
		if isNumericValue(sample[col]) {
			yColumn = col
			break
		}
	}
	if yColumn == "" {
		return nil
	}

	kind := models.ChartKindBar
	if timeSeries {
		kind = models.ChartKindLine
	}

	return &models.ChartSuggestion{
		Kind:    kind,
		XColumn: xColumn,
		YColumn: yColumn,
	}
}

func isTimeValue(v any) bool {
	switch val := v.(type) {
	case time.Time:
		return true
	case string:
		for _, layout := range chartDateLayouts {
			if _, err := time.Parse(layout, val); err == nil {
				return true
			}
		}
	}
	return false
}

func isNumericValue(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
