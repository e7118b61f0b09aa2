package warehouse

import (
	"database/sql"
	"fmt"

	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// ScanRows collects a database/sql result set into a ResultTable. Shared by
// the adapters built on database/sql drivers.
func ScanRows(rows *sql.Rows) (*models.ResultTable, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	result := &models.ResultTable{
		Columns: columns,
		Rows:    make([]map[string]any, 0),
	}

	values := make([]any, len(columns))
	scanTargets := make([]any, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

// normalizeValue converts driver-specific raw values into JSON-friendly
// types. Byte slices are what most drivers hand back for text columns.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	default:
		return v
	}
}
