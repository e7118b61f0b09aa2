package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/logging"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
	sqlguard "github.com/datatalk-ai/datatalk-engine/pkg/sql"
)

// ExecutionOutcome is the result of running one extracted SQL statement
// through the guard chain and the warehouse.
type ExecutionOutcome struct {
	// Refused is set when the statement hit the write-statement denylist.
	// Refused statements never reach the warehouse.
	Refused        bool
	RefusalMessage string

	// Result is the cleaned result table on success.
	Result *models.ResultTable

	// Error is the user-facing warehouse error message on failure.
	Error string

	// QuerySeconds is the warehouse execution time, zero when refused.
	QuerySeconds float64
}

// Failed reports whether execution produced an error.
func (o *ExecutionOutcome) Failed() bool {
	return o.Error != ""
}

// QueryExecutionService runs model-generated SQL with the guard chain
// applied: denylist screen, single-statement normalization, execution,
// then result cleanup.
type QueryExecutionService interface {
	Execute(ctx context.Context, sqlQuery string) *ExecutionOutcome
}

type queryExecutionService struct {
	wh     warehouse.Warehouse
	logger *zap.Logger
}

// NewQueryExecutionService creates the execution service.
func NewQueryExecutionService(wh warehouse.Warehouse, logger *zap.Logger) QueryExecutionService {
	return &queryExecutionService{wh: wh, logger: logger}
}

func (s *queryExecutionService) Execute(ctx context.Context, sqlQuery string) *ExecutionOutcome {
	if keyword, denied := sqlguard.CheckDenylist(sqlQuery); denied {
		s.logger.Warn("denylisted statement refused", zap.String("keyword", keyword))
		return &ExecutionOutcome{
			Refused:        true,
			RefusalMessage: sqlguard.RefusalMessage,
		}
	}

	validation := sqlguard.ValidateAndNormalize(sqlQuery)
	if validation.Error != nil {
		return &ExecutionOutcome{Error: validation.Error.Error()}
	}

	s.logger.Debug("executing query",
		zap.String("query", logging.TruncateQuery(validation.NormalizedSQL)))

	start := time.Now()
	result, err := s.wh.Query(ctx, validation.NormalizedSQL)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		cleaned := CleanWarehouseError(err)
		s.logger.Warn("query failed",
			zap.Float64("query_seconds", elapsed),
			zap.String("query", logging.TruncateQuery(validation.NormalizedSQL)),
			zap.String("error", logging.SanitizeError(err)))
		return &ExecutionOutcome{Error: cleaned, QuerySeconds: elapsed}
	}

	return &ExecutionOutcome{
		Result:       DropAllNullRows(result),
		QuerySeconds: elapsed,
	}
}

// CleanWarehouseError reduces a warehouse error to the part users can act
// on. Snowflake prefixes compilation failures with connector noise; only
// the text after the marker matters to the person reading it.
func CleanWarehouseError(err error) string {
	const marker = "SQL compilation error:"

	msg := err.Error()
	if idx := strings.Index(msg, marker); idx >= 0 {
		return strings.TrimSpace(msg[idx+len(marker):])
	}
	return msg
}

// DropAllNullRows removes rows whose every column is NULL. Outer joins and
// window frames produce such rows; they carry no information and confuse
// chart rendering.
func DropAllNullRows(result *models.ResultTable) *models.ResultTable {
	if result == nil {
		return nil
	}

	kept := make([]map[string]any, 0, len(result.Rows))
	for _, row := range result.Rows {
		allNull := true
		for _, v := range row {
			if v != nil {
				allNull = false
				break
			}
		}
		if !allNull || len(row) == 0 {
			kept = append(kept, row)
		}
	}

	return &models.ResultTable{Columns: result.Columns, Rows: kept}
}
