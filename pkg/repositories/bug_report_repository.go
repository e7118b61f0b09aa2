package repositories

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// BugReportRepository persists user-filed bug reports.
type BugReportRepository interface {
	Insert(ctx context.Context, report *models.BugReport) error
}

type bugReportRepository struct {
	wh     warehouse.Warehouse
	tables warehouse.AuditTables
	logger *zap.Logger
}

// NewBugReportRepository creates a bug report repository over the given
// warehouse.
func NewBugReportRepository(wh warehouse.Warehouse, tables warehouse.AuditTables, logger *zap.Logger) BugReportRepository {
	return &bugReportRepository{wh: wh, tables: tables, logger: logger}
}

func (r *bugReportRepository) Insert(ctx context.Context, report *models.BugReport) error {
	columns := []string{"REPORTER_EMAIL", "DESCRIPTION", "REPRODUCTION_STEPS", "REPORTED_ON"}
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = r.wh.Placeholder(i + 1)
	}

	statement := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.tables.BugReportsName(),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	_, err := r.wh.Exec(ctx, statement,
		report.ReporterEmail,
		report.Description,
		report.ReproductionSteps,
		report.ReportedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bug report: %w", err)
	}

	r.logger.Debug("bug report recorded", zap.String("reporter", report.ReporterEmail))
	return nil
}
