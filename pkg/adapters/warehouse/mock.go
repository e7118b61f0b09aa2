package warehouse

import (
	"context"
	"fmt"

	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// Mock is a test double for Warehouse with per-method function fields.
// Methods without a function set return zero values.
type Mock struct {
	QueryFunc             func(ctx context.Context, sqlQuery string) (*models.ResultTable, error)
	ExecFunc              func(ctx context.Context, statement string, args ...any) (int64, error)
	IntrospectColumnsFunc func(ctx context.Context, tables []models.TableSpec) ([]IntrospectedColumn, error)
	DateRangeFunc         func(ctx context.Context, table, dateColumn string) (*models.DateRange, error)
	EnsureAuditTablesFunc func(ctx context.Context, tables AuditTables) error

	// ExecCalls records every Exec invocation.
	ExecCalls []ExecCall
}

// ExecCall is one recorded Exec invocation.
type ExecCall struct {
	Statement string
	Args      []any
}

func (m *Mock) Query(ctx context.Context, sqlQuery string) (*models.ResultTable, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sqlQuery)
	}
	return &models.ResultTable{}, nil
}

func (m *Mock) Exec(ctx context.Context, statement string, args ...any) (int64, error) {
	m.ExecCalls = append(m.ExecCalls, ExecCall{Statement: statement, Args: args})
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, statement, args...)
	}
	return 1, nil
}

func (m *Mock) IntrospectColumns(ctx context.Context, tables []models.TableSpec) ([]IntrospectedColumn, error) {
	if m.IntrospectColumnsFunc != nil {
		return m.IntrospectColumnsFunc(ctx, tables)
	}
	return nil, nil
}

func (m *Mock) DateRange(ctx context.Context, table, dateColumn string) (*models.DateRange, error) {
	if m.DateRangeFunc != nil {
		return m.DateRangeFunc(ctx, table, dateColumn)
	}
	return nil, nil
}

func (m *Mock) EnsureAuditTables(ctx context.Context, tables AuditTables) error {
	if m.EnsureAuditTablesFunc != nil {
		return m.EnsureAuditTablesFunc(ctx, tables)
	}
	return nil
}

func (m *Mock) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (m *Mock) Ping(ctx context.Context) error {
	return nil
}

func (m *Mock) Close() error {
	return nil
}

var _ Warehouse = (*Mock)(nil)
