// Package snowflake implements the warehouse adapter for Snowflake using
// the gosnowflake driver through database/sql.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/logging"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxLifetime = time.Hour
)

// Adapter is a Snowflake warehouse adapter.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter opens a pooled connection to the configured Snowflake account.
func NewAdapter(ctx context.Context, cfg warehouse.Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("snowflake account is required")
	}

	dsn, err := sf.DSN(&sf.Config{
		Account:   cfg.Account,
		User:      cfg.User,
		Password:  cfg.Password,
		Database:  cfg.Database,
		Schema:    cfg.Schema,
		Warehouse: cfg.Warehouse,
		Role:      cfg.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build snowflake DSN: %w", err)
	}
	logger.Debug("opening snowflake connection", zap.String("dsn", logging.SanitizeDSN(dsn)))

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping snowflake: %w", err)
	}

	logger.Info("connected to snowflake",
		zap.String("account", cfg.Account),
		zap.String("database", cfg.Database),
		zap.String("warehouse", cfg.Warehouse))

	return &Adapter{db: db, logger: logger}, nil
}

func (a *Adapter) Query(ctx context.Context, sqlQuery string) (*models.ResultTable, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return warehouse.ScanRows(rows)
}

func (a *Adapter) Exec(ctx context.Context, statement string, args ...any) (int64, error) {
	res, err := a.db.ExecContext(ctx, statement, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected, nil
}

// IntrospectColumns reads column metadata per table from the table's own
// database INFORMATION_SCHEMA. Tables may live in different databases, so
// one query is issued per table.
func (a *Adapter) IntrospectColumns(ctx context.Context, tables []models.TableSpec) ([]warehouse.IntrospectedColumn, error) {
	var result []warehouse.IntrospectedColumn

	for _, table := range tables {
		query, args := introspectQuery(table)

		rows, err := a.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect %s: %w", table.QualifiedName(), err)
		}

		cols, err := scanIntrospectedColumns(rows, table)
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", table.QualifiedName(), err)
		}
		result = append(result, cols...)
	}

	return result, nil
}

// introspectQuery builds the per-table catalog query. The column allow-list
// is pushed into the WHERE clause so restricted columns never leave the
// warehouse; identifier case differs across catalogs, so the comparison is
// case-insensitive.
func introspectQuery(table models.TableSpec) (string, []any) {
	query := fmt.Sprintf(
		`SELECT COLUMN_NAME, DATA_TYPE, COALESCE(COMMENT, '')
		 FROM %s.INFORMATION_SCHEMA.COLUMNS
		 WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, table.Database)
	args := []any{table.Schema, table.Table}

	if len(table.Columns) > 0 {
		marks := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			marks[i] = "?"
			args = append(args, strings.ToUpper(col))
		}
		query += fmt.Sprintf(" AND UPPER(COLUMN_NAME) IN (%s)", strings.Join(marks, ", "))
	}

	query += " ORDER BY ORDINAL_POSITION"
	return query, args
}

func (a *Adapter) DateRange(ctx context.Context, table, dateColumn string) (*models.DateRange, error) {
	query := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", dateColumn, dateColumn, table)

	var minDate, maxDate sql.NullTime
	if err := a.db.QueryRowContext(ctx, query).Scan(&minDate, &maxDate); err != nil {
		return nil, fmt.Errorf("failed to read date range of %s: %w", table, err)
	}

	if !minDate.Valid || !maxDate.Valid {
		return nil, nil
	}
	return &models.DateRange{Min: minDate.Time, Max: maxDate.Time}, nil
}

func (a *Adapter) EnsureAuditTables(ctx context.Context, tables warehouse.AuditTables) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			QUESTION_ID VARCHAR(16) NOT NULL,
			DS DATE NOT NULL,
			TIMESTAMP TIMESTAMP_NTZ NOT NULL,
			SESSION_ID VARCHAR NOT NULL,
			QUESTION VARCHAR NOT NULL,
			FULL_ANSWER VARCHAR,
			SQL_QUERY VARCHAR,
			QUERY_RESULT VARCHAR,
			SQL_ERROR VARCHAR,
			PROMPT_TOKENS NUMBER,
			COMPLETION_TOKENS NUMBER,
			AI_RESPONSE_TIME FLOAT,
			QUERY_TIME FLOAT,
			USE_CASE VARCHAR,
			FEEDBACK_SCORE FLOAT,
			FEEDBACK_TEXT VARCHAR
		)`, tables.ChatHistoryName()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			REPORTER_EMAIL VARCHAR NOT NULL,
			DESCRIPTION VARCHAR NOT NULL,
			REPRODUCTION_STEPS VARCHAR,
			REPORTED_ON TIMESTAMP_NTZ NOT NULL
		)`, tables.BugReportsName()),
	}

	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure audit tables: %w", err)
		}
	}
	return nil
}

func (a *Adapter) Placeholder(n int) string {
	return "?"
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

func scanIntrospectedColumns(rows *sql.Rows, table models.TableSpec) ([]warehouse.IntrospectedColumn, error) {
	var cols []warehouse.IntrospectedColumn
	for rows.Next() {
		col := warehouse.IntrospectedColumn{
			Database:  table.Database,
			Schema:    table.Schema,
			TableName: table.Table,
		}
		if err := rows.Scan(&col.ColumnName, &col.DataType, &col.Comment); err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}

var _ warehouse.Warehouse = (*Adapter)(nil)
