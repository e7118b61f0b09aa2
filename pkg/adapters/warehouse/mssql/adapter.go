// Package mssql implements the warehouse adapter for Microsoft SQL Server
// using the go-mssqldb driver through database/sql.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/microsoft/go-mssqldb"
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

// Adapter is a SQL Server warehouse adapter.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter opens a pooled connection to the configured SQL Server.
func NewAdapter(ctx context.Context, cfg warehouse.Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mssql host is required")
	}

	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	query := url.Values{}
	query.Set("database", cfg.Database)
	if cfg.SSLMode == "disable" {
		query.Set("encrypt", "disable")
	}

	dsn := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", cfg.Host, port),
		RawQuery: query.Encode(),
	}

	logger.Debug("opening mssql connection", zap.String("dsn", logging.SanitizeDSN(dsn.String())))

	db, err := sql.Open("sqlserver", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open mssql connection: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mssql: %w", err)
	}

	logger.Info("connected to mssql",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

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

func (a *Adapter) IntrospectColumns(ctx context.Context, tables []models.TableSpec) ([]warehouse.IntrospectedColumn, error) {
	var result []warehouse.IntrospectedColumn

	for _, table := range tables {
		query, args := introspectQuery(table)

		rows, err := a.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to introspect %s: %w", table.QualifiedName(), err)
		}

		for rows.Next() {
			col := warehouse.IntrospectedColumn{
				Database:  table.Database,
				Schema:    table.Schema,
				TableName: table.Table,
			}
			if err := rows.Scan(&col.ColumnName, &col.DataType, &col.Comment); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read columns of %s: %w", table.QualifiedName(), err)
			}
			result = append(result, col)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", table.QualifiedName(), err)
		}
	}

	return result, nil
}

// introspectQuery builds the per-table catalog query. Column comments live
// in extended properties under the MS_Description name. The column
// allow-list is pushed into the WHERE clause so restricted columns never
// leave the server; matching is case-insensitive.
func introspectQuery(table models.TableSpec) (string, []any) {
	query := fmt.Sprintf(
		`SELECT c.COLUMN_NAME, c.DATA_TYPE, COALESCE(CAST(ep.value AS NVARCHAR(4000)), '')
		 FROM %s.INFORMATION_SCHEMA.COLUMNS c
		 LEFT JOIN %s.sys.extended_properties ep
		   ON ep.class = 1
		   AND ep.major_id = OBJECT_ID(c.TABLE_CATALOG + '.' + c.TABLE_SCHEMA + '.' + c.TABLE_NAME)
		   AND ep.minor_id = c.ORDINAL_POSITION
		   AND ep.name = 'MS_Description'
		 WHERE c.TABLE_SCHEMA = @p1 AND c.TABLE_NAME = @p2`, table.Database, table.Database)
	args := []any{table.Schema, table.Table}

	if len(table.Columns) > 0 {
		base := len(args)
		marks := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			marks[i] = fmt.Sprintf("@p%d", base+i+1)
			args = append(args, strings.ToUpper(col))
		}
		query += fmt.Sprintf(" AND UPPER(c.COLUMN_NAME) IN (%s)", strings.Join(marks, ", "))
	}

	query += " ORDER BY c.ORDINAL_POSITION"
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
	chatHistory := tables.Schema + "." + tables.ChatHistory
	bugReports := tables.Schema + "." + tables.BugReports

	statements := []string{
		fmt.Sprintf(`IF OBJECT_ID('%s', 'U') IS NULL
		CREATE TABLE %s (
			question_id VARCHAR(16) NOT NULL,
			ds DATE NOT NULL,
			[timestamp] DATETIME2 NOT NULL,
			session_id NVARCHAR(64) NOT NULL,
			question NVARCHAR(MAX) NOT NULL,
			full_answer NVARCHAR(MAX),
			sql_query NVARCHAR(MAX),
			query_result NVARCHAR(MAX),
			sql_error NVARCHAR(MAX),
			prompt_tokens BIGINT,
			completion_tokens BIGINT,
			ai_response_time FLOAT,
			query_time FLOAT,
			use_case NVARCHAR(256),
			feedback_score FLOAT,
			feedback_text NVARCHAR(MAX)
		)`, chatHistory, chatHistory),
		fmt.Sprintf(`IF OBJECT_ID('%s', 'U') IS NULL
		CREATE TABLE %s (
			reporter_email NVARCHAR(320) NOT NULL,
			description NVARCHAR(MAX) NOT NULL,
			reproduction_steps NVARCHAR(MAX),
			reported_on DATETIME2 NOT NULL
		)`, bugReports, bugReports),
	}

	for _, stmt := range statements {
		if _, err := a.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure audit tables: %w", err)
		}
	}
	return nil
}

func (a *Adapter) Placeholder(n int) string {
	return fmt.Sprintf("@p%d", n)
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ warehouse.Warehouse = (*Adapter)(nil)
