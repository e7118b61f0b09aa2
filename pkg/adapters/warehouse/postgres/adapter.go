// Package postgres implements the warehouse adapter for PostgreSQL using
// pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/logging"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// Adapter is a PostgreSQL warehouse adapter.
type Adapter struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewAdapter opens a pgx pool against the configured database.
func NewAdapter(ctx context.Context, cfg warehouse.Config, logger *zap.Logger) (*Adapter, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("postgres host is required")
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		port,
		cfg.Database,
		sslMode,
	)

	logger.Debug("opening postgres pool", zap.String("dsn", logging.SanitizeDSN(connStr)))

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Adapter{pool: pool, logger: logger}, nil
}

func (a *Adapter) Query(ctx context.Context, sqlQuery string) (*models.ResultTable, error) {
	rows, err := a.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	result := &models.ResultTable{
		Columns: make([]string, len(fieldDescs)),
		Rows:    make([]map[string]any, 0),
	}
	for i, fd := range fieldDescs {
		result.Columns[i] = string(fd.Name)
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(result.Columns))
		for i, col := range result.Columns {
			rowMap[col] = values[i]
		}
		result.Rows = append(result.Rows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}

func (a *Adapter) Exec(ctx context.Context, statement string, args ...any) (int64, error) {
	cmdTag, err := a.pool.Exec(ctx, statement, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute statement: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// IntrospectColumns reads column metadata from information_schema. Postgres
// connections are bound to one database, so the table's Database field is
// not part of the lookup; it is still stamped on the result so callers can
// group columns by qualified table name.
func (a *Adapter) IntrospectColumns(ctx context.Context, tables []models.TableSpec) ([]warehouse.IntrospectedColumn, error) {
	var result []warehouse.IntrospectedColumn

	for _, table := range tables {
		query, args := introspectQuery(table)

		rows, err := a.pool.Query(ctx, query, args...)
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

// introspectQuery builds the per-table catalog query, including the column
// comment from the pg catalog. The column allow-list is pushed into the
// WHERE clause so restricted columns never leave the database; matching is
// case-insensitive because configured names may not follow the catalog's
// folding.
func introspectQuery(table models.TableSpec) (string, []any) {
	query := `SELECT column_name, data_type,
		 COALESCE(col_description(format('%I.%I', table_schema, table_name)::regclass, ordinal_position), '')
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2`
	args := []any{table.Schema, table.Table}

	if len(table.Columns) > 0 {
		allowed := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			allowed[i] = strings.ToUpper(col)
		}
		query += " AND UPPER(column_name) = ANY($3)"
		args = append(args, allowed)
	}

	query += " ORDER BY ordinal_position"
	return query, args
}

func (a *Adapter) DateRange(ctx context.Context, table, dateColumn string) (*models.DateRange, error) {
	query := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s", dateColumn, dateColumn, table)

	var minDate, maxDate *time.Time
	if err := a.pool.QueryRow(ctx, query).Scan(&minDate, &maxDate); err != nil {
		return nil, fmt.Errorf("failed to read date range of %s: %w", table, err)
	}

	if minDate == nil || maxDate == nil {
		return nil, nil
	}
	return &models.DateRange{Min: *minDate, Max: *maxDate}, nil
}

func (a *Adapter) EnsureAuditTables(ctx context.Context, tables warehouse.AuditTables) error {
	chatHistory := tables.Schema + "." + tables.ChatHistory
	bugReports := tables.Schema + "." + tables.BugReports

	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			question_id VARCHAR(16) NOT NULL,
			ds DATE NOT NULL,
			"timestamp" TIMESTAMP NOT NULL,
			session_id TEXT NOT NULL,
			question TEXT NOT NULL,
			full_answer TEXT,
			sql_query TEXT,
			query_result TEXT,
			sql_error TEXT,
			prompt_tokens BIGINT,
			completion_tokens BIGINT,
			ai_response_time DOUBLE PRECISION,
			query_time DOUBLE PRECISION,
			use_case TEXT,
			feedback_score DOUBLE PRECISION,
			feedback_text TEXT
		)`, chatHistory),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			reporter_email TEXT NOT NULL,
			description TEXT NOT NULL,
			reproduction_steps TEXT,
			reported_on TIMESTAMP NOT NULL
		)`, bugReports),
	}

	for _, stmt := range statements {
		if _, err := a.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure audit tables: %w", err)
		}
	}
	return nil
}

func (a *Adapter) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

var _ warehouse.Warehouse = (*Adapter)(nil)
