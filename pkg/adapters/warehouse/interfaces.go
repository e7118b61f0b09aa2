// Package warehouse defines the data-warehouse adapter contract and the
// registry driver packages register into. Adapters run model-generated
// read queries, introspect schema metadata for prompt context, and host
// the audit tables.
package warehouse

import (
	"context"
	"fmt"

	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// Config contains the connection options shared across warehouse types.
// Fields that do not apply to a given type are ignored by its adapter.
type Config struct {
	Type      string // "snowflake", "postgres", "mssql"
	Account   string // Snowflake account identifier
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string // Snowflake virtual warehouse
	Role      string // Snowflake role
	SSLMode   string // "disable", "require", "verify-ca", "verify-full"
}

// IntrospectedColumn is one row of schema metadata read from the
// warehouse's INFORMATION_SCHEMA. Database and Schema carry the owning
// table's location so same-named tables in different schemas stay
// distinct. Comment is the warehouse-side column comment, empty when the
// catalog has none.
type IntrospectedColumn struct {
	Database   string
	Schema     string
	TableName  string
	ColumnName string
	DataType   string
	Comment    string
}

// QualifiedTableName returns the database.schema.table name of the column's
// owning table.
func (c IntrospectedColumn) QualifiedTableName() string {
	return fmt.Sprintf("%s.%s.%s", c.Database, c.Schema, c.TableName)
}

// AuditTables names the warehouse tables the audit log writes to.
type AuditTables struct {
	Database    string
	Schema      string
	ChatHistory string
	BugReports  string
}

// ChatHistoryName returns the fully qualified chat history table name.
func (a AuditTables) ChatHistoryName() string {
	return a.qualify(a.ChatHistory)
}

// BugReportsName returns the fully qualified bug reports table name.
func (a AuditTables) BugReportsName() string {
	return a.qualify(a.BugReports)
}

func (a AuditTables) qualify(table string) string {
	if a.Database != "" && a.Schema != "" {
		return fmt.Sprintf("%s.%s.%s", a.Database, a.Schema, table)
	}
	if a.Schema != "" {
		return fmt.Sprintf("%s.%s", a.Schema, table)
	}
	return table
}

// Warehouse is the adapter contract for one configured data warehouse.
// Implementations must be safe for concurrent use.
type Warehouse interface {
	// Query runs a read query verbatim and returns the full result set.
	Query(ctx context.Context, sqlQuery string) (*models.ResultTable, error)

	// Exec runs a parameterized statement and returns the affected row
	// count. Placeholders use the dialect returned by Placeholder.
	Exec(ctx context.Context, statement string, args ...any) (int64, error)

	// IntrospectColumns reads column metadata for each table from the
	// warehouse's INFORMATION_SCHEMA.
	IntrospectColumns(ctx context.Context, tables []models.TableSpec) ([]IntrospectedColumn, error)

	// DateRange returns the min and max of a date column on the fully
	// qualified table, nil when the table is empty.
	DateRange(ctx context.Context, table, dateColumn string) (*models.DateRange, error)

	// EnsureAuditTables creates the audit tables when they do not exist.
	EnsureAuditTables(ctx context.Context, tables AuditTables) error

	// Placeholder returns the dialect's positional parameter marker for
	// the 1-based position n.
	Placeholder(n int) string

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error

	Close() error
}
