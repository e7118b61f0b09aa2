package models

import "encoding/json"

// DefaultColumnDescription is substituted when the warehouse carries no
// comment for a column and no curated description exists.
const DefaultColumnDescription = "No description available"

// ColumnMetadata merges live warehouse introspection (name, type, comment)
// with curated join relationships for one column.
type ColumnMetadata struct {
	ColumnName        string    `json:"column_name"`
	ColumnType        string    `json:"column_type"`
	ColumnDescription string    `json:"column_description"`
	ColumnJoins       []JoinRef `json:"column_joins"`
}

// TableContext is the grounding description of one source table.
type TableContext struct {
	Name        string           `json:"name"`
	Schema      string           `json:"schema"`
	Database    string           `json:"database"`
	Description string           `json:"description"`
	Columns     []ColumnMetadata `json:"columns"`
}

// SchemaContextDocument is the structured grounding payload injected into
// the system instruction. It contains exactly the configured source tables
// (never a superset) plus the worked examples, in input order.
type SchemaContextDocument struct {
	Tables   []TableContext `json:"tables"`
	Examples []Example      `json:"examples"`
}

// ToJSON serializes the document for prompt injection.
func (d *SchemaContextDocument) ToJSON() (string, error) {
	b, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// TableNames returns the table names present in the document, in order.
func (d *SchemaContextDocument) TableNames() []string {
	names := make([]string, len(d.Tables))
	for i, t := range d.Tables {
		names[i] = t.Name
	}
	return names
}
