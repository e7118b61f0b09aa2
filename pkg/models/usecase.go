package models

// TableSpec identifies one warehouse table to expose to the model.
// Columns, when set, restricts introspection to those column names only;
// this keeps the grounding payload (and prompt token usage) bounded.
type TableSpec struct {
	Database string   `yaml:"database" json:"database"`
	Schema   string   `yaml:"schema" json:"schema"`
	Table    string   `yaml:"table" json:"table"`
	Columns  []string `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// QualifiedName returns the fully qualified database.schema.table name.
func (t TableSpec) QualifiedName() string {
	return t.Database + "." + t.Schema + "." + t.Table
}

// JoinRef describes one join relationship from a column to another
// table.column pair, with a human-readable cardinality description.
type JoinRef struct {
	Reference   string `yaml:"reference" json:"reference"`
	Description string `yaml:"description" json:"description"`
}

// Example pairs a natural-language question with its literal SQL answer.
// Examples are injected verbatim into the grounding payload.
type Example struct {
	UserInput string `yaml:"user_input" json:"user_input"`
	SQLQuery  string `yaml:"sql_query" json:"sql_query"`
}

// UseCase is a named domain configuration: a primary datasource for
// date-range discovery plus the curated schema-context definition.
// Immutable after registration; looked up by name in the registry.
type UseCase struct {
	Name string `yaml:"name"`

	// MainDatasource is the fully qualified table used to discover the
	// available data date range.
	MainDatasource string `yaml:"main_datasource"`

	// DateColumn is the date column of MainDatasource used for MIN/MAX.
	DateColumn string `yaml:"date_column"`

	// Tables lists the source tables exposed to the model. The grounding
	// payload never contains tables outside this list.
	Tables []TableSpec `yaml:"tables"`

	// Descriptions maps table name to curated free-text description.
	Descriptions map[string]string `yaml:"descriptions"`

	// Relationships maps table name, then column name, to join references.
	Relationships map[string]map[string][]JoinRef `yaml:"relationships"`

	// Examples are worked question/SQL pairs included in the payload.
	Examples []Example `yaml:"examples"`
}
