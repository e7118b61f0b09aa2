package models

// ChartKind is a chart type the render sink can draw.
type ChartKind string

const (
	ChartKindLine ChartKind = "line"
	ChartKindBar  ChartKind = "bar"
)

// ChartSuggestion is a chart configuration derived from a result table:
// chart kind plus x and y column names. The engine only suggests; drawing
// is the render sink's job.
type ChartSuggestion struct {
	Kind    ChartKind `json:"kind"`
	XColumn string    `json:"x_column"`
	YColumn string    `json:"y_column"`
}
