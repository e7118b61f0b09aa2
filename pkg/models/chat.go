package models

import "time"

// ChatRole represents the role of a chat message sender.
type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ResultTable holds a tabular query result with stable column order.
type ResultTable struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// RowCount returns the number of rows in the table.
func (t *ResultTable) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// TurnMetrics carries token and timing measurements for one assistant turn.
type TurnMetrics struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	ResponseSeconds  float64 `json:"response_seconds"`
	QuerySeconds     float64 `json:"query_seconds"`
}

// ChatMessage is one entry in a session's ordered history. Assistant
// messages additionally carry the extracted SQL, its result or error, and
// the turn metrics. Messages are appended, never mutated, except to attach
// execution results immediately after generation.
type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`

	// Assistant-only fields.
	QuestionID string       `json:"question_id,omitempty"`
	SQL        *string      `json:"sql,omitempty"`
	Result     *ResultTable `json:"result,omitempty"`
	Error      *string      `json:"error,omitempty"`
	Metrics    TurnMetrics  `json:"metrics,omitempty"`
}

// DateRange is the available data window for a use case's primary
// datasource, discovered with a single MIN/MAX aggregate.
type DateRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// ChatEventType represents the type of a streaming chat event.
type ChatEventType string

const (
	ChatEventText   ChatEventType = "text"
	ChatEventSQL    ChatEventType = "sql"
	ChatEventResult ChatEventType = "result"
	ChatEventDone   ChatEventType = "done"
	ChatEventError  ChatEventType = "error"
)

// ChatEvent represents a streaming event emitted while answering a turn.
type ChatEvent struct {
	Type    ChatEventType `json:"type"`
	Content string        `json:"content,omitempty"`
	Data    any           `json:"data,omitempty"`
}

// NewTextEvent creates a text delta event.
func NewTextEvent(content string) ChatEvent {
	return ChatEvent{Type: ChatEventText, Content: content}
}

// NewSQLEvent announces the SQL statement extracted from the answer.
func NewSQLEvent(sql string) ChatEvent {
	return ChatEvent{Type: ChatEventSQL, Content: sql}
}

// NewResultEvent carries the execution result (or refusal/error text).
func NewResultEvent(data any) ChatEvent {
	return ChatEvent{Type: ChatEventResult, Data: data}
}

// NewDoneEvent terminates a turn's event stream.
func NewDoneEvent(data any) ChatEvent {
	return ChatEvent{Type: ChatEventDone, Data: data}
}

// NewErrorEvent reports a failed turn.
func NewErrorEvent(message string) ChatEvent {
	return ChatEvent{Type: ChatEventError, Content: message}
}
