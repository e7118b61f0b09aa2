// Package llm provides streaming completion-provider clients and the
// response accumulation used to turn a delta stream into a final answer.
package llm

import (
	"context"
)

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry in the conversation sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage carries the provider's token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// StreamEventType defines types of streaming events.
type StreamEventType string

const (
	StreamEventDelta StreamEventType = "delta"
	StreamEventUsage StreamEventType = "usage"
	StreamEventDone  StreamEventType = "done"
	StreamEventError StreamEventType = "error"
)

// StreamEvent represents a streaming event from a completion provider.
type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
	Usage   *Usage          `json:"usage,omitempty"`
}

// CompletionProvider streams chat completions. Implementations emit zero or
// more delta events in delivery order, at most one usage event, then a
// done event (or an error event, mirrored by the returned error).
// Generation is deterministic: temperature is pinned to zero.
//
// The caller owns the event channel; providers write to it but never close
// it, so the caller controls the channel lifecycle.
type CompletionProvider interface {
	StreamChat(ctx context.Context, messages []Message, events chan<- StreamEvent) error

	// Model returns the configured model name.
	Model() string
}

// Config holds configuration for creating a completion provider.
type Config struct {
	Provider     string // "openai" or "anthropic"
	Endpoint     string // Optional base URL override
	Model        string // Model name, e.g. "gpt-4o"
	APIKey       string
	Organization string // OpenAI organization, optional
}
