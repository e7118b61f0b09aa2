package llm

import (
	"context"
)

// MockProvider is a test double for CompletionProvider. Set Script to have
// StreamChat replay a fixed event sequence, or StreamChatFunc for full
// control.
type MockProvider struct {
	Script         []StreamEvent
	ScriptErr      error
	StreamChatFunc func(ctx context.Context, messages []Message, events chan<- StreamEvent) error
	ModelName      string

	// Calls records the message lists passed to StreamChat.
	Calls [][]Message
}

func (m *MockProvider) StreamChat(ctx context.Context, messages []Message, events chan<- StreamEvent) error {
	m.Calls = append(m.Calls, messages)

	if m.StreamChatFunc != nil {
		return m.StreamChatFunc(ctx, messages, events)
	}

	for _, ev := range m.Script {
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.ScriptErr
}

func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// ScriptedAnswer builds the event sequence a provider would emit for the
// given answer text split into deltas, with usage and done.
func ScriptedAnswer(usage Usage, deltas ...string) []StreamEvent {
	events := make([]StreamEvent, 0, len(deltas)+2)
	for _, d := range deltas {
		events = append(events, StreamEvent{Type: StreamEventDelta, Content: d})
	}
	events = append(events,
		StreamEvent{Type: StreamEventUsage, Usage: &usage},
		StreamEvent{Type: StreamEventDone},
	)
	return events
}
