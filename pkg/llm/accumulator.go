package llm

import (
	"strings"

	sqlguard "github.com/datatalk-ai/datatalk-engine/pkg/sql"
)

// FinalResponse is the folded result of a completed (or interrupted)
// completion stream.
type FinalResponse struct {
	Text  string
	Usage Usage
	// SQL is the contents of the first fenced SQL block in the answer,
	// nil when the answer is prose-only.
	SQL *string
}

// Accumulator folds an ordered delta stream into the full answer text.
// Appends are strictly append-only, so when a stream fails mid-flight the
// partial text accumulated so far is retained and can still be shown and
// audited.
type Accumulator struct {
	sb        strings.Builder
	usage     Usage
	usageSeen bool
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Consume folds one stream event. Delta content is appended in arrival
// order; only the first usage record is kept.
func (a *Accumulator) Consume(ev StreamEvent) {
	switch ev.Type {
	case StreamEventDelta:
		a.sb.WriteString(ev.Content)
	case StreamEventUsage:
		if ev.Usage != nil && !a.usageSeen {
			a.usage = *ev.Usage
			a.usageSeen = true
		}
	}
}

// Text returns the answer accumulated so far.
func (a *Accumulator) Text() string {
	return a.sb.String()
}

// Usage returns the recorded token usage, zero-valued when the stream ended
// before a usage record arrived.
func (a *Accumulator) Usage() Usage {
	return a.usage
}

// Finalize returns the complete response, extracting the first fenced SQL
// block from the answer text if one is present.
func (a *Accumulator) Finalize() FinalResponse {
	resp := FinalResponse{
		Text:  a.sb.String(),
		Usage: a.usage,
	}
	if query, ok := sqlguard.ExtractSQL(resp.Text); ok {
		resp.SQL = &query
	}
	return resp
}
