// Package chat holds the per-conversation state: the ordered message
// history anchored by the system instruction, and the turn lifecycle.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// Session is one conversation. A session starts uninitialized; selecting a
// use case installs the system instruction as the first history entry and
// activates it. At most one turn is in flight at a time.
//
// Safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	createdAt time.Time

	useCase  string
	history  []models.ChatMessage
	inFlight bool
}

// NewSession returns an uninitialized session with a fresh id.
func NewSession() *Session {
	return &Session{
		id:        uuid.NewString(),
		createdAt: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// UseCase returns the selected use case name, empty while uninitialized.
func (s *Session) UseCase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useCase
}

// Active reports whether a use case has been selected.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useCase != ""
}

// SelectUseCase activates the session for a use case. Any prior history is
// discarded; the new history starts with the system instruction.
func (s *Session) SelectUseCase(name, systemInstruction string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.useCase = name
	s.inFlight = false
	s.history = []models.ChatMessage{
		{Role: models.ChatRoleSystem, Content: systemInstruction},
	}
}

// BeginTurn appends the user question to the history and returns a copy of
// the full history for the completion request. Fails when no use case is
// selected or another turn is still in flight.
func (s *Session) BeginTurn(questionID, question string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.useCase == "" {
		return nil, apperrors.ErrNoUseCase
	}
	if s.inFlight {
		return nil, apperrors.ErrTurnInFlight
	}

	s.inFlight = true
	s.history = append(s.history, models.ChatMessage{
		Role:       models.ChatRoleUser,
		Content:    question,
		QuestionID: questionID,
	})

	return s.copyHistory(), nil
}

// CompleteTurn appends the assistant message for the in-flight turn and
// releases it. The assistant message is appended even when the turn failed,
// so the partial answer stays visible and auditable.
func (s *Session) CompleteTurn(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.inFlight {
		return
	}
	s.inFlight = false

	msg.Role = models.ChatRoleAssistant
	s.history = append(s.history, msg)
}

// Clear resets the history to the system instruction alone. The selected
// use case is kept.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) == 0 {
		return
	}
	s.history = s.history[:1]
	s.inFlight = false
}

// History returns a copy of the full history including the system entry.
func (s *Session) History() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyHistory()
}

// VisibleMessages returns a copy of the history without the system entry,
// in conversation order. This is what the UI renders.
func (s *Session) VisibleMessages() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.history) <= 1 {
		return []models.ChatMessage{}
	}
	visible := make([]models.ChatMessage, len(s.history)-1)
	copy(visible, s.history[1:])
	return visible
}

func (s *Session) copyHistory() []models.ChatMessage {
	history := make([]models.ChatMessage, len(s.history))
	copy(history, s.history)
	return history
}
