package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/chat"
	"github.com/datatalk-ai/datatalk-engine/pkg/llm"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
	"github.com/datatalk-ai/datatalk-engine/pkg/prompts"
	"github.com/datatalk-ai/datatalk-engine/pkg/usecase"
)

// ResultPayload is the data attached to a result event.
type ResultPayload struct {
	Table *models.ResultTable     `json:"table"`
	Chart *models.ChartSuggestion `json:"chart,omitempty"`
}

// DonePayload is the data attached to a done event.
type DonePayload struct {
	QuestionID string             `json:"question_id"`
	Metrics    models.TurnMetrics `json:"metrics"`
	// Warning is set when the turn completed but its audit record could
	// not be written, so feedback for it may be lost.
	Warning string `json:"warning,omitempty"`
}

// ChatService orchestrates conversations: use-case activation, question
// turns with streaming, SQL execution and audit logging.
type ChatService interface {
	// UseCases lists the configured use case names.
	UseCases() []string

	// SelectUseCase grounds the session in a use case, building the system
	// instruction from live schema context and the data date range.
	SelectUseCase(ctx context.Context, session *chat.Session, name string) error

	// AskQuestion runs one question turn, emitting events to the channel
	// as the answer streams, executes extracted SQL and records the audit
	// entry. The channel is not closed. An error is returned only when
	// the turn could not start; once the turn runs, every outcome is
	// delivered as events: completed turns end with a done event (SQL
	// failures emit an error event first, then done), and a fatal stream
	// failure ends with an error event and no done.
	AskQuestion(ctx context.Context, session *chat.Session, question string, events chan<- models.ChatEvent) error
}

type chatService struct {
	registry       *usecase.Registry
	schemaContext  SchemaContextService
	provider       llm.CompletionProvider
	execution      QueryExecutionService
	audit          AuditService
	supportContact string
	logger         *zap.Logger
}

// NewChatService creates the chat orchestration service.
func NewChatService(
	registry *usecase.Registry,
	schemaContext SchemaContextService,
	provider llm.CompletionProvider,
	execution QueryExecutionService,
	audit AuditService,
	supportContact string,
	logger *zap.Logger,
) ChatService {
	return &chatService{
		registry:       registry,
		schemaContext:  schemaContext,
		provider:       provider,
		execution:      execution,
		audit:          audit,
		supportContact: supportContact,
		logger:         logger,
	}
}

func (s *chatService) UseCases() []string {
	return s.registry.Names()
}

func (s *chatService) SelectUseCase(ctx context.Context, session *chat.Session, name string) error {
	uc, err := s.registry.Get(name)
	if err != nil {
		return err
	}

	doc, err := s.schemaContext.Document(ctx, uc)
	if err != nil {
		return err
	}
	contextJSON, err := doc.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize schema context: %w", err)
	}

	dateRange, err := s.schemaContext.DateRange(ctx, uc)
	if err != nil {
		return err
	}
	if dateRange == nil {
		return fmt.Errorf("no data found for use case %s", name)
	}

	systemPrompt, err := prompts.AssembleSystemPrompt(prompts.Params{
		ContextJSON:    contextJSON,
		Today:          time.Now(),
		MinDate:        dateRange.Min,
		MaxDate:        dateRange.Max,
		SupportContact: s.supportContact,
	})
	if err != nil {
		return err
	}

	session.SelectUseCase(name, systemPrompt)
	s.logger.Info("use case selected",
		zap.String("session_id", session.ID()),
		zap.String("use_case", name))
	return nil
}

func (s *chatService) AskQuestion(ctx context.Context, session *chat.Session, question string, events chan<- models.ChatEvent) error {
	questionID := models.NewQuestionID()

	history, err := session.BeginTurn(questionID, question)
	if err != nil {
		return err
	}

	aiStart := time.Now()
	acc := llm.NewAccumulator()
	streamErr := s.streamCompletion(ctx, history, acc, events)
	aiSeconds := time.Since(aiStart).Seconds()

	final := acc.Finalize()

	assistantMsg := models.ChatMessage{
		Content:    final.Text,
		QuestionID: questionID,
		Metrics: models.TurnMetrics{
			PromptTokens:     final.Usage.PromptTokens,
			CompletionTokens: final.Usage.CompletionTokens,
			ResponseSeconds:  aiSeconds,
		},
	}

	entry := &models.AuditEntry{
		QuestionID:       questionID,
		SessionID:        session.ID(),
		Question:         question,
		FullAnswer:       final.Text,
		PromptTokens:     final.Usage.PromptTokens,
		CompletionTokens: final.Usage.CompletionTokens,
		AIResponseTime:   aiSeconds,
		UseCase:          session.UseCase(),
	}

	if streamErr != nil {
		// Partial text is kept visible and audited. The error event is
		// the terminal frame for this turn; no done follows.
		s.logger.Error("completion stream failed",
			zap.String("question_id", questionID),
			zap.Error(streamErr))
		msg := userFacingStreamError(streamErr)
		assistantMsg.Error = &msg
		sendChatEvent(ctx, events, models.NewErrorEvent(msg))
		s.finishTurn(ctx, session, assistantMsg, entry)
		return nil
	}

	if final.SQL != nil {
		assistantMsg.SQL = final.SQL
		entry.SQLQuery = final.SQL
		sendChatEvent(ctx, events, models.NewSQLEvent(*final.SQL))

		outcome := s.execution.Execute(ctx, *final.SQL)
		assistantMsg.Metrics.QuerySeconds = outcome.QuerySeconds
		entry.QueryTime = outcome.QuerySeconds

		switch {
		case outcome.Refused:
			assistantMsg.Error = &outcome.RefusalMessage
			entry.SQLError = &outcome.RefusalMessage
			sendChatEvent(ctx, events, models.NewErrorEvent(outcome.RefusalMessage))

		case outcome.Failed():
			errText := outcome.Error
			assistantMsg.Error = &errText
			entry.SQLError = &errText
			sendChatEvent(ctx, events, models.NewErrorEvent(errText))

		default:
			assistantMsg.Result = outcome.Result
			entry.QueryResult = serializeResult(outcome.Result)
			sendChatEvent(ctx, events, models.NewResultEvent(ResultPayload{
				Table: outcome.Result,
				Chart: SuggestChart(outcome.Result),
			}))
		}
	}

	payload := DonePayload{
		QuestionID: questionID,
		Metrics:    assistantMsg.Metrics,
	}
	if err := s.finishTurn(ctx, session, assistantMsg, entry); err != nil {
		payload.Warning = "This answer could not be archived, so feedback on it may not be recorded."
	}
	sendChatEvent(ctx, events, models.NewDoneEvent(payload))
	return nil
}

// streamCompletion runs the provider stream, folding events into the
// accumulator and forwarding text deltas to the caller.
func (s *chatService) streamCompletion(ctx context.Context, history []models.ChatMessage, acc *llm.Accumulator, events chan<- models.ChatEvent) error {
	llmEvents := make(chan llm.StreamEvent, 32)
	errCh := make(chan error, 1)

	go func() {
		errCh <- s.provider.StreamChat(ctx, toProviderMessages(history), llmEvents)
	}()

	handle := func(ev llm.StreamEvent) {
		acc.Consume(ev)
		if ev.Type == llm.StreamEventDelta {
			sendChatEvent(ctx, events, models.NewTextEvent(ev.Content))
		}
	}

	for {
		select {
		case ev := <-llmEvents:
			handle(ev)
		case err := <-errCh:
			// Provider finished; drain anything still buffered.
			for {
				select {
				case ev := <-llmEvents:
					handle(ev)
				default:
					return err
				}
			}
		}
	}
}

// finishTurn closes the session turn and records the audit entry. An audit
// failure is logged and returned so the caller can flag it on the done
// event; it never aborts the conversation.
func (s *chatService) finishTurn(ctx context.Context, session *chat.Session, msg models.ChatMessage, entry *models.AuditEntry) error {
	session.CompleteTurn(msg)

	if err := s.audit.RecordTurn(ctx, entry); err != nil {
		s.logger.Error("failed to record audit entry",
			zap.String("question_id", entry.QuestionID),
			zap.Error(err))
		return err
	}
	return nil
}

func toProviderMessages(history []models.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		out = append(out, llm.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}

func serializeResult(result *models.ResultTable) *string {
	if result == nil {
		return nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func userFacingStreamError(err error) string {
	if classified := llm.ClassifyError(err); classified != nil {
		return classified.Message
	}
	return "the assistant could not finish its answer"
}

func sendChatEvent(ctx context.Context, events chan<- models.ChatEvent, ev models.ChatEvent) {
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
