package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/chat"
	"github.com/datatalk-ai/datatalk-engine/pkg/llm"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
	sqlguard "github.com/datatalk-ai/datatalk-engine/pkg/sql"
	"github.com/datatalk-ai/datatalk-engine/pkg/usecase"
)

type fakeSchemaContext struct {
	invalidated []string
}

func (f *fakeSchemaContext) Document(ctx context.Context, uc *models.UseCase) (*models.SchemaContextDocument, error) {
	return &models.SchemaContextDocument{
		Tables: []models.TableContext{
			{Name: "ORDERS", Schema: "SALES", Database: "ANALYTICS"},
		},
	}, nil
}

func (f *fakeSchemaContext) DateRange(ctx context.Context, uc *models.UseCase) (*models.DateRange, error) {
	return &models.DateRange{
		Min: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeSchemaContext) Invalidate(name string) {
	f.invalidated = append(f.invalidated, name)
}

type chatFixture struct {
	svc      ChatService
	session  *chat.Session
	audit    *fakeAuditRepo
	provider *llm.MockProvider
	wh       *warehouse.Mock
}

func newChatFixture(t *testing.T, provider *llm.MockProvider) *chatFixture {
	t.Helper()

	registry, err := usecase.NewRegistry([]models.UseCase{{
		Name:           "sales",
		MainDatasource: "ANALYTICS.SALES.ORDERS",
		DateColumn:     "ORDER_DATE",
		Tables:         []models.TableSpec{{Database: "ANALYTICS", Schema: "SALES", Table: "ORDERS"}},
	}})
	require.NoError(t, err)

	wh := &warehouse.Mock{
		QueryFunc: func(ctx context.Context, sqlQuery string) (*models.ResultTable, error) {
			return &models.ResultTable{
				Columns: []string{"total"},
				Rows:    []map[string]any{{"total": int64(42)}},
			}, nil
		},
	}

	auditRepo := &fakeAuditRepo{}
	logger := zap.NewNop()

	svc := NewChatService(
		registry,
		&fakeSchemaContext{},
		provider,
		NewQueryExecutionService(wh, logger),
		NewAuditService(auditRepo, time.UTC, logger),
		"",
		logger,
	)

	return &chatFixture{
		svc:      svc,
		session:  chat.NewSession(),
		audit:    auditRepo,
		provider: provider,
		wh:       wh,
	}
}

func collectEvents(t *testing.T, f *chatFixture, question string) ([]models.ChatEvent, error) {
	t.Helper()

	events := make(chan models.ChatEvent, 64)
	err := f.svc.AskQuestion(context.Background(), f.session, question, events)
	close(events)

	var collected []models.ChatEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	return collected, err
}

func eventTypes(events []models.ChatEvent) []models.ChatEventType {
	types := make([]models.ChatEventType, len(events))
	for i, ev := range events {
		types[i] = ev.Type
	}
	return types
}

func TestChatService_SelectUseCase(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})

	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))
	assert.True(t, f.session.Active())

	system := f.session.History()[0]
	assert.Equal(t, models.ChatRoleSystem, system.Role)
	assert.Contains(t, system.Content, "available from 2023-01-01 to 2025-03-13")
	assert.Contains(t, system.Content, `"ORDERS"`)
}

func TestChatService_SelectUseCase_Unknown(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})
	err := f.svc.SelectUseCase(context.Background(), f.session, "finance")
	assert.ErrorIs(t, err, apperrors.ErrUnknownUseCase)
}

func TestChatService_AskQuestion_RequiresUseCase(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})
	_, err := collectEvents(t, f, "how many orders?")
	assert.ErrorIs(t, err, apperrors.ErrNoUseCase)
}

func TestChatService_FullTurnWithSQL(t *testing.T) {
	provider := &llm.MockProvider{
		Script: llm.ScriptedAnswer(llm.Usage{PromptTokens: 100, CompletionTokens: 30},
			"We can count the orders directly.\n",
			"```sql\nSELECT COUNT(*) AS total FROM ANALYTICS.SALES.ORDERS\n```"),
	}
	f := newChatFixture(t, provider)
	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))

	events, err := collectEvents(t, f, "how many orders are there?")
	require.NoError(t, err)

	assert.Equal(t, []models.ChatEventType{
		models.ChatEventText,
		models.ChatEventText,
		models.ChatEventSQL,
		models.ChatEventResult,
		models.ChatEventDone,
	}, eventTypes(events))

	// The provider saw the system instruction first, then the question.
	require.Len(t, provider.Calls, 1)
	assert.Equal(t, llm.RoleSystem, provider.Calls[0][0].Role)
	assert.Equal(t, "how many orders are there?", provider.Calls[0][len(provider.Calls[0])-1].Content)

	visible := f.session.VisibleMessages()
	require.Len(t, visible, 2)
	assistant := visible[1]
	require.NotNil(t, assistant.SQL)
	assert.Equal(t, "SELECT COUNT(*) AS total FROM ANALYTICS.SALES.ORDERS", *assistant.SQL)
	require.NotNil(t, assistant.Result)
	assert.Equal(t, 1, assistant.Result.RowCount())
	assert.Equal(t, 100, assistant.Metrics.PromptTokens)

	require.Len(t, f.audit.entries, 1)
	entry := f.audit.entries[0]
	assert.Equal(t, "sales", entry.UseCase)
	assert.Equal(t, f.session.ID(), entry.SessionID)
	require.NotNil(t, entry.SQLQuery)
	require.NotNil(t, entry.QueryResult)
	assert.Contains(t, *entry.QueryResult, "42")
	assert.Nil(t, entry.SQLError)
	assert.Len(t, entry.QuestionID, models.QuestionIDLength)
}

func TestChatService_ProseOnlyTurn(t *testing.T) {
	provider := &llm.MockProvider{
		Script: llm.ScriptedAnswer(llm.Usage{PromptTokens: 50, CompletionTokens: 10},
			"I can only answer questions about the sales data."),
	}
	f := newChatFixture(t, provider)
	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))

	events, err := collectEvents(t, f, "tell me a joke")
	require.NoError(t, err)

	assert.Equal(t, []models.ChatEventType{
		models.ChatEventText,
		models.ChatEventDone,
	}, eventTypes(events))

	require.Len(t, f.audit.entries, 1)
	assert.Nil(t, f.audit.entries[0].SQLQuery)
	assert.Nil(t, f.audit.entries[0].QueryResult)
}

func TestChatService_DenylistedSQLIsRefused(t *testing.T) {
	provider := &llm.MockProvider{
		Script: llm.ScriptedAnswer(llm.Usage{},
			"Sure, removing the table:\n```sql\nDROP TABLE ANALYTICS.SALES.ORDERS\n```"),
	}
	f := newChatFixture(t, provider)
	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))

	queried := false
	f.wh.QueryFunc = func(ctx context.Context, sqlQuery string) (*models.ResultTable, error) {
		queried = true
		return nil, nil
	}

	events, err := collectEvents(t, f, "drop the orders table")
	require.NoError(t, err)

	types := eventTypes(events)
	assert.Contains(t, types, models.ChatEventError)
	assert.Equal(t, models.ChatEventDone, types[len(types)-1])
	assert.False(t, queried)

	var errEvent models.ChatEvent
	for _, ev := range events {
		if ev.Type == models.ChatEventError {
			errEvent = ev
		}
	}
	assert.Equal(t, sqlguard.RefusalMessage, errEvent.Content)

	require.Len(t, f.audit.entries, 1)
	require.NotNil(t, f.audit.entries[0].SQLError)
	assert.Equal(t, sqlguard.RefusalMessage, *f.audit.entries[0].SQLError)
}

func TestChatService_QueryFailureIsCleanedAndAudited(t *testing.T) {
	provider := &llm.MockProvider{
		Script: llm.ScriptedAnswer(llm.Usage{},
			"Here you go:\n```sql\nSELECT missing FROM ANALYTICS.SALES.ORDERS\n```"),
	}
	f := newChatFixture(t, provider)
	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))

	f.wh.QueryFunc = func(ctx context.Context, sqlQuery string) (*models.ResultTable, error) {
		return nil, errors.New("002003: SQL compilation error:\ninvalid identifier 'MISSING'")
	}

	events, err := collectEvents(t, f, "show me the missing column")
	require.NoError(t, err)

	var errEvent models.ChatEvent
	for _, ev := range events {
		if ev.Type == models.ChatEventError {
			errEvent = ev
		}
	}
	assert.Equal(t, "invalid identifier 'MISSING'", errEvent.Content)

	// The error does not end the turn: a done event with the question id
	// still follows, so the answer stays rateable.
	last := events[len(events)-1]
	require.Equal(t, models.ChatEventDone, last.Type)
	payload, ok := last.Data.(DonePayload)
	require.True(t, ok)
	assert.Len(t, payload.QuestionID, models.QuestionIDLength)
	assert.Empty(t, payload.Warning)

	require.Len(t, f.audit.entries, 1)
	require.NotNil(t, f.audit.entries[0].SQLError)
	assert.Equal(t, "invalid identifier 'MISSING'", *f.audit.entries[0].SQLError)
}

func TestChatService_AuditFailureWarnsOnDone(t *testing.T) {
	provider := &llm.MockProvider{
		Script: llm.ScriptedAnswer(llm.Usage{}, "Answer."),
	}
	f := newChatFixture(t, provider)
	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))

	f.audit.insertErr = errors.New("audit store offline")

	events, err := collectEvents(t, f, "how many orders?")
	require.NoError(t, err)

	last := events[len(events)-1]
	require.Equal(t, models.ChatEventDone, last.Type)
	payload, ok := last.Data.(DonePayload)
	require.True(t, ok)
	assert.NotEmpty(t, payload.Warning)

	// The conversation itself is unaffected.
	assert.Len(t, f.session.VisibleMessages(), 2)
}

func TestChatService_StreamFailureKeepsPartialAnswer(t *testing.T) {
	provider := &llm.MockProvider{
		StreamChatFunc: func(ctx context.Context, messages []llm.Message, events chan<- llm.StreamEvent) error {
			events <- llm.StreamEvent{Type: llm.StreamEventDelta, Content: "The query you need"}
			events <- llm.StreamEvent{Type: llm.StreamEventDelta, Content: " is the following"}
			return errors.New("status code 429: rate limit reached")
		},
	}
	f := newChatFixture(t, provider)
	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))

	events, err := collectEvents(t, f, "how many orders?")
	require.NoError(t, err)

	// A fatal stream failure ends the turn with an error event and no done.
	types := eventTypes(events)
	assert.Equal(t, models.ChatEventError, types[len(types)-1])
	assert.NotContains(t, types, models.ChatEventDone)

	visible := f.session.VisibleMessages()
	require.Len(t, visible, 2)
	assert.Equal(t, "The query you need is the following", visible[1].Content)
	require.NotNil(t, visible[1].Error)

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, "The query you need is the following", f.audit.entries[0].FullAnswer)
}

func TestChatService_SecondTurnKeepsHistoryOrder(t *testing.T) {
	provider := &llm.MockProvider{
		Script: llm.ScriptedAnswer(llm.Usage{}, "Answer."),
	}
	f := newChatFixture(t, provider)
	require.NoError(t, f.svc.SelectUseCase(context.Background(), f.session, "sales"))

	_, err := collectEvents(t, f, "first question")
	require.NoError(t, err)
	_, err = collectEvents(t, f, "second question")
	require.NoError(t, err)

	require.Len(t, provider.Calls, 2)
	second := provider.Calls[1]
	// system, q1, a1, q2
	require.Len(t, second, 4)
	assert.Equal(t, "first question", second[1].Content)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	assert.Equal(t, "second question", second[3].Content)
}

func TestChatService_UseCases(t *testing.T) {
	f := newChatFixture(t, &llm.MockProvider{})
	assert.Equal(t, []string{"sales"}, f.svc.UseCases())
}
