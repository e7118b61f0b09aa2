// Package repositories persists audit records into the warehouse-hosted
// audit tables through the warehouse adapter's parameterized Exec.
package repositories

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// AuditRepository persists question/answer audit entries.
type AuditRepository interface {
	// InsertEntry appends one audit entry. Entries are append-only.
	InsertEntry(ctx context.Context, entry *models.AuditEntry) error

	// UpdateFeedback attaches a feedback score and optional text to the
	// entry with the given question id. Returns apperrors.ErrNotFound when
	// no entry matches.
	UpdateFeedback(ctx context.Context, questionID string, score float64, text string) error
}

type auditRepository struct {
	wh     warehouse.Warehouse
	tables warehouse.AuditTables
	logger *zap.Logger
}

// NewAuditRepository creates an audit repository over the given warehouse.
func NewAuditRepository(wh warehouse.Warehouse, tables warehouse.AuditTables, logger *zap.Logger) AuditRepository {
	return &auditRepository{wh: wh, tables: tables, logger: logger}
}

var auditColumns = []string{
	"QUESTION_ID", "DS", "TIMESTAMP", "SESSION_ID",
	"QUESTION", "FULL_ANSWER", "SQL_QUERY", "QUERY_RESULT", "SQL_ERROR",
	"PROMPT_TOKENS", "COMPLETION_TOKENS", "AI_RESPONSE_TIME", "QUERY_TIME",
	"USE_CASE", "FEEDBACK_SCORE", "FEEDBACK_TEXT",
}

func (r *auditRepository) InsertEntry(ctx context.Context, entry *models.AuditEntry) error {
	placeholders := make([]string, len(auditColumns))
	for i := range placeholders {
		placeholders[i] = r.wh.Placeholder(i + 1)
	}

	statement := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.tables.ChatHistoryName(),
		strings.Join(auditColumns, ", "),
		strings.Join(placeholders, ", "),
	)

	_, err := r.wh.Exec(ctx, statement,
		entry.QuestionID,
		entry.DS,
		entry.Timestamp,
		entry.SessionID,
		entry.Question,
		entry.FullAnswer,
		entry.SQLQuery,
		entry.QueryResult,
		entry.SQLError,
		entry.PromptTokens,
		entry.CompletionTokens,
		entry.AIResponseTime,
		entry.QueryTime,
		entry.UseCase,
		entry.FeedbackScore,
		entry.FeedbackText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	r.logger.Debug("audit entry recorded",
		zap.String("question_id", entry.QuestionID),
		zap.String("use_case", entry.UseCase))
	return nil
}

func (r *auditRepository) UpdateFeedback(ctx context.Context, questionID string, score float64, text string) error {
	statement := fmt.Sprintf(
		"UPDATE %s SET FEEDBACK_SCORE = %s, FEEDBACK_TEXT = %s WHERE QUESTION_ID = %s",
		r.tables.ChatHistoryName(),
		r.wh.Placeholder(1),
		r.wh.Placeholder(2),
		r.wh.Placeholder(3),
	)

	affected, err := r.wh.Exec(ctx, statement, score, text, questionID)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("audit entry %s: %w", questionID, apperrors.ErrNotFound)
	}
	return nil
}
