package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
	"github.com/datatalk-ai/datatalk-engine/pkg/repositories"
	"github.com/datatalk-ai/datatalk-engine/pkg/retry"
	sqlguard "github.com/datatalk-ai/datatalk-engine/pkg/sql"
)

// AuditService records question/answer cycles and attaches user feedback.
type AuditService interface {
	// RecordTurn persists one completed turn. DS and Timestamp are stamped
	// in the audit timezone when unset.
	RecordTurn(ctx context.Context, entry *models.AuditEntry) error

	// SubmitFeedback validates and stores a feedback score with optional
	// free text for a question id.
	SubmitFeedback(ctx context.Context, questionID string, score float64, text string) error
}

type auditService struct {
	repo     repositories.AuditRepository
	location *time.Location
	logger   *zap.Logger
}

// NewAuditService creates an audit service stamping entries in the given
// timezone.
func NewAuditService(repo repositories.AuditRepository, location *time.Location, logger *zap.Logger) AuditService {
	return &auditService{repo: repo, location: location, logger: logger}
}

func (s *auditService) RecordTurn(ctx context.Context, entry *models.AuditEntry) error {
	if entry.QuestionID == "" {
		return fmt.Errorf("audit entry requires a question id")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().In(s.location)
	}
	if entry.DS.IsZero() {
		y, m, d := entry.Timestamp.Date()
		entry.DS = time.Date(y, m, d, 0, 0, 0, 0, s.location)
	}

	// A lost audit row cannot be recovered later, so transient warehouse
	// failures are worth a few retries.
	return retry.DoIfRetryable(ctx, nil, func() error {
		return s.repo.InsertEntry(ctx, entry)
	})
}

func (s *auditService) SubmitFeedback(ctx context.Context, questionID string, score float64, text string) error {
	if !models.IsValidFeedbackScore(score) {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidFeedback, score)
	}

	if finding := sqlguard.CheckTextForInjection("feedback_text", text); finding != nil {
		s.logger.Warn("feedback text failed injection screening",
			zap.String("question_id", questionID),
			zap.String("fingerprint", finding.Fingerprint))
		return fmt.Errorf("feedback text failed security screening")
	}

	return s.repo.UpdateFeedback(ctx, questionID, score, text)
}
