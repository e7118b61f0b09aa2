package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/apperrors"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
	"github.com/datatalk-ai/datatalk-engine/pkg/repositories"
	sqlguard "github.com/datatalk-ai/datatalk-engine/pkg/sql"
)

// BugReportService validates and stores user-filed bug reports.
type BugReportService interface {
	Submit(ctx context.Context, email, description, reproductionSteps string) error
}

type bugReportService struct {
	repo         repositories.BugReportRepository
	emailPattern *regexp.Regexp
	location     *time.Location
	logger       *zap.Logger
}

// NewBugReportService creates a bug report service. companyDomain is the
// company label of accepted reporter addresses (e.g. "example" accepts
// anyone@example.com, anyone@example.org).
func NewBugReportService(repo repositories.BugReportRepository, companyDomain string, location *time.Location, logger *zap.Logger) BugReportService {
	pattern := regexp.MustCompile(`^[\w.-]+@` + regexp.QuoteMeta(companyDomain) + `\.\w+$`)
	return &bugReportService{
		repo:         repo,
		emailPattern: pattern,
		location:     location,
		logger:       logger,
	}
}

func (s *bugReportService) Submit(ctx context.Context, email, description, reproductionSteps string) error {
	if description == "" {
		return fmt.Errorf("%w: description is required", apperrors.ErrInvalidReport)
	}
	if !s.emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidEmail, email)
	}

	findings := sqlguard.CheckFields(map[string]string{
		"description":        description,
		"reproduction_steps": reproductionSteps,
	})
	if len(findings) > 0 {
		for _, f := range findings {
			s.logger.Warn("bug report field failed injection screening",
				zap.String("field", f.Field),
				zap.String("fingerprint", f.Fingerprint))
		}
		return fmt.Errorf("%w: failed security screening", apperrors.ErrInvalidReport)
	}

	report := &models.BugReport{
		ReporterEmail:     email,
		Description:       description,
		ReproductionSteps: reproductionSteps,
		ReportedOn:        time.Now().In(s.location),
	}
	if err := s.repo.Insert(ctx, report); err != nil {
		return err
	}

	s.logger.Info("bug report submitted", zap.String("reporter", email))
	return nil
}
