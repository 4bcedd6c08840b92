package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
)

// ExpiryService force-submits in-progress supervised assignments whose time
// has run out. A student's personal deadline (started_at + duration) is
// the primary cutoff; as a fallback the globally announced window end closes
// the attempt even when the personal deadline is still ahead, so a late
// starter cannot run indefinitely past the scheduled session.
type ExpiryService interface {
	Run(ctx context.Context, dryRun bool) (*models.JobReport, error)
}

type expiryService struct {
	assignmentRepo    repository.AssignmentRepository
	assignmentService AssignmentService
	logger            zerolog.Logger
	now               func() time.Time
}

func NewExpiryService(
	assignmentRepo repository.AssignmentRepository,
	assignmentService AssignmentService,
	now func() time.Time,
	logger zerolog.Logger,
) ExpiryService {
	if now == nil {
		now = time.Now
	}
	return &expiryService{
		assignmentRepo:    assignmentRepo,
		assignmentService: assignmentService,
		logger:            logger,
		now:               now,
	}
}

func (s *expiryService) Run(ctx context.Context, dryRun bool) (*models.JobReport, error) {
	now := s.now()
	report := &models.JobReport{DryRun: dryRun}

	candidates, err := s.assignmentRepo.InProgressSupervised(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress assignments: %w", err)
	}

	for i := range candidates {
		candidate := &candidates[i]
		report.Processed++

		if !expired(candidate, now) {
			continue
		}

		if dryRun {
			report.Submitted++
			continue
		}

		submitted, err := s.assignmentService.ForceSubmit(ctx, candidate.ID, models.SecurityViolationTimeExpired)
		if err != nil {
			s.logger.Error().Err(err).
				Str("assignment_id", candidate.ID).
				Msg("Failed to force-submit expired assignment, skipping row")
			report.Skipped++
			continue
		}
		if submitted {
			report.Submitted++
		}
	}

	s.logger.Info().
		Int("submitted", report.Submitted).
		Int("skipped", report.Skipped).
		Bool("dry_run", dryRun).
		Msg("Expiry enforcement finished")

	return report, nil
}

func expired(candidate *models.AssignmentWithAssessment, now time.Time) bool {
	if deadline, ok := candidate.PersonalDeadline(candidate.Assessment.Duration()); ok && now.After(deadline) {
		return true
	}
	// Global-window fallback: the announced end closes every attempt.
	if end, ok := candidate.Assessment.WindowEnd(); ok && now.After(end) {
		return true
	}
	return false
}
