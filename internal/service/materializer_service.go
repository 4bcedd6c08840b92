package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
)

// MaterializerService creates the missing assignment rows for every active
// enrollment of an ended, published assessment. Re-running it is always safe:
// existing assignments are never overwritten or deleted, and the
// (assessment_id, enrollment_id) uniqueness constraint turns duplicate runs
// into no-ops.
type MaterializerService interface {
	Run(ctx context.Context, dryRun bool) (*models.JobReport, error)
}

type materializerService struct {
	assessmentRepo repository.AssessmentRepository
	enrollmentRepo repository.EnrollmentRepository
	assignmentRepo repository.AssignmentRepository
	logger         zerolog.Logger
	now            func() time.Time
}

func NewMaterializerService(
	assessmentRepo repository.AssessmentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	assignmentRepo repository.AssignmentRepository,
	now func() time.Time,
	logger zerolog.Logger,
) MaterializerService {
	if now == nil {
		now = time.Now
	}
	return &materializerService{
		assessmentRepo: assessmentRepo,
		enrollmentRepo: enrollmentRepo,
		assignmentRepo: assignmentRepo,
		logger:         logger,
		now:            now,
	}
}

func (s *materializerService) Run(ctx context.Context, dryRun bool) (*models.JobReport, error) {
	now := s.now()
	report := &models.JobReport{DryRun: dryRun}

	assessments, err := s.assessmentRepo.EndedPublished(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list ended assessments: %w", err)
	}

	for i := range assessments {
		assessment := &assessments[i]
		report.Processed++

		enrollments, err := s.enrollmentRepo.ActiveByClass(ctx, assessment.ClassID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("assessment_id", assessment.ID).
				Msg("Failed to list enrollments, skipping assessment")
			report.Skipped++
			continue
		}

		for _, enrollment := range enrollments {
			created, err := s.materialize(ctx, assessment, &enrollment, now, dryRun)
			if err != nil {
				s.logger.Error().Err(err).
					Str("assessment_id", assessment.ID).
					Str("enrollment_id", enrollment.ID).
					Msg("Failed to materialize assignment, skipping row")
				report.Skipped++
				continue
			}
			if created {
				report.Created++
			}
		}
	}

	s.logger.Info().
		Int("created", report.Created).
		Int("skipped", report.Skipped).
		Bool("dry_run", dryRun).
		Msg("Assignment materialization finished")

	return report, nil
}

func (s *materializerService) materialize(ctx context.Context, assessment *models.Assessment, enrollment *models.Enrollment, now time.Time, dryRun bool) (bool, error) {
	if dryRun {
		existing, err := s.assignmentRepo.GetByAssessmentAndEnrollment(ctx, assessment.ID, enrollment.ID)
		if err != nil {
			return false, err
		}
		return existing == nil, nil
	}

	assignment := &models.Assignment{
		ID:           uuid.New().String(),
		AssessmentID: assessment.ID,
		EnrollmentID: enrollment.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return s.assignmentRepo.CreateIfAbsent(ctx, assignment)
}
