package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
	"github.com/classtrack/assessment-service/internal/service/integration"
	"github.com/classtrack/assessment-service/internal/worker"
)

// ReminderService notifies every actively enrolled student once when a
// supervised assessment is about to start. reminder_sent_at is latched whether
// or not any student existed to notify, so an empty roster is not re-evaluated
// every tick; individual delivery failures are logged and never block the
// remaining students or the latch.
type ReminderService interface {
	Run(ctx context.Context) (*models.JobReport, error)
}

type ReminderConfig struct {
	Lookahead  time.Duration
	MaxWorkers int
	URLBase    string
}

type reminderService struct {
	assessmentRepo repository.AssessmentRepository
	enrollmentRepo repository.EnrollmentRepository
	notifier       integration.NotificationClient
	cfg            ReminderConfig
	logger         zerolog.Logger
	now            func() time.Time
}

func NewReminderService(
	assessmentRepo repository.AssessmentRepository,
	enrollmentRepo repository.EnrollmentRepository,
	notifier integration.NotificationClient,
	cfg ReminderConfig,
	now func() time.Time,
	logger zerolog.Logger,
) ReminderService {
	if now == nil {
		now = time.Now
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 15 * time.Minute
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 4
	}
	return &reminderService{
		assessmentRepo: assessmentRepo,
		enrollmentRepo: enrollmentRepo,
		notifier:       notifier,
		cfg:            cfg,
		logger:         logger,
		now:            now,
	}
}

func (s *reminderService) Run(ctx context.Context) (*models.JobReport, error) {
	now := s.now()
	report := &models.JobReport{}

	assessments, err := s.assessmentRepo.DueForReminder(ctx, now, now.Add(s.cfg.Lookahead))
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments due for reminder: %w", err)
	}
	if len(assessments) == 0 {
		return report, nil
	}

	pool := worker.NewPool(s.cfg.MaxWorkers, s.logger)
	pool.Start()
	defer pool.Stop()

	for i := range assessments {
		assessment := &assessments[i]
		report.Processed++

		enrollments, err := s.enrollmentRepo.ActiveByClass(ctx, assessment.ClassID)
		if err != nil {
			// Directory unavailable for this class: leave the latch
			// unset so the next tick retries.
			s.logger.Error().Err(err).
				Str("assessment_id", assessment.ID).
				Msg("Failed to list enrollments, skipping assessment")
			report.Skipped++
			continue
		}

		var delivered int64
		for _, enrollment := range enrollments {
			event := &models.AssessmentStartingSoonEvent{
				Type:            models.NotificationAssessmentStartingSoon,
				StudentID:       enrollment.StudentID,
				AssessmentID:    assessment.ID,
				AssessmentTitle: assessment.Title,
				ScheduledAt:     *assessment.ScheduledAt,
				URL:             fmt.Sprintf("%s/assessments/%s", s.cfg.URLBase, assessment.ID),
			}

			pool.Submit(func() {
				if err := s.notifier.Notify(ctx, event); err != nil {
					s.logger.Error().Err(err).
						Str("student_id", event.StudentID).
						Str("assessment_id", event.AssessmentID).
						Msg("Failed to deliver reminder")
					return
				}
				atomic.AddInt64(&delivered, 1)
			})
		}

		pool.Wait()
		report.Notified += int(atomic.LoadInt64(&delivered))

		if _, err := s.assessmentRepo.MarkReminderSent(ctx, assessment.ID, s.now()); err != nil {
			s.logger.Error().Err(err).
				Str("assessment_id", assessment.ID).
				Msg("Failed to latch reminder timestamp")
			report.Skipped++
		}
	}

	s.logger.Info().
		Int("assessments", report.Processed).
		Int("notified", report.Notified).
		Msg("Reminder dispatch finished")

	return report, nil
}
