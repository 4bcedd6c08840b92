package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
)

type AssessmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Assessment, error)
	// EndedPublished returns all published assessments whose window has
	// closed: homework past its due date, supervised past scheduled_at plus
	// duration.
	EndedPublished(ctx context.Context, now time.Time) ([]models.Assessment, error)
	// DueForReminder returns published supervised assessments scheduled
	// within [from, to] that have not been reminded yet.
	DueForReminder(ctx context.Context, from, to time.Time) ([]models.Assessment, error)
	// MarkReminderSent latches reminder_sent_at. Returns false when another
	// run already set it.
	MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
}

type assessmentRepository struct {
	*PostgresRepository
}

func NewAssessmentRepository(db *sql.DB, logger zerolog.Logger) AssessmentRepository {
	return &assessmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const assessmentColumns = `
	id, class_subject_id, class_id, title, delivery_mode, scheduled_at,
	duration_minutes, due_date, is_published, allow_late_submission,
	reminder_sent_at, created_at, updated_at
`

func scanAssessment(row interface {
	Scan(dest ...interface{}) error
}, a *models.Assessment) error {
	return row.Scan(
		&a.ID,
		&a.ClassSubjectID,
		&a.ClassID,
		&a.Title,
		&a.DeliveryMode,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&a.DueDate,
		&a.IsPublished,
		&a.AllowLateSubmission,
		&a.ReminderSentAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

func (r *assessmentRepository) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	query := `SELECT ` + assessmentColumns + ` FROM assessments WHERE id = $1`

	assessment := &models.Assessment{}
	err := scanAssessment(r.db.QueryRowContext(ctx, query, id), assessment)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return assessment, err
}

func (r *assessmentRepository) EndedPublished(ctx context.Context, now time.Time) ([]models.Assessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE is_published = true
		  AND (
			(delivery_mode = 'homework' AND due_date IS NOT NULL AND due_date < $1)
			OR
			(delivery_mode = 'supervised' AND scheduled_at IS NOT NULL
				AND scheduled_at + make_interval(mins => duration_minutes) < $1)
		  )
		ORDER BY created_at
	`

	return r.queryAssessments(ctx, query, now)
}

func (r *assessmentRepository) DueForReminder(ctx context.Context, from, to time.Time) ([]models.Assessment, error) {
	query := `
		SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE is_published = true
		  AND delivery_mode = 'supervised'
		  AND reminder_sent_at IS NULL
		  AND scheduled_at IS NOT NULL
		  AND scheduled_at >= $1
		  AND scheduled_at <= $2
		ORDER BY scheduled_at
	`

	return r.queryAssessments(ctx, query, from, to)
}

func (r *assessmentRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE assessments
		SET reminder_sent_at = $1, updated_at = $1
		WHERE id = $2 AND reminder_sent_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *assessmentRepository) queryAssessments(ctx context.Context, query string, args ...interface{}) ([]models.Assessment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assessments []models.Assessment
	for rows.Next() {
		var assessment models.Assessment
		if err := scanAssessment(rows, &assessment); err != nil {
			return nil, err
		}
		assessments = append(assessments, assessment)
	}

	return assessments, rows.Err()
}
