package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
)

// SubmissionFields is the set of columns written by the single
// in_progress -> submitted transition. Score and GradedAt are set together
// when the assessment has no manually-graded questions.
type SubmissionFields struct {
	SubmittedAt       time.Time
	AutoScore         float64
	Score             *float64
	GradedAt          *time.Time
	Forced            bool
	SecurityViolation *string
}

type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	GetByAssessmentAndEnrollment(ctx context.Context, assessmentID, enrollmentID string) (*models.Assignment, error)
	// CreateIfAbsent inserts the assignment unless one already exists for
	// its (assessment_id, enrollment_id) pair. Returns false when the row
	// was already there; losing that race is a no-op, not an error.
	CreateIfAbsent(ctx context.Context, assignment *models.Assignment) (bool, error)
	// MarkStarted sets started_at iff it is still null.
	MarkStarted(ctx context.Context, id string, at time.Time) (bool, error)
	// CompareAndSetSubmitted applies the submission transition iff
	// submitted_at is still null. Returns false when a concurrent writer
	// submitted first.
	CompareAndSetSubmitted(ctx context.Context, id string, fields SubmissionFields) (bool, error)
	// InProgressSupervised returns assignments with started_at set and
	// submitted_at null belonging to published supervised assessments,
	// joined with their assessment.
	InProgressSupervised(ctx context.Context) ([]models.AssignmentWithAssessment, error)
}

type assignmentRepository struct {
	*PostgresRepository
}

func NewAssignmentRepository(db *sql.DB, logger zerolog.Logger) AssignmentRepository {
	return &assignmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const assignmentColumns = `
	id, assessment_id, enrollment_id, started_at, submitted_at, graded_at,
	score, auto_score, teacher_notes, forced_submission, security_violation,
	created_at, updated_at
`

func scanAssignment(row interface {
	Scan(dest ...interface{}) error
}, a *models.Assignment) error {
	return row.Scan(
		&a.ID,
		&a.AssessmentID,
		&a.EnrollmentID,
		&a.StartedAt,
		&a.SubmittedAt,
		&a.GradedAt,
		&a.Score,
		&a.AutoScore,
		&a.TeacherNotes,
		&a.ForcedSubmission,
		&a.SecurityViolation,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`

	assignment := &models.Assignment{}
	err := scanAssignment(r.db.QueryRowContext(ctx, query, id), assignment)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return assignment, err
}

func (r *assignmentRepository) GetByAssessmentAndEnrollment(ctx context.Context, assessmentID, enrollmentID string) (*models.Assignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE assessment_id = $1 AND enrollment_id = $2
	`

	assignment := &models.Assignment{}
	err := scanAssignment(r.db.QueryRowContext(ctx, query, assessmentID, enrollmentID), assignment)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return assignment, err
}

func (r *assignmentRepository) CreateIfAbsent(ctx context.Context, assignment *models.Assignment) (bool, error) {
	query := `
		INSERT INTO assignments (
			id, assessment_id, enrollment_id, started_at, submitted_at,
			graded_at, score, auto_score, teacher_notes, forced_submission,
			security_violation, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (assessment_id, enrollment_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		assignment.ID,
		assignment.AssessmentID,
		assignment.EnrollmentID,
		assignment.StartedAt,
		assignment.SubmittedAt,
		assignment.GradedAt,
		assignment.Score,
		assignment.AutoScore,
		assignment.TeacherNotes,
		assignment.ForcedSubmission,
		assignment.SecurityViolation,
		assignment.CreatedAt,
		assignment.UpdatedAt,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *assignmentRepository) MarkStarted(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `
		UPDATE assignments
		SET started_at = $1, updated_at = $1
		WHERE id = $2 AND started_at IS NULL AND submitted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *assignmentRepository) CompareAndSetSubmitted(ctx context.Context, id string, fields SubmissionFields) (bool, error) {
	query := `
		UPDATE assignments
		SET submitted_at = $1,
		    auto_score = $2,
		    score = $3,
		    graded_at = $4,
		    forced_submission = $5,
		    security_violation = $6,
		    updated_at = $1
		WHERE id = $7 AND submitted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		fields.SubmittedAt,
		fields.AutoScore,
		fields.Score,
		fields.GradedAt,
		fields.Forced,
		fields.SecurityViolation,
		id,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *assignmentRepository) InProgressSupervised(ctx context.Context) ([]models.AssignmentWithAssessment, error) {
	query := `
		SELECT
			g.id, g.assessment_id, g.enrollment_id, g.started_at,
			g.submitted_at, g.graded_at, g.score, g.auto_score,
			g.teacher_notes, g.forced_submission, g.security_violation,
			g.created_at, g.updated_at,
			a.id, a.class_subject_id, a.class_id, a.title, a.delivery_mode,
			a.scheduled_at, a.duration_minutes, a.due_date, a.is_published,
			a.allow_late_submission, a.reminder_sent_at, a.created_at,
			a.updated_at
		FROM assignments g
		JOIN assessments a ON a.id = g.assessment_id
		WHERE g.started_at IS NOT NULL
		  AND g.submitted_at IS NULL
		  AND a.delivery_mode = 'supervised'
		  AND a.is_published = true
		ORDER BY g.started_at
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []models.AssignmentWithAssessment
	for rows.Next() {
		var row models.AssignmentWithAssessment
		err := rows.Scan(
			&row.ID,
			&row.AssessmentID,
			&row.EnrollmentID,
			&row.StartedAt,
			&row.SubmittedAt,
			&row.GradedAt,
			&row.Score,
			&row.AutoScore,
			&row.TeacherNotes,
			&row.ForcedSubmission,
			&row.SecurityViolation,
			&row.CreatedAt,
			&row.UpdatedAt,
			&row.Assessment.ID,
			&row.Assessment.ClassSubjectID,
			&row.Assessment.ClassID,
			&row.Assessment.Title,
			&row.Assessment.DeliveryMode,
			&row.Assessment.ScheduledAt,
			&row.Assessment.DurationMinutes,
			&row.Assessment.DueDate,
			&row.Assessment.IsPublished,
			&row.Assessment.AllowLateSubmission,
			&row.Assessment.ReminderSentAt,
			&row.Assessment.CreatedAt,
			&row.Assessment.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, row)
	}

	return assignments, rows.Err()
}
