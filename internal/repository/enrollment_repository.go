package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
)

// EnrollmentRepository reads from the enrollment directory. Enrollments are
// owned elsewhere; this service never writes them.
type EnrollmentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Enrollment, error)
	ActiveByClass(ctx context.Context, classID string) ([]models.Enrollment, error)
}

type enrollmentRepository struct {
	*PostgresRepository
}

func NewEnrollmentRepository(db *sql.DB, logger zerolog.Logger) EnrollmentRepository {
	return &enrollmentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `
		SELECT id, student_id, class_id, status, enrolled_at, left_at
		FROM enrollments
		WHERE id = $1
	`

	enrollment := &models.Enrollment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&enrollment.ID,
		&enrollment.StudentID,
		&enrollment.ClassID,
		&enrollment.Status,
		&enrollment.EnrolledAt,
		&enrollment.LeftAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return enrollment, err
}

func (r *enrollmentRepository) ActiveByClass(ctx context.Context, classID string) ([]models.Enrollment, error) {
	query := `
		SELECT id, student_id, class_id, status, enrolled_at, left_at
		FROM enrollments
		WHERE class_id = $1 AND status = 'active'
		ORDER BY enrolled_at
	`

	rows, err := r.db.QueryContext(ctx, query, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []models.Enrollment
	for rows.Next() {
		var enrollment models.Enrollment
		err := rows.Scan(
			&enrollment.ID,
			&enrollment.StudentID,
			&enrollment.ClassID,
			&enrollment.Status,
			&enrollment.EnrolledAt,
			&enrollment.LeftAt,
		)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, enrollment)
	}

	return enrollments, rows.Err()
}
