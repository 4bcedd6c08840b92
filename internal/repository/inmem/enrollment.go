package inmem

import (
	"context"
	"sort"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
)

type enrollmentRepository struct {
	db *DB
}

func NewEnrollmentRepository(db *DB) repository.EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) GetByID(ctx context.Context, id string) (*models.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	enrollment, ok := r.db.enrollments[id]
	if !ok {
		return nil, nil
	}
	return &enrollment, nil
}

func (r *enrollmentRepository) ActiveByClass(ctx context.Context, classID string) ([]models.Enrollment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var enrollments []models.Enrollment
	for _, e := range r.db.enrollments {
		if e.ClassID == classID && e.Status == models.EnrollmentActive {
			enrollments = append(enrollments, e)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool {
		return enrollments[i].ID < enrollments[j].ID
	})
	return enrollments, nil
}
