package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
)

type assessmentRepository struct {
	db *DB
}

func NewAssessmentRepository(db *DB) repository.AssessmentRepository {
	return &assessmentRepository{db: db}
}

func (r *assessmentRepository) GetByID(ctx context.Context, id string) (*models.Assessment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	assessment, ok := r.db.assessments[id]
	if !ok {
		return nil, nil
	}
	return &assessment, nil
}

func (r *assessmentRepository) EndedPublished(ctx context.Context, now time.Time) ([]models.Assessment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var assessments []models.Assessment
	for _, a := range r.db.assessments {
		if a.IsPublished && a.Ended(now) {
			assessments = append(assessments, a)
		}
	}
	sortAssessments(assessments)
	return assessments, nil
}

func (r *assessmentRepository) DueForReminder(ctx context.Context, from, to time.Time) ([]models.Assessment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var assessments []models.Assessment
	for _, a := range r.db.assessments {
		if !a.IsPublished || !a.IsSupervised() || a.ReminderSentAt != nil || a.ScheduledAt == nil {
			continue
		}
		if a.ScheduledAt.Before(from) || a.ScheduledAt.After(to) {
			continue
		}
		assessments = append(assessments, a)
	}
	sortAssessments(assessments)
	return assessments, nil
}

func (r *assessmentRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	assessment, ok := r.db.assessments[id]
	if !ok || assessment.ReminderSentAt != nil {
		return false, nil
	}
	assessment.ReminderSentAt = &at
	assessment.UpdatedAt = at
	r.db.assessments[id] = assessment
	return true, nil
}

func sortAssessments(assessments []models.Assessment) {
	sort.Slice(assessments, func(i, j int) bool {
		return assessments[i].ID < assessments[j].ID
	})
}
