package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
)

type assignmentRepository struct {
	db *DB
}

func NewAssignmentRepository(db *DB) repository.AssignmentRepository {
	return &assignmentRepository{db: db}
}

func (r *assignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	assignment, ok := r.db.assignments[id]
	if !ok {
		return nil, nil
	}
	return &assignment, nil
}

func (r *assignmentRepository) GetByAssessmentAndEnrollment(ctx context.Context, assessmentID, enrollmentID string) (*models.Assignment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, a := range r.db.assignments {
		if a.AssessmentID == assessmentID && a.EnrollmentID == enrollmentID {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (r *assignmentRepository) CreateIfAbsent(ctx context.Context, assignment *models.Assignment) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, a := range r.db.assignments {
		if a.AssessmentID == assignment.AssessmentID && a.EnrollmentID == assignment.EnrollmentID {
			return false, nil
		}
	}
	r.db.assignments[assignment.ID] = *assignment
	return true, nil
}

func (r *assignmentRepository) MarkStarted(ctx context.Context, id string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	assignment, ok := r.db.assignments[id]
	if !ok || assignment.StartedAt != nil || assignment.SubmittedAt != nil {
		return false, nil
	}
	assignment.StartedAt = &at
	assignment.UpdatedAt = at
	r.db.assignments[id] = assignment
	return true, nil
}

func (r *assignmentRepository) CompareAndSetSubmitted(ctx context.Context, id string, fields repository.SubmissionFields) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	assignment, ok := r.db.assignments[id]
	if !ok || assignment.SubmittedAt != nil {
		return false, nil
	}

	submittedAt := fields.SubmittedAt
	autoScore := fields.AutoScore
	assignment.SubmittedAt = &submittedAt
	assignment.AutoScore = &autoScore
	assignment.Score = fields.Score
	assignment.GradedAt = fields.GradedAt
	assignment.ForcedSubmission = fields.Forced
	assignment.SecurityViolation = fields.SecurityViolation
	assignment.UpdatedAt = submittedAt
	r.db.assignments[id] = assignment
	return true, nil
}

func (r *assignmentRepository) InProgressSupervised(ctx context.Context) ([]models.AssignmentWithAssessment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var rows []models.AssignmentWithAssessment
	for _, a := range r.db.assignments {
		if a.StartedAt == nil || a.SubmittedAt != nil {
			continue
		}
		assessment, ok := r.db.assessments[a.AssessmentID]
		if !ok || !assessment.IsSupervised() || !assessment.IsPublished {
			continue
		}
		rows = append(rows, models.AssignmentWithAssessment{
			Assignment: a,
			Assessment: assessment,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}
