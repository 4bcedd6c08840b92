package inmem

import (
	"context"
	"sort"
	"time"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
)

type answerRepository struct {
	db *DB
}

func NewAnswerRepository(db *DB) repository.AnswerRepository {
	return &answerRepository{db: db}
}

func (r *answerRepository) ForAssignment(ctx context.Context, assignmentID string) ([]models.Answer, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var answers []models.Answer
	for _, a := range r.db.answers {
		if a.AssignmentID == assignmentID {
			answers = append(answers, a)
		}
	}
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].ID < answers[j].ID
	})
	return answers, nil
}

func (r *answerRepository) ReplaceForQuestion(ctx context.Context, assignmentID, questionID string, answers []models.Answer) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if assignment, ok := r.db.assignments[assignmentID]; ok && assignment.SubmittedAt != nil {
		return repository.ErrAssignmentClosed
	}

	for id, a := range r.db.answers {
		if a.AssignmentID == assignmentID && a.QuestionID == questionID {
			delete(r.db.answers, id)
		}
	}
	for _, a := range answers {
		r.db.answers[a.ID] = a
	}
	return nil
}

func (r *answerRepository) SetQuestionScores(ctx context.Context, assignmentID string, updates []repository.QuestionScoreUpdate, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.applyScores(assignmentID, updates, at)
	return nil
}

func (r *answerRepository) ApplyCorrections(ctx context.Context, assignmentID string, updates []repository.QuestionScoreUpdate, total float64, teacherNotes string, gradedAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.applyScores(assignmentID, updates, gradedAt)

	assignment, ok := r.db.assignments[assignmentID]
	if !ok {
		return nil
	}
	assignment.Score = &total
	assignment.GradedAt = &gradedAt
	assignment.TeacherNotes = teacherNotes
	assignment.UpdatedAt = gradedAt
	r.db.assignments[assignmentID] = assignment
	return nil
}

func (r *answerRepository) ApplyAutoScores(ctx context.Context, assignmentID string, updates []repository.QuestionScoreUpdate, autoScore float64, total *float64, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.applyScores(assignmentID, updates, at)

	assignment, ok := r.db.assignments[assignmentID]
	if !ok {
		return nil
	}
	assignment.AutoScore = &autoScore
	if total != nil {
		assignment.Score = total
	}
	assignment.UpdatedAt = at
	r.db.assignments[assignmentID] = assignment
	return nil
}

func (r *answerRepository) applyScores(assignmentID string, updates []repository.QuestionScoreUpdate, at time.Time) {
	for _, update := range updates {
		score := update.Score
		for id, a := range r.db.answers {
			if a.AssignmentID != assignmentID || a.QuestionID != update.QuestionID {
				continue
			}
			a.Score = &score
			if update.Feedback != nil {
				a.Feedback = update.Feedback
			}
			a.UpdatedAt = at
			r.db.answers[id] = a
		}
	}
}
