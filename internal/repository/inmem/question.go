package inmem

import (
	"context"
	"sort"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
)

type questionRepository struct {
	db *DB
}

func NewQuestionRepository(db *DB) repository.QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) WithChoicesByAssessment(ctx context.Context, assessmentID string) ([]models.QuestionWithChoices, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var questions []models.QuestionWithChoices
	for _, q := range r.db.questions {
		if q.AssessmentID == assessmentID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
	return questions, nil
}
