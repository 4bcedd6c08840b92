package repository

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
)

type QuestionRepository interface {
	// WithChoicesByAssessment loads all questions of an assessment with
	// their choices, ordered by order_index.
	WithChoicesByAssessment(ctx context.Context, assessmentID string) ([]models.QuestionWithChoices, error)
}

type questionRepository struct {
	*PostgresRepository
}

func NewQuestionRepository(db *sql.DB, logger zerolog.Logger) QuestionRepository {
	return &questionRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *questionRepository) WithChoicesByAssessment(ctx context.Context, assessmentID string) ([]models.QuestionWithChoices, error) {
	query := `
		SELECT id, assessment_id, type, content, points, order_index
		FROM questions
		WHERE assessment_id = $1
		ORDER BY order_index
	`

	rows, err := r.db.QueryContext(ctx, query, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.QuestionWithChoices
	index := make(map[string]int)
	for rows.Next() {
		var question models.QuestionWithChoices
		err := rows.Scan(
			&question.ID,
			&question.AssessmentID,
			&question.Type,
			&question.Content,
			&question.Points,
			&question.OrderIndex,
		)
		if err != nil {
			return nil, err
		}
		index[question.ID] = len(questions)
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	choiceQuery := `
		SELECT c.id, c.question_id, c.content, c.is_correct, c.order_index
		FROM choices c
		JOIN questions q ON q.id = c.question_id
		WHERE q.assessment_id = $1
		ORDER BY c.question_id, c.order_index
	`

	choiceRows, err := r.db.QueryContext(ctx, choiceQuery, assessmentID)
	if err != nil {
		return nil, err
	}
	defer choiceRows.Close()

	for choiceRows.Next() {
		var choice models.Choice
		err := choiceRows.Scan(
			&choice.ID,
			&choice.QuestionID,
			&choice.Content,
			&choice.IsCorrect,
			&choice.OrderIndex,
		)
		if err != nil {
			return nil, err
		}
		if i, ok := index[choice.QuestionID]; ok {
			questions[i].Choices = append(questions[i].Choices, choice)
		}
	}

	return questions, choiceRows.Err()
}
