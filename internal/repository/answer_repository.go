package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
)

// ErrAssignmentClosed is returned by answer writes that found the assignment
// already submitted; stored answers are frozen at submission time.
var ErrAssignmentClosed = errors.New("assignment already submitted")

// QuestionScoreUpdate carries a per-question score written onto every answer
// row of that question.
type QuestionScoreUpdate struct {
	QuestionID string
	Score      float64
	Feedback   *string
}

type AnswerRepository interface {
	ForAssignment(ctx context.Context, assignmentID string) ([]models.Answer, error)
	// ReplaceForQuestion swaps the answer rows of one question atomically.
	// Multiple-selection questions insert one row per choice. Returns
	// ErrAssignmentClosed when the assignment was submitted meanwhile.
	ReplaceForQuestion(ctx context.Context, assignmentID, questionID string, answers []models.Answer) error
	// SetQuestionScores stamps per-question scores on the answer rows
	// without touching the assignment total.
	SetQuestionScores(ctx context.Context, assignmentID string, updates []QuestionScoreUpdate, at time.Time) error
	// ApplyCorrections writes per-answer scores and the assignment total in
	// a single transaction so no reader observes a partially-updated total.
	ApplyCorrections(ctx context.Context, assignmentID string, updates []QuestionScoreUpdate, total float64, teacherNotes string, gradedAt time.Time) error
	// ApplyAutoScores rewrites per-answer scores together with the
	// assignment's auto_score (and total, when non-nil) in one transaction.
	ApplyAutoScores(ctx context.Context, assignmentID string, updates []QuestionScoreUpdate, autoScore float64, total *float64, at time.Time) error
}

type answerRepository struct {
	*PostgresRepository
}

func NewAnswerRepository(db *sql.DB, logger zerolog.Logger) AnswerRepository {
	return &answerRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *answerRepository) ForAssignment(ctx context.Context, assignmentID string) ([]models.Answer, error) {
	query := `
		SELECT id, assignment_id, question_id, choice_id, answer_text,
		       file_id, file_name, score, feedback, created_at, updated_at
		FROM answers
		WHERE assignment_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.Answer
	for rows.Next() {
		var answer models.Answer
		err := rows.Scan(
			&answer.ID,
			&answer.AssignmentID,
			&answer.QuestionID,
			&answer.ChoiceID,
			&answer.AnswerText,
			&answer.FileID,
			&answer.FileName,
			&answer.Score,
			&answer.Feedback,
			&answer.CreatedAt,
			&answer.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		answers = append(answers, answer)
	}

	return answers, rows.Err()
}

func (r *answerRepository) ReplaceForQuestion(ctx context.Context, assignmentID, questionID string, answers []models.Answer) error {
	return r.InTx(ctx, func(tx *sql.Tx) error {
		// Lock the assignment row so a concurrent force-submit cannot land
		// between the check and the rewrite.
		var submittedAt sql.NullTime
		lockQuery := `SELECT submitted_at FROM assignments WHERE id = $1 FOR UPDATE`
		if err := tx.QueryRowContext(ctx, lockQuery, assignmentID).Scan(&submittedAt); err != nil {
			return err
		}
		if submittedAt.Valid {
			return ErrAssignmentClosed
		}

		deleteQuery := `DELETE FROM answers WHERE assignment_id = $1 AND question_id = $2`
		if _, err := tx.ExecContext(ctx, deleteQuery, assignmentID, questionID); err != nil {
			return err
		}

		insertQuery := `
			INSERT INTO answers (
				id, assignment_id, question_id, choice_id, answer_text,
				file_id, file_name, score, feedback, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`

		for _, answer := range answers {
			_, err := tx.ExecContext(ctx, insertQuery,
				answer.ID,
				answer.AssignmentID,
				answer.QuestionID,
				answer.ChoiceID,
				answer.AnswerText,
				answer.FileID,
				answer.FileName,
				answer.Score,
				answer.Feedback,
				answer.CreatedAt,
				answer.UpdatedAt,
			)
			if err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *answerRepository) SetQuestionScores(ctx context.Context, assignmentID string, updates []QuestionScoreUpdate, at time.Time) error {
	return r.InTx(ctx, func(tx *sql.Tx) error {
		return setQuestionScores(ctx, tx, assignmentID, updates, at)
	})
}

func (r *answerRepository) ApplyCorrections(ctx context.Context, assignmentID string, updates []QuestionScoreUpdate, total float64, teacherNotes string, gradedAt time.Time) error {
	return r.InTx(ctx, func(tx *sql.Tx) error {
		if err := setQuestionScores(ctx, tx, assignmentID, updates, gradedAt); err != nil {
			return err
		}

		query := `
			UPDATE assignments
			SET score = $1, graded_at = $2, teacher_notes = $3, updated_at = $2
			WHERE id = $4
		`

		_, err := tx.ExecContext(ctx, query, total, gradedAt, teacherNotes, assignmentID)
		return err
	})
}

func (r *answerRepository) ApplyAutoScores(ctx context.Context, assignmentID string, updates []QuestionScoreUpdate, autoScore float64, total *float64, at time.Time) error {
	return r.InTx(ctx, func(tx *sql.Tx) error {
		if err := setQuestionScores(ctx, tx, assignmentID, updates, at); err != nil {
			return err
		}

		query := `
			UPDATE assignments
			SET auto_score = $1, score = COALESCE($2, score), updated_at = $3
			WHERE id = $4
		`

		_, err := tx.ExecContext(ctx, query, autoScore, total, at, assignmentID)
		return err
	})
}

func setQuestionScores(ctx context.Context, tx *sql.Tx, assignmentID string, updates []QuestionScoreUpdate, at time.Time) error {
	query := `
		UPDATE answers
		SET score = $1, feedback = COALESCE($2, feedback), updated_at = $3
		WHERE assignment_id = $4 AND question_id = $5
	`

	for _, update := range updates {
		_, err := tx.ExecContext(ctx, query,
			update.Score,
			update.Feedback,
			at,
			assignmentID,
			update.QuestionID,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
