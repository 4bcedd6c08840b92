package models

import (
	"time"
)

// Answer is one recorded response row. Multiple-selection questions store one
// row per selected choice; all rows for the question share the same score.
type Answer struct {
	ID           string    `json:"id" db:"id"`
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	QuestionID   string    `json:"question_id" db:"question_id"`
	ChoiceID     *string   `json:"choice_id,omitempty" db:"choice_id"`
	AnswerText   *string   `json:"answer_text,omitempty" db:"answer_text"`
	FileID       *string   `json:"file_id,omitempty" db:"file_id"`
	FileName     *string   `json:"file_name,omitempty" db:"file_name"`
	Score        *float64  `json:"score,omitempty" db:"score"`
	Feedback     *string   `json:"feedback,omitempty" db:"feedback"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// GroupAnswersByQuestion indexes answer rows by their question id.
func GroupAnswersByQuestion(answers []Answer) map[string][]Answer {
	grouped := make(map[string][]Answer)
	for _, a := range answers {
		grouped[a.QuestionID] = append(grouped[a.QuestionID], a)
	}
	return grouped
}
