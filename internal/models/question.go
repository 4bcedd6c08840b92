package models

type QuestionType string

const (
	QuestionText      QuestionType = "text"
	QuestionOneChoice QuestionType = "one_choice"
	QuestionMultiple  QuestionType = "multiple"
	QuestionBoolean   QuestionType = "boolean"
	QuestionFile      QuestionType = "file"
)

func (qt QuestionType) String() string {
	return string(qt)
}

// AutoGradable reports whether correctness is determined by choice comparison.
// Text and file questions require human judgment.
func (qt QuestionType) AutoGradable() bool {
	switch qt {
	case QuestionOneChoice, QuestionMultiple, QuestionBoolean:
		return true
	default:
		return false
	}
}

func IsValidQuestionType(t string) bool {
	switch t {
	case "text", "one_choice", "multiple", "boolean", "file":
		return true
	default:
		return false
	}
}

type Question struct {
	ID           string       `json:"id" db:"id"`
	AssessmentID string       `json:"assessment_id" db:"assessment_id"`
	Type         QuestionType `json:"type" db:"type"`
	Content      string       `json:"content" db:"content"`
	Points       float64      `json:"points" db:"points"`
	OrderIndex   int          `json:"order_index" db:"order_index"`
}

type Choice struct {
	ID         string `json:"id" db:"id"`
	QuestionID string `json:"question_id" db:"question_id"`
	Content    string `json:"content" db:"content"`
	IsCorrect  bool   `json:"is_correct" db:"is_correct"`
	OrderIndex int    `json:"order_index" db:"order_index"`
}

type QuestionWithChoices struct {
	Question
	Choices []Choice `json:"choices"`
}

// CorrectChoiceIDs returns the ids of all correct choices for the question.
func (q *QuestionWithChoices) CorrectChoiceIDs() map[string]struct{} {
	correct := make(map[string]struct{})
	for _, c := range q.Choices {
		if c.IsCorrect {
			correct[c.ID] = struct{}{}
		}
	}
	return correct
}
