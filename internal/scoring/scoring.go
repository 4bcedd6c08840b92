// Package scoring computes auto-gradable score contributions. Text and file
// questions are never scored here; they contribute zero until a teacher enters
// a manual score.
package scoring

import (
	"github.com/classtrack/assessment-service/internal/models"
)

// QuestionScore returns the contribution of a single question given the answer
// rows recorded for it.
//
//   - one_choice / boolean: full points if the selected choice is correct.
//   - multiple: full points only if the selected choice set exactly equals the
//     correct choice set. No partial credit.
//   - text / file: always 0.
func QuestionScore(question *models.QuestionWithChoices, answers []models.Answer) float64 {
	if !question.Type.AutoGradable() {
		return 0
	}

	selected := make(map[string]struct{})
	for _, a := range answers {
		if a.ChoiceID != nil {
			selected[*a.ChoiceID] = struct{}{}
		}
	}
	if len(selected) == 0 {
		return 0
	}

	correct := question.CorrectChoiceIDs()

	switch question.Type {
	case models.QuestionOneChoice, models.QuestionBoolean:
		if len(selected) != 1 {
			return 0
		}
		for id := range selected {
			if _, ok := correct[id]; ok {
				return question.Points
			}
		}
		return 0

	case models.QuestionMultiple:
		if len(selected) != len(correct) {
			return 0
		}
		for id := range selected {
			if _, ok := correct[id]; !ok {
				return 0
			}
		}
		return question.Points

	default:
		return 0
	}
}

// AutoScore sums QuestionScore over all auto-gradable questions of an
// assignment. The result becomes assignment.auto_score.
func AutoScore(questions []models.QuestionWithChoices, answers []models.Answer) float64 {
	grouped := models.GroupAnswersByQuestion(answers)

	var total float64
	for i := range questions {
		q := &questions[i]
		if !q.Type.AutoGradable() {
			continue
		}
		total += QuestionScore(q, grouped[q.ID])
	}
	return total
}

// PerQuestionAutoScores returns the auto score of every auto-gradable question,
// keyed by question id. Used to stamp per-answer scores at submission time.
func PerQuestionAutoScores(questions []models.QuestionWithChoices, answers []models.Answer) map[string]float64 {
	grouped := models.GroupAnswersByQuestion(answers)

	scores := make(map[string]float64)
	for i := range questions {
		q := &questions[i]
		if !q.Type.AutoGradable() {
			continue
		}
		scores[q.ID] = QuestionScore(q, grouped[q.ID])
	}
	return scores
}

// HasManualQuestions reports whether the assessment contains at least one
// question that requires human grading. When false, an assignment is graded
// immediately at submission using its auto score.
func HasManualQuestions(questions []models.QuestionWithChoices) bool {
	for i := range questions {
		if !questions[i].Type.AutoGradable() {
			return true
		}
	}
	return false
}

// MaxPoints is the highest total an assignment can reach.
func MaxPoints(questions []models.QuestionWithChoices) float64 {
	var total float64
	for i := range questions {
		total += questions[i].Points
	}
	return total
}
