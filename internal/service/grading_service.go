package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
	"github.com/classtrack/assessment-service/internal/scoring"
)

type GradingService interface {
	// SaveTeacherCorrections writes per-question manual scores, recomputes
	// the assignment total as the sum of all per-question scores, and marks
	// the assignment graded. Re-submitting the same corrections yields the
	// same total.
	SaveTeacherCorrections(ctx context.Context, assignmentID string, req *models.TeacherCorrectionsRequest) (*models.Assignment, error)
	// RecomputeAutoScore re-runs the scoring engine over the stored answers
	// and rewrites auto_score (and the total, when the assessment has no
	// manual questions).
	RecomputeAutoScore(ctx context.Context, assignmentID string) (*models.Assignment, error)
}

type gradingService struct {
	assignmentRepo repository.AssignmentRepository
	assessmentRepo repository.AssessmentRepository
	questionRepo   repository.QuestionRepository
	answerRepo     repository.AnswerRepository
	logger         zerolog.Logger
	now            func() time.Time
}

func NewGradingService(
	assignmentRepo repository.AssignmentRepository,
	assessmentRepo repository.AssessmentRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	now func() time.Time,
	logger zerolog.Logger,
) GradingService {
	if now == nil {
		now = time.Now
	}
	return &gradingService{
		assignmentRepo: assignmentRepo,
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		answerRepo:     answerRepo,
		logger:         logger,
		now:            now,
	}
}

func (s *gradingService) SaveTeacherCorrections(ctx context.Context, assignmentID string, req *models.TeacherCorrectionsRequest) (*models.Assignment, error) {
	assignment, questions, answers, err := s.loadForGrading(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.QuestionWithChoices, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	manual := make(map[string]models.QuestionCorrection, len(req.Corrections))
	updates := make([]repository.QuestionScoreUpdate, 0, len(req.Corrections))
	for _, correction := range req.Corrections {
		question, ok := byID[correction.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, correction.QuestionID)
		}
		if correction.Score < 0 || correction.Score > question.Points {
			return nil, fmt.Errorf("score %.2f for question %s is outside [0, %.2f]",
				correction.Score, question.ID, question.Points)
		}
		manual[correction.QuestionID] = correction
		updates = append(updates, repository.QuestionScoreUpdate{
			QuestionID: correction.QuestionID,
			Score:      correction.Score,
			Feedback:   correction.Feedback,
		})
	}

	total := s.totalScore(questions, answers, manual)

	gradedAt := s.now()
	if err := s.answerRepo.ApplyCorrections(ctx, assignment.ID, updates, total, req.TeacherNotes, gradedAt); err != nil {
		return nil, fmt.Errorf("failed to apply corrections: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Float64("score", total).
		Msg("Teacher corrections saved")

	return s.assignmentRepo.GetByID(ctx, assignment.ID)
}

// totalScore sums per-question scores across the whole assignment: the given
// manual corrections where present, the scoring engine for auto-gradable
// questions, and any previously saved manual score otherwise.
func (s *gradingService) totalScore(questions []models.QuestionWithChoices, answers []models.Answer, manual map[string]models.QuestionCorrection) float64 {
	grouped := models.GroupAnswersByQuestion(answers)

	var total float64
	for i := range questions {
		q := &questions[i]
		if correction, ok := manual[q.ID]; ok {
			total += correction.Score
			continue
		}
		if q.Type.AutoGradable() {
			total += scoring.QuestionScore(q, grouped[q.ID])
			continue
		}
		if rows := grouped[q.ID]; len(rows) > 0 && rows[0].Score != nil {
			total += *rows[0].Score
		}
	}
	return total
}

func (s *gradingService) RecomputeAutoScore(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	assignment, questions, answers, err := s.loadForGrading(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	autoScore := scoring.AutoScore(questions, answers)

	now := s.now()
	perQuestion := scoring.PerQuestionAutoScores(questions, answers)
	updates := make([]repository.QuestionScoreUpdate, 0, len(perQuestion))
	for questionID, score := range perQuestion {
		updates = append(updates, repository.QuestionScoreUpdate{QuestionID: questionID, Score: score})
	}

	var total *float64
	if !scoring.HasManualQuestions(questions) {
		total = &autoScore
	}
	// Per-answer scores and the assignment totals commit together; a reader
	// never observes one without the other.
	if err := s.answerRepo.ApplyAutoScores(ctx, assignment.ID, updates, autoScore, total, now); err != nil {
		return nil, fmt.Errorf("failed to apply recomputed scores: %w", err)
	}

	return s.assignmentRepo.GetByID(ctx, assignment.ID)
}

func (s *gradingService) loadForGrading(ctx context.Context, assignmentID string) (*models.Assignment, []models.QuestionWithChoices, []models.Answer, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, nil, nil, ErrAssignmentNotFound
	}
	if assignment.SubmittedAt == nil {
		return nil, nil, nil, ErrNotSubmitted
	}

	questions, err := s.questionRepo.WithChoicesByAssessment(ctx, assignment.AssessmentID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load questions: %w", err)
	}

	answers, err := s.answerRepo.ForAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load answers: %w", err)
	}

	return assignment, questions, answers, nil
}
