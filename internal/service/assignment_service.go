package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/availability"
	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
	"github.com/classtrack/assessment-service/internal/scoring"
	"github.com/classtrack/assessment-service/internal/service/integration"
)

type AssignmentService interface {
	// Start moves a not_started assignment into in_progress, guarded by the
	// availability evaluator. Starting an already-started assignment is a
	// no-op returning the current row.
	Start(ctx context.Context, assignmentID string) (*models.Assignment, error)
	// SaveAnswers records the student's current answers for an in-progress
	// assignment. Homework assignments start implicitly on the first write.
	SaveAnswers(ctx context.Context, assignmentID string, req *models.SaveAnswersRequest) (*models.Assignment, error)
	// Submit is the voluntary in_progress -> submitted transition. When the
	// assessment has no manually-graded questions the assignment is graded
	// immediately using its auto score.
	Submit(ctx context.Context, assignmentID string) (*models.Assignment, error)
	// ReportViolation persists any partially-entered answers and then
	// force-submits, recording the violation type.
	ReportViolation(ctx context.Context, assignmentID string, req *models.ViolationReportRequest) (*models.Assignment, error)
	// ForceSubmit applies the forced-submission transition. The expiry
	// enforcer and the violation path both converge here. Returns false
	// when the assignment was already submitted.
	ForceSubmit(ctx context.Context, assignmentID, violationType string) (bool, error)
	// GetStatus returns the derived lifecycle state plus the availability
	// verdict for the assignment.
	GetStatus(ctx context.Context, assignmentID string) (*models.AssignmentStatusResponse, error)
}

type assignmentService struct {
	assignmentRepo repository.AssignmentRepository
	assessmentRepo repository.AssessmentRepository
	questionRepo   repository.QuestionRepository
	answerRepo     repository.AnswerRepository
	notifier       integration.NotificationClient
	logger         zerolog.Logger
	now            func() time.Time
}

// NewAssignmentService wires the assignment lifecycle. notifier may be nil,
// in which case submission events are not published.
func NewAssignmentService(
	assignmentRepo repository.AssignmentRepository,
	assessmentRepo repository.AssessmentRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	notifier integration.NotificationClient,
	now func() time.Time,
	logger zerolog.Logger,
) AssignmentService {
	if now == nil {
		now = time.Now
	}
	return &assignmentService{
		assignmentRepo: assignmentRepo,
		assessmentRepo: assessmentRepo,
		questionRepo:   questionRepo,
		answerRepo:     answerRepo,
		notifier:       notifier,
		logger:         logger,
		now:            now,
	}
}

func (s *assignmentService) load(ctx context.Context, assignmentID string) (*models.Assignment, *models.Assessment, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if assignment == nil {
		return nil, nil, ErrAssignmentNotFound
	}

	assessment, err := s.assessmentRepo.GetByID(ctx, assignment.AssessmentID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if assessment == nil {
		return nil, nil, &DataIntegrityError{Entity: "assessment", ID: assignment.AssessmentID}
	}

	return assignment, assessment, nil
}

func (s *assignmentService) Start(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	assignment, assessment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	switch assignment.Status() {
	case models.AssignmentInProgress:
		return assignment, nil
	case models.AssignmentSubmitted, models.AssignmentGraded:
		return nil, ErrAlreadySubmitted
	}

	now := s.now()
	if result := availability.Evaluate(assessment, assignment, now); !result.Available {
		return nil, &PolicyError{Reason: result.Reason}
	}

	if _, err := s.assignmentRepo.MarkStarted(ctx, assignment.ID, now); err != nil {
		return nil, fmt.Errorf("failed to mark assignment started: %w", err)
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Str("assessment_id", assessment.ID).
		Msg("Assignment started")

	return s.assignmentRepo.GetByID(ctx, assignment.ID)
}

func (s *assignmentService) SaveAnswers(ctx context.Context, assignmentID string, req *models.SaveAnswersRequest) (*models.Assignment, error) {
	assignment, assessment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	switch assignment.Status() {
	case models.AssignmentSubmitted, models.AssignmentGraded:
		return nil, ErrAlreadySubmitted
	case models.AssignmentNotStarted:
		// Homework has no explicit open action; the first answer write
		// starts the clockless attempt. Supervised items must be started
		// explicitly.
		if assessment.IsSupervised() {
			return nil, ErrNotInProgress
		}
	}

	now := s.now()
	if result := availability.Evaluate(assessment, assignment, now); !result.Available {
		return nil, &PolicyError{Reason: result.Reason}
	}

	if assignment.StartedAt == nil {
		if _, err := s.assignmentRepo.MarkStarted(ctx, assignment.ID, now); err != nil {
			return nil, fmt.Errorf("failed to mark assignment started: %w", err)
		}
	}

	if err := s.persistAnswers(ctx, assignment, assessment, req.Answers, now); err != nil {
		return nil, err
	}

	return s.assignmentRepo.GetByID(ctx, assignment.ID)
}

func (s *assignmentService) persistAnswers(ctx context.Context, assignment *models.Assignment, assessment *models.Assessment, inputs []models.AnswerInput, now time.Time) error {
	questions, err := s.questionRepo.WithChoicesByAssessment(ctx, assessment.ID)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	byID := make(map[string]*models.QuestionWithChoices, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	for _, input := range inputs {
		question, ok := byID[input.QuestionID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrQuestionNotFound, input.QuestionID)
		}

		rows := buildAnswerRows(assignment.ID, question, input, now)
		if err := s.answerRepo.ReplaceForQuestion(ctx, assignment.ID, question.ID, rows); err != nil {
			if errors.Is(err, repository.ErrAssignmentClosed) {
				// A concurrent forced submission closed the attempt
				// between our status check and the write.
				return ErrAlreadySubmitted
			}
			return fmt.Errorf("failed to save answers for question %s: %w", question.ID, err)
		}
	}

	return nil
}

// buildAnswerRows maps one answer input to its storage rows. Multiple-selection
// questions get one row per selected choice; everything else gets one row.
func buildAnswerRows(assignmentID string, question *models.QuestionWithChoices, input models.AnswerInput, now time.Time) []models.Answer {
	base := models.Answer{
		AssignmentID: assignmentID,
		QuestionID:   question.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch question.Type {
	case models.QuestionMultiple:
		rows := make([]models.Answer, 0, len(input.ChoiceIDs))
		for _, choiceID := range input.ChoiceIDs {
			row := base
			row.ID = uuid.New().String()
			id := choiceID
			row.ChoiceID = &id
			rows = append(rows, row)
		}
		return rows

	case models.QuestionOneChoice, models.QuestionBoolean:
		row := base
		row.ID = uuid.New().String()
		if len(input.ChoiceIDs) > 0 {
			id := input.ChoiceIDs[0]
			row.ChoiceID = &id
		}
		return []models.Answer{row}

	case models.QuestionFile:
		row := base
		row.ID = uuid.New().String()
		row.FileID = input.FileID
		row.FileName = input.FileName
		return []models.Answer{row}

	default: // text
		row := base
		row.ID = uuid.New().String()
		row.AnswerText = input.Text
		return []models.Answer{row}
	}
}

func (s *assignmentService) Submit(ctx context.Context, assignmentID string) (*models.Assignment, error) {
	assignment, assessment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	switch assignment.Status() {
	case models.AssignmentSubmitted, models.AssignmentGraded:
		return nil, ErrAlreadySubmitted
	case models.AssignmentNotStarted:
		if assessment.IsSupervised() {
			return nil, ErrNotInProgress
		}
	}

	if result := availability.Evaluate(assessment, assignment, s.now()); !result.Available {
		return nil, &PolicyError{Reason: result.Reason}
	}

	if _, err := s.finalizeSubmission(ctx, assignment, assessment, false, nil); err != nil {
		return nil, err
	}

	return s.assignmentRepo.GetByID(ctx, assignment.ID)
}

func (s *assignmentService) ReportViolation(ctx context.Context, assignmentID string, req *models.ViolationReportRequest) (*models.Assignment, error) {
	assignment, assessment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	if assignment.Status() != models.AssignmentInProgress {
		return nil, ErrNotInProgress
	}

	// Keep whatever the student had entered before closing the attempt.
	if len(req.Answers) > 0 {
		if err := s.persistAnswers(ctx, assignment, assessment, req.Answers, s.now()); err != nil {
			return nil, err
		}
	}

	violation := req.ViolationType
	if _, err := s.finalizeSubmission(ctx, assignment, assessment, true, &violation); err != nil {
		return nil, err
	}

	s.logger.Warn().
		Str("assignment_id", assignment.ID).
		Str("violation", violation).
		Msg("Assignment force-submitted after security violation")

	return s.assignmentRepo.GetByID(ctx, assignment.ID)
}

func (s *assignmentService) ForceSubmit(ctx context.Context, assignmentID, violationType string) (bool, error) {
	assignment, assessment, err := s.load(ctx, assignmentID)
	if err != nil {
		return false, err
	}

	if assignment.SubmittedAt != nil {
		return false, nil
	}

	return s.finalizeSubmission(ctx, assignment, assessment, true, &violationType)
}

// finalizeSubmission is the single in_progress -> submitted transition shared
// by voluntary submission, violation reports, and the expiry enforcer. It
// computes the auto score, decides whether the assignment grades immediately,
// and applies everything with a compare-and-set so overlapping runs are no-ops.
func (s *assignmentService) finalizeSubmission(ctx context.Context, assignment *models.Assignment, assessment *models.Assessment, forced bool, violation *string) (bool, error) {
	questions, err := s.questionRepo.WithChoicesByAssessment(ctx, assessment.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load questions: %w", err)
	}

	answers, err := s.answerRepo.ForAssignment(ctx, assignment.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load answers: %w", err)
	}

	now := s.now()
	autoScore := scoring.AutoScore(questions, answers)

	fields := repository.SubmissionFields{
		SubmittedAt:       now,
		AutoScore:         autoScore,
		Forced:            forced,
		SecurityViolation: violation,
	}
	if !scoring.HasManualQuestions(questions) {
		// Nothing left to grade by hand: submitted and graded collapse
		// into one write.
		score := autoScore
		fields.Score = &score
		fields.GradedAt = &now
	}

	submitted, err := s.assignmentRepo.CompareAndSetSubmitted(ctx, assignment.ID, fields)
	if err != nil {
		return false, fmt.Errorf("failed to submit assignment: %w", err)
	}
	if !submitted {
		// Lost the race against another writer; idempotence contract says
		// this is a no-op.
		return false, nil
	}

	perQuestion := scoring.PerQuestionAutoScores(questions, answers)
	updates := make([]repository.QuestionScoreUpdate, 0, len(perQuestion))
	for questionID, score := range perQuestion {
		updates = append(updates, repository.QuestionScoreUpdate{QuestionID: questionID, Score: score})
	}
	if len(updates) > 0 {
		if err := s.answerRepo.SetQuestionScores(ctx, assignment.ID, updates, now); err != nil {
			s.logger.Error().Err(err).
				Str("assignment_id", assignment.ID).
				Msg("Failed to stamp per-answer auto scores")
		}
	}

	if s.notifier != nil {
		event := &models.AssignmentSubmittedEvent{
			AssignmentID:      assignment.ID,
			AssessmentID:      assessment.ID,
			EnrollmentID:      assignment.EnrollmentID,
			Forced:            forced,
			SecurityViolation: violation,
			Timestamp:         now.Unix(),
		}
		if err := s.notifier.PublishAssignmentSubmitted(ctx, event); err != nil {
			// Delivery failures never undo a submission.
			s.logger.Error().Err(err).
				Str("assignment_id", assignment.ID).
				Msg("Failed to publish submission event")
		}
	}

	s.logger.Info().
		Str("assignment_id", assignment.ID).
		Bool("forced", forced).
		Float64("auto_score", autoScore).
		Msg("Assignment submitted")

	return true, nil
}

func (s *assignmentService) GetStatus(ctx context.Context, assignmentID string) (*models.AssignmentStatusResponse, error) {
	assignment, assessment, err := s.load(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	result := availability.Evaluate(assessment, assignment, s.now())

	response := &models.AssignmentStatusResponse{
		Assignment: assignment,
		Status:     assignment.Status(),
		Available:  result.Available,
		Reason:     result.Reason.String(),
	}
	if assessment.IsSupervised() {
		if deadline, ok := assignment.PersonalDeadline(assessment.Duration()); ok {
			response.SubmittedBy = &deadline
		}
	}

	return response, nil
}
