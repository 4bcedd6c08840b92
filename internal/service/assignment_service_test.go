package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/assessment-service/internal/availability"
	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/repository"
	"github.com/classtrack/assessment-service/internal/repository/inmem"
)

func seedChoiceQuestion(f *fixture, assessmentID, questionID string, points float64) {
	f.db.AddQuestion(models.QuestionWithChoices{
		Question: models.Question{
			ID:           questionID,
			AssessmentID: assessmentID,
			Type:         models.QuestionOneChoice,
			Points:       points,
		},
		Choices: []models.Choice{
			{ID: questionID + "-right", QuestionID: questionID, IsCorrect: true},
			{ID: questionID + "-wrong", QuestionID: questionID},
		},
	})
}

func TestStartSupervisedAssignment(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-5*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{ID: "asg-1", AssessmentID: "assess-1", EnrollmentID: "enr-1"})

	got, err := f.assignments.Start(context.Background(), "asg-1")
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, models.AssignmentInProgress, got.Status())

	// Starting twice is a no-op returning the current row.
	again, err := f.assignments.Start(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.Equal(t, got.StartedAt, again.StartedAt)
}

func TestStartBeforeScheduledTimeIsRejected(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(30*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{ID: "asg-1", AssessmentID: "assess-1", EnrollmentID: "enr-1"})

	_, err := f.assignments.Start(context.Background(), "asg-1")

	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Equal(t, availability.ReasonNotStarted, policyErr.Reason)
}

func TestStartUnknownAssignment(t *testing.T) {
	f := newFixture(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	_, err := f.assignments.Start(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrAssignmentNotFound))
}

func TestSaveAnswersStartsHomeworkImplicitly(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	f.db.AddAssessment(models.Assessment{
		ID:           "assess-1",
		ClassID:      "class-1",
		DeliveryMode: models.DeliveryHomework,
		DueDate:      timePtr(now.Add(24 * time.Hour)),
		IsPublished:  true,
	})
	seedChoiceQuestion(f, "assess-1", "q1", 5)
	f.db.AddAssignment(models.Assignment{ID: "asg-1", AssessmentID: "assess-1", EnrollmentID: "enr-1"})

	got, err := f.assignments.SaveAnswers(context.Background(), "asg-1", &models.SaveAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: "q1", ChoiceIDs: []string{"q1-right"}}},
	})
	require.NoError(t, err)
	require.NotNil(t, got.StartedAt)
	assert.Len(t, f.db.AnswersFor("asg-1"), 1)
}

func TestSaveAnswersRequiresExplicitStartWhenSupervised(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-5*time.Minute), 60)
	seedChoiceQuestion(f, "assess-1", "q1", 5)
	f.db.AddAssignment(models.Assignment{ID: "asg-1", AssessmentID: "assess-1", EnrollmentID: "enr-1"})

	_, err := f.assignments.SaveAnswers(context.Background(), "asg-1", &models.SaveAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: "q1", ChoiceIDs: []string{"q1-right"}}},
	})
	assert.True(t, errors.Is(err, ErrNotInProgress))
}

func TestSaveAnswersReplacesPreviousSelection(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-5*time.Minute), 60)
	seedChoiceQuestion(f, "assess-1", "q1", 5)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-time.Minute)),
	})

	for _, choice := range []string{"q1-wrong", "q1-right"} {
		_, err := f.assignments.SaveAnswers(context.Background(), "asg-1", &models.SaveAnswersRequest{
			Answers: []models.AnswerInput{{QuestionID: "q1", ChoiceIDs: []string{choice}}},
		})
		require.NoError(t, err)
	}

	answers := f.db.AnswersFor("asg-1")
	require.Len(t, answers, 1)
	assert.Equal(t, "q1-right", *answers[0].ChoiceID)
}

func TestSaveAnswersUnknownQuestion(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-5*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-time.Minute)),
	})

	_, err := f.assignments.SaveAnswers(context.Background(), "asg-1", &models.SaveAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: "ghost", ChoiceIDs: []string{"x"}}},
	})
	assert.True(t, errors.Is(err, ErrQuestionNotFound))
}

func TestSubmitGradesImmediatelyWithoutManualQuestions(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	seedChoiceQuestion(f, "assess-1", "q1", 5)
	seedChoiceQuestion(f, "assess-1", "q2", 3)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})
	f.db.AddAnswer(models.Answer{ID: "ans-1", AssignmentID: "asg-1", QuestionID: "q1", ChoiceID: strPtr("q1-right")})
	f.db.AddAnswer(models.Answer{ID: "ans-2", AssignmentID: "asg-1", QuestionID: "q2", ChoiceID: strPtr("q2-wrong")})

	got, err := f.assignments.Submit(context.Background(), "asg-1")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentGraded, got.Status())
	require.NotNil(t, got.AutoScore)
	assert.Equal(t, 5.0, *got.AutoScore)
	require.NotNil(t, got.Score)
	assert.Equal(t, 5.0, *got.Score)
	assert.False(t, got.ForcedSubmission)

	// Per-answer auto scores are stamped at submission.
	for _, answer := range f.db.AnswersFor("asg-1") {
		require.NotNil(t, answer.Score)
	}
}

func TestSubmitWaitsForManualGrading(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	seedChoiceQuestion(f, "assess-1", "q1", 5)
	f.db.AddQuestion(models.QuestionWithChoices{
		Question: models.Question{ID: "q2", AssessmentID: "assess-1", Type: models.QuestionText, Points: 10},
	})
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})
	f.db.AddAnswer(models.Answer{ID: "ans-1", AssignmentID: "asg-1", QuestionID: "q1", ChoiceID: strPtr("q1-right")})

	got, err := f.assignments.Submit(context.Background(), "asg-1")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentSubmitted, got.Status())
	require.NotNil(t, got.AutoScore)
	assert.Equal(t, 5.0, *got.AutoScore)
	assert.Nil(t, got.Score)
	assert.Nil(t, got.GradedAt)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})

	_, err := f.assignments.Submit(context.Background(), "asg-1")
	require.NoError(t, err)

	_, err = f.assignments.Submit(context.Background(), "asg-1")
	assert.True(t, errors.Is(err, ErrAlreadySubmitted))
}

func TestReportViolationPersistsAnswersAndForcesSubmission(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	seedChoiceQuestion(f, "assess-1", "q1", 5)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})

	got, err := f.assignments.ReportViolation(context.Background(), "asg-1", &models.ViolationReportRequest{
		ViolationType: "tab_switch",
		Answers:       []models.AnswerInput{{QuestionID: "q1", ChoiceIDs: []string{"q1-right"}}},
	})
	require.NoError(t, err)

	assert.True(t, got.ForcedSubmission)
	require.NotNil(t, got.SecurityViolation)
	assert.Equal(t, "tab_switch", *got.SecurityViolation)
	require.NotNil(t, got.AutoScore)
	assert.Equal(t, 5.0, *got.AutoScore)
}

func TestSubmitPublishesSubmissionEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	seedChoiceQuestion(f, "assess-1", "q1", 5)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})

	_, err := f.assignments.Submit(context.Background(), "asg-1")
	require.NoError(t, err)

	events := f.notifier.submittedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "asg-1", events[0].AssignmentID)
	assert.Equal(t, "assess-1", events[0].AssessmentID)
	assert.Equal(t, "enr-1", events[0].EnrollmentID)
	assert.False(t, events[0].Forced)
	assert.Nil(t, events[0].SecurityViolation)
	assert.Equal(t, now.Unix(), events[0].Timestamp)
}

func TestReportViolationPublishesForcedSubmissionEvent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})

	_, err := f.assignments.ReportViolation(context.Background(), "asg-1", &models.ViolationReportRequest{
		ViolationType: "tab_switch",
	})
	require.NoError(t, err)

	events := f.notifier.submittedEvents()
	require.Len(t, events, 1)
	assert.True(t, events[0].Forced)
	require.NotNil(t, events[0].SecurityViolation)
	assert.Equal(t, "tab_switch", *events[0].SecurityViolation)
}

func TestReportViolationRequiresInProgress(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{ID: "asg-1", AssessmentID: "assess-1", EnrollmentID: "enr-1"})

	_, err := f.assignments.ReportViolation(context.Background(), "asg-1", &models.ViolationReportRequest{
		ViolationType: "tab_switch",
	})
	assert.True(t, errors.Is(err, ErrNotInProgress))
}

func TestForceSubmitIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})

	submitted, err := f.assignments.ForceSubmit(context.Background(), "asg-1", models.SecurityViolationTimeExpired)
	require.NoError(t, err)
	assert.True(t, submitted)

	submitted, err = f.assignments.ForceSubmit(context.Background(), "asg-1", models.SecurityViolationTimeExpired)
	require.NoError(t, err)
	assert.False(t, submitted)
}

func TestGetStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-10*time.Minute), 60)
	startedAt := now.Add(-5 * time.Minute)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    &startedAt,
	})

	status, err := f.assignments.GetStatus(context.Background(), "asg-1")
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentInProgress, status.Status)
	assert.True(t, status.Available)
	require.NotNil(t, status.SubmittedBy)
	assert.Equal(t, startedAt.Add(time.Hour), *status.SubmittedBy)
}

func TestGetStatusMissingAssessmentIsIntegrityError(t *testing.T) {
	f := newFixture(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	f.db.AddAssignment(models.Assignment{ID: "asg-1", AssessmentID: "ghost", EnrollmentID: "enr-1"})

	_, err := f.assignments.GetStatus(context.Background(), "asg-1")

	var integrityErr *DataIntegrityError
	assert.ErrorAs(t, err, &integrityErr)
}

// closingAnswerRepo force-submits the assignment right before every answer
// write, reproducing an expiry enforcer run landing between the service's
// status check and the write.
type closingAnswerRepo struct {
	repository.AnswerRepository
	assignments repository.AssignmentRepository
	at          time.Time
}

func (r *closingAnswerRepo) ReplaceForQuestion(ctx context.Context, assignmentID, questionID string, answers []models.Answer) error {
	fields := repository.SubmissionFields{
		SubmittedAt:       r.at,
		Forced:            true,
		SecurityViolation: strPtr(models.SecurityViolationTimeExpired),
	}
	if _, err := r.assignments.CompareAndSetSubmitted(ctx, assignmentID, fields); err != nil {
		return err
	}
	return r.AnswerRepository.ReplaceForQuestion(ctx, assignmentID, questionID, answers)
}

func TestSaveAnswersLosingRaceAgainstForcedSubmission(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	db := inmem.Open()
	log := zerolog.Nop()
	clock := func() time.Time { return now }

	assessmentRepo := inmem.NewAssessmentRepository(db)
	questionRepo := inmem.NewQuestionRepository(db)
	assignmentRepo := inmem.NewAssignmentRepository(db)
	answerRepo := &closingAnswerRepo{
		AnswerRepository: inmem.NewAnswerRepository(db),
		assignments:      assignmentRepo,
		at:               now,
	}
	assignments := NewAssignmentService(assignmentRepo, assessmentRepo, questionRepo, answerRepo, nil, clock, log)

	db.AddAssessment(models.Assessment{
		ID:              "assess-1",
		ClassID:         "class-1",
		DeliveryMode:    models.DeliverySupervised,
		ScheduledAt:     timePtr(now.Add(-10 * time.Minute)),
		DurationMinutes: 60,
		IsPublished:     true,
	})
	db.AddQuestion(models.QuestionWithChoices{
		Question: models.Question{ID: "q1", AssessmentID: "assess-1", Type: models.QuestionOneChoice, Points: 5},
		Choices: []models.Choice{
			{ID: "q1-right", QuestionID: "q1", IsCorrect: true},
			{ID: "q1-wrong", QuestionID: "q1"},
		},
	})
	db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-5 * time.Minute)),
	})

	_, err := assignments.SaveAnswers(context.Background(), "asg-1", &models.SaveAnswersRequest{
		Answers: []models.AnswerInput{{QuestionID: "q1", ChoiceIDs: []string{"q1-right"}}},
	})

	// The concurrent submission froze the stored answers.
	assert.True(t, errors.Is(err, ErrAlreadySubmitted))
	assert.Empty(t, db.AnswersFor("asg-1"))
}
