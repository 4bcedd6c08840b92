package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/assessment-service/internal/models"
)

func seedSupervised(f *fixture, id string, scheduledAt time.Time, durationMinutes int) {
	f.db.AddAssessment(models.Assessment{
		ID:              id,
		ClassID:         "class-1",
		Title:           "Unit exam",
		DeliveryMode:    models.DeliverySupervised,
		ScheduledAt:     timePtr(scheduledAt),
		DurationMinutes: durationMinutes,
		IsPublished:     true,
	})
}

func TestExpirySubmitsPastPersonalDeadline(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-3*time.Hour), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-2 * time.Hour)),
	})

	report, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted)

	got, ok := f.db.GetAssignment("asg-1")
	require.True(t, ok)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, got.ForcedSubmission)
	require.NotNil(t, got.SecurityViolation)
	assert.Equal(t, models.SecurityViolationTimeExpired, *got.SecurityViolation)
}

func TestExpiryGlobalWindowClosesLateStarters(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	// Window ended 30 minutes ago; the student started late so their
	// personal deadline is still ahead. The announced end wins.
	seedSupervised(f, "assess-1", now.Add(-90*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-30 * time.Minute)),
	})

	report, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Submitted)

	got, ok := f.db.GetAssignment("asg-1")
	require.True(t, ok)
	assert.NotNil(t, got.SubmittedAt)
}

func TestExpiryLeavesRunningAttemptsAlone(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-30*time.Minute), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-20 * time.Minute)),
	})

	report, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Submitted)

	got, _ := f.db.GetAssignment("asg-1")
	assert.Nil(t, got.SubmittedAt)
}

func TestExpiryIgnoresNonCandidates(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	// Already submitted.
	seedSupervised(f, "assess-1", now.Add(-3*time.Hour), 60)
	submittedAt := now.Add(-time.Hour)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-submitted",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-2 * time.Hour)),
		SubmittedAt:  &submittedAt,
	})
	// Never started.
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-unstarted",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-2",
	})
	// Homework is never force-submitted.
	f.db.AddAssessment(models.Assessment{
		ID:           "assess-hw",
		ClassID:      "class-1",
		DeliveryMode: models.DeliveryHomework,
		DueDate:      timePtr(now.Add(-2 * time.Hour)),
		IsPublished:  true,
	})
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-hw",
		AssessmentID: "assess-hw",
		EnrollmentID: "enr-3",
		StartedAt:    timePtr(now.Add(-3 * time.Hour)),
	})
	// Unpublished supervised assessment.
	f.db.AddAssessment(models.Assessment{
		ID:              "assess-draft",
		ClassID:         "class-1",
		DeliveryMode:    models.DeliverySupervised,
		ScheduledAt:     timePtr(now.Add(-3 * time.Hour)),
		DurationMinutes: 60,
		IsPublished:     false,
	})
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-draft",
		AssessmentID: "assess-draft",
		EnrollmentID: "enr-4",
		StartedAt:    timePtr(now.Add(-2 * time.Hour)),
	})

	report, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Submitted)

	for _, id := range []string{"asg-unstarted", "asg-hw", "asg-draft"} {
		got, ok := f.db.GetAssignment(id)
		require.True(t, ok, id)
		assert.Nil(t, got.SubmittedAt, id)
	}
	got, _ := f.db.GetAssignment("asg-submitted")
	assert.Equal(t, submittedAt, *got.SubmittedAt)
	assert.False(t, got.ForcedSubmission)
}

func TestExpiryDryRunCountsWithoutWriting(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-3*time.Hour), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-2 * time.Hour)),
	})

	dry, err := f.expiry.Run(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, dry.Submitted)
	assert.True(t, dry.DryRun)

	got, _ := f.db.GetAssignment("asg-1")
	assert.Nil(t, got.SubmittedAt)

	real, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, dry.Submitted, real.Submitted)
}

func TestExpiryIsIdempotent(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-3*time.Hour), 60)
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-2 * time.Hour)),
	})

	first, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, first.Submitted)

	second, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Submitted)
}

func TestExpiryGradesImmediatelyWhenFullyAutoGradable(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := newFixture(now)

	seedSupervised(f, "assess-1", now.Add(-3*time.Hour), 60)
	f.db.AddQuestion(models.QuestionWithChoices{
		Question: models.Question{ID: "q1", AssessmentID: "assess-1", Type: models.QuestionOneChoice, Points: 5},
		Choices: []models.Choice{
			{ID: "c1", QuestionID: "q1", IsCorrect: true},
			{ID: "c2", QuestionID: "q1"},
		},
	})
	f.db.AddAssignment(models.Assignment{
		ID:           "asg-1",
		AssessmentID: "assess-1",
		EnrollmentID: "enr-1",
		StartedAt:    timePtr(now.Add(-2 * time.Hour)),
	})
	f.db.AddAnswer(models.Answer{
		ID:           "ans-1",
		AssignmentID: "asg-1",
		QuestionID:   "q1",
		ChoiceID:     strPtr("c1"),
	})

	_, err := f.expiry.Run(context.Background(), false)
	require.NoError(t, err)

	got, _ := f.db.GetAssignment("asg-1")
	require.NotNil(t, got.GradedAt)
	require.NotNil(t, got.Score)
	assert.Equal(t, 5.0, *got.Score)
	assert.Equal(t, 5.0, *got.AutoScore)
}
