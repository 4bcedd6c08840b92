package models

import (
	"time"
)

type AssignmentStatus string

const (
	AssignmentNotStarted AssignmentStatus = "not_started"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentSubmitted  AssignmentStatus = "submitted"
	AssignmentGraded     AssignmentStatus = "graded"
)

func (as AssignmentStatus) String() string {
	return string(as)
}

// SecurityViolationTimeExpired marks a forced submission triggered by the
// expiry enforcer rather than a proctoring report.
const SecurityViolationTimeExpired = "time_expired"

// Assignment is the per-student instance of an assessment, unique per
// (assessment_id, enrollment_id). Lifecycle state is derived from the
// timestamp triple via Status, never stored.
type Assignment struct {
	ID                string     `json:"id" db:"id"`
	AssessmentID      string     `json:"assessment_id" db:"assessment_id"`
	EnrollmentID      string     `json:"enrollment_id" db:"enrollment_id"`
	StartedAt         *time.Time `json:"started_at,omitempty" db:"started_at"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	GradedAt          *time.Time `json:"graded_at,omitempty" db:"graded_at"`
	Score             *float64   `json:"score,omitempty" db:"score"`
	AutoScore         *float64   `json:"auto_score,omitempty" db:"auto_score"`
	TeacherNotes      string     `json:"teacher_notes" db:"teacher_notes"`
	ForcedSubmission  bool       `json:"forced_submission" db:"forced_submission"`
	SecurityViolation *string    `json:"security_violation,omitempty" db:"security_violation"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// Status is the single mapping from the timestamp triple to the lifecycle
// state. Every call site derives state through here.
func (a *Assignment) Status() AssignmentStatus {
	switch {
	case a.GradedAt != nil:
		return AssignmentGraded
	case a.SubmittedAt != nil:
		return AssignmentSubmitted
	case a.StartedAt != nil:
		return AssignmentInProgress
	default:
		return AssignmentNotStarted
	}
}

// PersonalDeadline is the student's own cutoff: started_at plus the assessment
// duration. The second return is false when the assignment was never started.
func (a *Assignment) PersonalDeadline(duration time.Duration) (time.Time, bool) {
	if a.StartedAt == nil {
		return time.Time{}, false
	}
	return a.StartedAt.Add(duration), true
}

// AssignmentWithAssessment joins an assignment with its parent assessment, as
// loaded by the batch queries.
type AssignmentWithAssessment struct {
	Assignment
	Assessment Assessment `json:"assessment"`
}
