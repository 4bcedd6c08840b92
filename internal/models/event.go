package models

import "time"

const NotificationAssessmentStartingSoon = "assessment_starting_soon"

// AssessmentStartingSoonEvent is the payload delivered to each enrolled
// student shortly before a supervised assessment opens.
type AssessmentStartingSoonEvent struct {
	Type            string    `json:"type"`
	StudentID       string    `json:"student_id"`
	AssessmentID    string    `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	URL             string    `json:"url"`
}

// AssignmentSubmittedEvent is published when an assignment reaches the
// submitted state, voluntarily or by force.
type AssignmentSubmittedEvent struct {
	AssignmentID      string  `json:"assignment_id"`
	AssessmentID      string  `json:"assessment_id"`
	EnrollmentID      string  `json:"enrollment_id"`
	Forced            bool    `json:"forced"`
	SecurityViolation *string `json:"security_violation,omitempty"`
	Timestamp         int64   `json:"timestamp"`
}
