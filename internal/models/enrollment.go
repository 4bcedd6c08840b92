package models

import (
	"time"
)

type EnrollmentStatus string

const (
	EnrollmentActive      EnrollmentStatus = "active"
	EnrollmentTransferred EnrollmentStatus = "transferred"
	EnrollmentWithdrawn   EnrollmentStatus = "withdrawn"
)

func (es EnrollmentStatus) String() string {
	return string(es)
}

// Enrollment is owned by the enrollment directory and consumed read-only.
type Enrollment struct {
	ID         string           `json:"id" db:"id"`
	StudentID  string           `json:"student_id" db:"student_id"`
	ClassID    string           `json:"class_id" db:"class_id"`
	Status     EnrollmentStatus `json:"status" db:"status"`
	EnrolledAt time.Time        `json:"enrolled_at" db:"enrolled_at"`
	LeftAt     *time.Time       `json:"left_at,omitempty" db:"left_at"`
}

func (e *Enrollment) IsActive() bool {
	return e.Status == EnrollmentActive
}
