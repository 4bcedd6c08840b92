package models

import (
	"time"
)

type DeliveryMode string

const (
	DeliverySupervised DeliveryMode = "supervised"
	DeliveryHomework   DeliveryMode = "homework"
)

func (dm DeliveryMode) String() string {
	return string(dm)
}

func IsValidDeliveryMode(mode string) bool {
	switch mode {
	case "supervised", "homework":
		return true
	default:
		return false
	}
}

// Assessment is an exam or homework issued to a class subject. Exactly one of
// {ScheduledAt+DurationMinutes, DueDate} is meaningful, selected by DeliveryMode.
type Assessment struct {
	ID                  string       `json:"id" db:"id"`
	ClassSubjectID      string       `json:"class_subject_id" db:"class_subject_id"`
	ClassID             string       `json:"class_id" db:"class_id"`
	Title               string       `json:"title" db:"title"`
	DeliveryMode        DeliveryMode `json:"delivery_mode" db:"delivery_mode"`
	ScheduledAt         *time.Time   `json:"scheduled_at,omitempty" db:"scheduled_at"`
	DurationMinutes     int          `json:"duration_minutes" db:"duration_minutes"`
	DueDate             *time.Time   `json:"due_date,omitempty" db:"due_date"`
	IsPublished         bool         `json:"is_published" db:"is_published"`
	AllowLateSubmission bool         `json:"allow_late_submission" db:"allow_late_submission"`
	ReminderSentAt      *time.Time   `json:"reminder_sent_at,omitempty" db:"reminder_sent_at"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`
}

func (a *Assessment) IsSupervised() bool {
	return a.DeliveryMode == DeliverySupervised
}

func (a *Assessment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// WindowEnd returns the end of the global supervised window. The second return
// is false when the assessment has no scheduled start.
func (a *Assessment) WindowEnd() (time.Time, bool) {
	if a.ScheduledAt == nil {
		return time.Time{}, false
	}
	return a.ScheduledAt.Add(a.Duration()), true
}

// Ended reports whether the assessment can no longer be taken from scratch:
// homework past its due date, or a supervised window that has closed.
func (a *Assessment) Ended(now time.Time) bool {
	switch a.DeliveryMode {
	case DeliveryHomework:
		return a.DueDate != nil && now.After(*a.DueDate)
	case DeliverySupervised:
		end, ok := a.WindowEnd()
		return ok && now.After(end)
	default:
		return false
	}
}
