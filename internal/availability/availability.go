// Package availability decides whether an assessment is currently takeable for
// a given assignment. It is pure and side-effect-free: the request handlers and
// the batch jobs must both call Evaluate so the rules exist in exactly one
// place.
package availability

import (
	"time"

	"github.com/classtrack/assessment-service/internal/models"
)

type Reason string

const (
	ReasonNotPublished  Reason = "assessment_not_published"
	ReasonDueDatePassed Reason = "assessment_due_date_passed"
	ReasonNotStarted    Reason = "assessment_not_started"
	ReasonEnded         Reason = "assessment_ended"
)

func (r Reason) String() string {
	return string(r)
}

type Result struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason,omitempty"`
}

func available() Result {
	return Result{Available: true}
}

func unavailable(reason Reason) Result {
	return Result{Available: false, Reason: reason}
}

// Evaluate checks the availability rules in order; the first failing rule wins.
//
// Supervised assessments stay available to a student who already started until
// their personal deadline (started_at + duration), even after the global window
// has passed. Force-closing such assignments is the expiry enforcer's job, not
// this evaluator's.
func Evaluate(assessment *models.Assessment, assignment *models.Assignment, now time.Time) Result {
	if !assessment.IsPublished {
		return unavailable(ReasonNotPublished)
	}

	if assessment.DeliveryMode == models.DeliveryHomework {
		if assessment.DueDate != nil && now.After(*assessment.DueDate) && !assessment.AllowLateSubmission {
			return unavailable(ReasonDueDatePassed)
		}
		return available()
	}

	// Supervised: nothing is takeable before the scheduled start.
	if assessment.ScheduledAt == nil {
		return unavailable(ReasonNotStarted)
	}
	if now.Before(*assessment.ScheduledAt) {
		return unavailable(ReasonNotStarted)
	}

	if assignment == nil || assignment.StartedAt == nil {
		// Never started: the global window is the only cutoff.
		if end, ok := assessment.WindowEnd(); ok && !now.Before(end) {
			return unavailable(ReasonEnded)
		}
		return available()
	}

	// Started: the personal deadline governs.
	if deadline, ok := assignment.PersonalDeadline(assessment.Duration()); ok && !now.Before(deadline) {
		return unavailable(ReasonEnded)
	}
	return available()
}
