package service

import (
	"errors"
	"fmt"

	"github.com/classtrack/assessment-service/internal/availability"
)

var (
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAlreadySubmitted   = errors.New("assignment already submitted")
	ErrNotInProgress      = errors.New("assignment is not in progress")
	ErrNotSubmitted       = errors.New("assignment has not been submitted")
)

// PolicyError rejects a student action because availability evaluation failed.
// It is surfaced to the caller with the reason, never silently ignored.
type PolicyError struct {
	Reason availability.Reason
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("assessment not available: %s", e.Reason)
}

// DataIntegrityError marks a row referencing a missing enrollment or
// assessment. Fatal for that row only; batch jobs skip it and continue.
type DataIntegrityError struct {
	Entity string
	ID     string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("referenced %s %s does not exist", e.Entity, e.ID)
}
