package models

import "time"

// Data Transfer Objects

type AnswerInput struct {
	QuestionID string   `json:"question_id" validate:"required,uuid"`
	ChoiceIDs  []string `json:"choice_ids,omitempty"`
	Text       *string  `json:"text,omitempty"`
	FileID     *string  `json:"file_id,omitempty"`
	FileName   *string  `json:"file_name,omitempty"`
}

type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1"`
}

type ViolationReportRequest struct {
	ViolationType string        `json:"violation_type" validate:"required,min=1,max=100"`
	Answers       []AnswerInput `json:"answers,omitempty"`
}

type QuestionCorrection struct {
	QuestionID string  `json:"question_id" validate:"required,uuid"`
	Score      float64 `json:"score" validate:"min=0"`
	Feedback   *string `json:"feedback,omitempty"`
}

type TeacherCorrectionsRequest struct {
	Corrections  []QuestionCorrection `json:"corrections" validate:"required,min=1"`
	TeacherNotes string               `json:"teacher_notes,omitempty"`
}

type AssignmentStatusResponse struct {
	Assignment  *Assignment      `json:"assignment"`
	Status      AssignmentStatus `json:"status"`
	Available   bool             `json:"available"`
	Reason      string           `json:"reason,omitempty"`
	SubmittedBy *time.Time       `json:"submitted_by,omitempty"`
}

// JobReport is the summary every batch job returns: per-row failures are
// aggregated here, never raised.
type JobReport struct {
	Processed int  `json:"processed"`
	Created   int  `json:"created"`
	Submitted int  `json:"submitted"`
	Notified  int  `json:"notified"`
	Skipped   int  `json:"skipped"`
	DryRun    bool `json:"dry_run"`
}
