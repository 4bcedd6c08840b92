package httpd

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classtrack/assessment-service/internal/models"
	"github.com/classtrack/assessment-service/internal/service"
)

func (h *Handler) GetAssignmentStatus(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	status, err := h.assignmentService.GetStatus(r.Context(), assignmentID)
	if err != nil {
		h.handleAssignmentError(w, err)
		return
	}

	writeSuccess(w, status)
}

func (h *Handler) StartAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	assignment, err := h.assignmentService.Start(r.Context(), assignmentID)
	if err != nil {
		h.handleAssignmentError(w, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) SaveAnswers(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	var req models.SaveAnswersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, http.StatusBadRequest, "answers are required")
		return
	}

	assignment, err := h.assignmentService.SaveAnswers(r.Context(), assignmentID, &req)
	if err != nil {
		h.handleAssignmentError(w, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) SubmitAssignment(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	assignment, err := h.assignmentService.Submit(r.Context(), assignmentID)
	if err != nil {
		h.handleAssignmentError(w, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) ReportViolation(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	var req models.ViolationReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ViolationType == "" {
		writeError(w, http.StatusBadRequest, "violation_type is required")
		return
	}

	assignment, err := h.assignmentService.ReportViolation(r.Context(), assignmentID, &req)
	if err != nil {
		h.handleAssignmentError(w, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) handleAssignmentError(w http.ResponseWriter, err error) {
	var policyErr *service.PolicyError
	if errors.As(err, &policyErr) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error":   http.StatusText(http.StatusConflict),
			"message": policyErr.Error(),
			"reason":  policyErr.Reason.String(),
		})
		return
	}

	var integrityErr *service.DataIntegrityError
	if errors.As(err, &integrityErr) {
		h.logger.Error().Err(err).Msg("Data integrity error")
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrAssessmentNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrNotInProgress),
		errors.Is(err, service.ErrNotSubmitted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error().Err(err).Msg("Assignment request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
