package httpd

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/classtrack/assessment-service/internal/models"
)

func (h *Handler) SaveTeacherCorrections(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	var req models.TeacherCorrectionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Corrections) == 0 {
		writeError(w, http.StatusBadRequest, "corrections are required")
		return
	}

	assignment, err := h.gradingService.SaveTeacherCorrections(r.Context(), assignmentID, &req)
	if err != nil {
		h.handleAssignmentError(w, err)
		return
	}

	writeSuccess(w, assignment)
}

func (h *Handler) RecomputeAutoScore(w http.ResponseWriter, r *http.Request) {
	assignmentID := chi.URLParam(r, "id")
	if assignmentID == "" {
		writeError(w, http.StatusBadRequest, "Assignment ID is required")
		return
	}

	assignment, err := h.gradingService.RecomputeAutoScore(r.Context(), assignmentID)
	if err != nil {
		h.handleAssignmentError(w, err)
		return
	}

	writeSuccess(w, assignment)
}
