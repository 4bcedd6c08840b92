package httpd

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/classtrack/assessment-service/internal/service"
)

type Handler struct {
	assignmentService service.AssignmentService
	gradingService    service.GradingService
	logger            zerolog.Logger
}

func NewHandler(
	assignmentService service.AssignmentService,
	gradingService service.GradingService,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		assignmentService: assignmentService,
		gradingService:    gradingService,
		logger:            logger,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.HealthCheck)

	router.Route("/api/v1", func(api chi.Router) {
		api.Route("/assignments/{id}", func(r chi.Router) {
			r.Get("/", h.GetAssignmentStatus)
			r.Post("/start", h.StartAssignment)
			r.Put("/answers", h.SaveAnswers)
			r.Post("/submit", h.SubmitAssignment)
			r.Post("/violation", h.ReportViolation)
			r.Post("/corrections", h.SaveTeacherCorrections)
			r.Post("/recompute", h.RecomputeAutoScore)
		})
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"service":   "assessment-service",
		"timestamp": time.Now().UTC(),
	}

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"success": true,
		"data":    data,
	}
	writeJSON(w, http.StatusOK, response)
}
