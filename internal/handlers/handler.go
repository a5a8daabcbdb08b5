package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/metrics"
)

type Handler struct {
	service *app.Service
}

func New(service *app.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"GET /api/v1/courses":                     h.HandleListCourses,
		"POST /api/v1/courses":                    h.HandleCreateCourse,
		"GET /api/v1/courses/{id}":                h.HandleGetCourse,
		"PATCH /api/v1/courses/{id}":              h.HandleUpdateCourse,
		"DELETE /api/v1/courses/{id}":             h.HandleDeleteCourse,
		"PUT /api/v1/courses/{id}/grades":         h.HandleAttachGrades,
		"DELETE /api/v1/courses/{id}/grades":      h.HandleDetachGrades,
		"GET /api/v1/courses/{id}/grades.csv":     h.HandleExportGrades,
		"GET /api/v1/courses/{id}/comments":       h.HandleListComments,
		"POST /api/v1/courses/{id}/comments":      h.HandleAddComment,
		"DELETE /api/v1/courses/{id}/evaluations": h.HandleDeleteCourseEvaluations,
		"GET /api/v1/rubrics":                     h.HandleListRubrics,
		"POST /api/v1/rubrics":                    h.HandleSaveRubric,
		"POST /api/v1/rubrics/validate":           h.HandleValidateRubric,
		"GET /api/v1/rubrics/{id}":                h.HandleGetRubric,
		"PUT /api/v1/rubrics/{id}":                h.HandleUpdateRubric,
		"DELETE /api/v1/rubrics/{id}":             h.HandleDeleteRubric,
		"POST /api/v1/rubrics/{id}/activate":      h.HandleActivateRubric,
		"POST /api/v1/rubrics/{id}/deactivate":    h.HandleDeactivateRubric,
		"GET /api/v1/evaluations":                 h.HandleListEvaluations,
		"POST /api/v1/evaluations":                h.HandleScoreEvaluation,
		"GET /api/v1/evaluations/{key}":           h.HandleGetEvaluation,
		"PUT /api/v1/evaluations/{key}":           h.HandlePutEvaluation,
		"DELETE /api/v1/evaluations/{key}":        h.HandleDeleteEvaluation,
		"GET /api/v1/search":                      h.HandleSearch,
		"GET /api/v1/repeats":                     h.HandleRepeats,
		"GET /api/v1/cohorts":                     h.HandleCohorts,
		"GET /api/v1/backup":                      h.HandleExportBackup,
		"POST /api/v1/backup":                     h.HandleImportBackup,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, h.guard(pattern, fn))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// guard checks required headers and the bearer token, then records the
// request duration under the route pattern.
func (h *Handler) guard(pattern string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			metrics.APIRequestDuration.WithLabelValues(
				pattern,
				r.Method,
				strconv.Itoa(rec.status),
			).Observe(time.Since(start).Seconds())
		}()

		if !h.service.ValidateHeaders(r.Header) {
			http.Error(rec, "these are not the droids you are looking for", http.StatusForbidden)
			return
		}
		if err := h.service.ValidateAuth(r); err != nil {
			logger.Error.Printf("Auth failed: %v", err)
			http.Error(rec, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(rec, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.service.Config.API.MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		logger.Error.Printf("Failed to read request body: %v", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body, ok := h.readBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func fail(w http.ResponseWriter, what string, err error) {
	logger.Error.Printf("%s: %v", what, err)
	http.Error(w, what, http.StatusInternalServerError)
}

func isValidation(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs)
}
