package handlers

import (
	"errors"
	"mime"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/courses"
	"github.com/shrimpsizemoose/semla/internal/csvimport"
	"github.com/shrimpsizemoose/semla/internal/export"
	"github.com/shrimpsizemoose/semla/internal/metrics"
	"github.com/shrimpsizemoose/semla/internal/models"
)

func (h *Handler) HandleListCourses(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Courses.List(r.Context())
	if err != nil {
		fail(w, "Failed to fetch courses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cursos": list,
	})
}

// HandleCreateCourse takes either a JSON course or a roster CSV body. For
// CSV, code and the optional overrides come from the query string.
func (h *Handler) HandleCreateCourse(w http.ResponseWriter, r *http.Request) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var in courses.NewCourse
		if !h.decodeJSON(w, r, &in) {
			return
		}
		c, err := h.service.Courses.Create(r.Context(), in)
		if err != nil {
			h.courseError(w, "Failed to create course", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"curso": c,
		})
		return
	}

	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	in := courses.NewCourse{
		Code:      q.Get("codigo"),
		Name:      q.Get("nombre"),
		ShortName: q.Get("nombreCorto"),
		Color:     q.Get("color"),
	}
	c, res, err := h.service.Courses.ImportRoster(r.Context(), string(body), in)
	if err != nil {
		h.courseError(w, "Failed to import roster", err)
		return
	}

	metrics.CSVRowsImported.WithLabelValues(res.Kind.String()).Add(float64(len(res.Records)))
	metrics.CSVRowsDropped.WithLabelValues(res.Kind.String()).Add(float64(res.Dropped))

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"curso":       c,
		"seccion":     res.Section,
		"descartadas": res.Dropped,
	})
}

func (h *Handler) HandleGetCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Courses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, "Failed to fetch course", err)
		return
	}
	if c == nil {
		http.Error(w, "Course not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"curso": c,
	})
}

func (h *Handler) HandleUpdateCourse(w http.ResponseWriter, r *http.Request) {
	var upd courses.CourseUpdate
	if !h.decodeJSON(w, r, &upd) {
		return
	}
	meta, err := h.service.Courses.Update(r.Context(), r.PathValue("id"), upd)
	if err != nil {
		h.courseError(w, "Failed to update course", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"curso": meta,
	})
}

func (h *Handler) HandleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		h.courseError(w, "Failed to delete course", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluacionesEliminadas": removed,
	})
}

// HandleAttachGrades answers 422 with the validation when the grade file's
// ids do not match the roster.
func (h *Handler) HandleAttachGrades(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	v, err := h.service.Courses.AttachGradeFile(r.Context(), r.PathValue("id"), r.URL.Query().Get("archivo"), string(body))
	if err != nil {
		h.courseError(w, "Failed to attach grade file", err)
		return
	}
	status := http.StatusOK
	if !v.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]interface{}{
		"validacion": v,
	})
}

func (h *Handler) HandleDetachGrades(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Courses.DetachGradeFile(r.Context(), r.PathValue("id")); err != nil {
		h.courseError(w, "Failed to detach grade file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleExportGrades returns the uploaded grade file, or with ?merge=true the
// same file with evaluation scores written into the delivery columns.
func (h *Handler) HandleExportGrades(w http.ResponseWriter, r *http.Request) {
	ex := h.service.NewExporter(nil)
	c, summaries, err := ex.Summaries(r.Context(), r.PathValue("id"))
	if err != nil {
		h.courseError(w, "Failed to export grades", err)
		return
	}

	var out string
	if r.URL.Query().Get("merge") == "true" {
		out, err = export.MergeGrades(c, summaries)
	} else {
		out, err = export.OriginalGrades(c)
	}
	if errors.Is(err, export.ErrNoGradeFile) {
		http.Error(w, "Course has no grade file", http.StatusNotFound)
		return
	}
	if err != nil {
		fail(w, "Failed to export grades", err)
		return
	}

	fileName := c.Code + ".csv"
	if c.GradeFile.FileName != "" {
		fileName = c.GradeFile.FileName
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Write([]byte(out))
}

func (h *Handler) HandleDeleteCourseEvaluations(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteCourseEvaluations(r.Context(), r.PathValue("id"))
	if err != nil {
		h.courseError(w, "Failed to delete evaluations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluacionesEliminadas": removed,
	})
}

func (h *Handler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Comments.List(r.Context(), r.PathValue("id"), r.URL.Query().Get("grupo"))
	if err != nil {
		fail(w, "Failed to fetch comments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"comentarios": list,
	})
}

func (h *Handler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	var c models.Comment
	if !h.decodeJSON(w, r, &c) {
		return
	}
	c.Course = r.PathValue("id")
	if c.Author == "" {
		c.Author = r.Header.Get(h.service.Config.API.InstructorHeader)
	}
	saved, err := h.service.Comments.Add(r.Context(), c)
	if err != nil {
		logger.Debug.Printf("Rejected comment: %v", err)
		http.Error(w, "Invalid comment", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"comentario": saved,
	})
}

// courseError maps registry and parser errors to status codes.
func (h *Handler) courseError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, courses.ErrCourseNotFound):
		http.Error(w, "Course not found", http.StatusNotFound)
	case errors.Is(err, courses.ErrCourseExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, courses.ErrCodeRequired),
		errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrTooFewLines),
		isValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		fail(w, what, err)
	}
}
