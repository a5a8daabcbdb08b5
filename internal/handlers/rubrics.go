package handlers

import (
	"errors"
	"net/http"

	"github.com/shrimpsizemoose/semla/internal/metrics"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/rubrics"
)

func (h *Handler) HandleListRubrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := rubrics.Filter{
		Course:     q.Get("curso"),
		ActiveOnly: q.Get("activa") == "true",
	}
	if v := q.Get("tipo"); v != "" {
		t, err := models.ParseRubricType(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Type = t
	}
	if v := q.Get("entrega"); v != "" {
		d, err := models.ParseDeliveryType(v)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.Delivery = d
	}

	list, err := h.service.Rubrics.List(r.Context(), f)
	if err != nil {
		fail(w, "Failed to fetch rubrics", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rubricas": list,
	})
}

// HandleSaveRubric runs duplicate detection: identical rubrics answer 200
// with the stored one, content duplicates 409, everything else 201.
func (h *Handler) HandleSaveRubric(w http.ResponseWriter, r *http.Request) {
	var in models.Rubric
	if !h.decodeJSON(w, r, &in) {
		return
	}

	saved, d, err := h.service.Rubrics.SaveChecked(r.Context(), in)
	if d.Class != "" {
		metrics.RubricDecisions.WithLabelValues(string(d.Class)).Inc()
	}
	switch {
	case errors.Is(err, rubrics.ErrDuplicateContent):
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"decision": d,
		})
		return
	case err != nil:
		h.rubricError(w, "Failed to save rubric", err)
		return
	}

	status := http.StatusCreated
	if d.Class == rubrics.ClassIdentical {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]interface{}{
		"rubrica":  saved,
		"decision": d,
	})
}

func (h *Handler) HandleValidateRubric(w http.ResponseWriter, r *http.Request) {
	var in models.Rubric
	if !h.decodeJSON(w, r, &in) {
		return
	}
	writeJSON(w, http.StatusOK, rubrics.Validate(&in))
}

func (h *Handler) HandleGetRubric(w http.ResponseWriter, r *http.Request) {
	rubric, err := h.service.Rubrics.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, "Failed to fetch rubric", err)
		return
	}
	if rubric == nil {
		http.Error(w, "Rubric not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rubrica": rubric,
	})
}

// HandleUpdateRubric edits a rubric in place, without duplicate detection.
func (h *Handler) HandleUpdateRubric(w http.ResponseWriter, r *http.Request) {
	var in models.Rubric
	if !h.decodeJSON(w, r, &in) {
		return
	}
	in.ID = r.PathValue("id")

	existing, err := h.service.Rubrics.Get(r.Context(), in.ID)
	if err != nil {
		fail(w, "Failed to fetch rubric", err)
		return
	}
	if existing == nil {
		http.Error(w, "Rubric not found", http.StatusNotFound)
		return
	}

	saved, err := h.service.Rubrics.Save(r.Context(), in)
	if err != nil {
		h.rubricError(w, "Failed to save rubric", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rubrica": saved,
	})
}

func (h *Handler) HandleDeleteRubric(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Rubrics.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.rubricError(w, "Failed to delete rubric", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleActivateRubric(w http.ResponseWriter, r *http.Request) {
	h.setRubricActive(w, r, true)
}

func (h *Handler) HandleDeactivateRubric(w http.ResponseWriter, r *http.Request) {
	h.setRubricActive(w, r, false)
}

func (h *Handler) setRubricActive(w http.ResponseWriter, r *http.Request, active bool) {
	var (
		rubric *models.Rubric
		err    error
	)
	if active {
		rubric, err = h.service.Rubrics.Activate(r.Context(), r.PathValue("id"))
	} else {
		rubric, err = h.service.Rubrics.Deactivate(r.Context(), r.PathValue("id"))
	}
	if err != nil {
		h.rubricError(w, "Failed to change rubric state", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rubrica": rubric,
	})
}

func (h *Handler) rubricError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, rubrics.ErrRubricNotFound):
		http.Error(w, "Rubric not found", http.StatusNotFound)
	case isValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		fail(w, what, err)
	}
}
