package handlers

import (
	"errors"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/app"
	"github.com/shrimpsizemoose/semla/internal/evaluations"
	"github.com/shrimpsizemoose/semla/internal/metrics"
	"github.com/shrimpsizemoose/semla/internal/models"
	"github.com/shrimpsizemoose/semla/internal/scoring"
)

func (h *Handler) HandleListEvaluations(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Evaluations.List(r.Context(), r.URL.Query().Get("curso"))
	if err != nil {
		fail(w, "Failed to fetch evaluations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluaciones": list,
	})
}

// HandleScoreEvaluation grades the posted evaluation against its rubric and
// stores it under the composite key, which is returned.
func (h *Handler) HandleScoreEvaluation(w http.ResponseWriter, r *http.Request) {
	var e models.Evaluation
	if !h.decodeJSON(w, r, &e) {
		return
	}

	key, saved, err := h.service.ScoreEvaluation(r.Context(), e)
	switch {
	case errors.Is(err, app.ErrNoRubric):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, scoring.ErrRubricMismatch), isValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		fail(w, "Failed to save evaluation", err)
		return
	}

	observeEvaluation(saved)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"key":        key,
		"evaluacion": saved,
	})
}

func (h *Handler) HandleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Evaluations.Get(r.Context(), r.PathValue("key"))
	if err != nil {
		fail(w, "Failed to fetch evaluation", err)
		return
	}
	if e == nil {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluacion": e,
	})
}

// HandlePutEvaluation stores the body as is under the key in the path.
func (h *Handler) HandlePutEvaluation(w http.ResponseWriter, r *http.Request) {
	var e models.Evaluation
	if !h.decodeJSON(w, r, &e) {
		return
	}
	saved, err := h.service.Evaluations.Save(r.Context(), r.PathValue("key"), e)
	if err != nil {
		logger.Debug.Printf("Rejected evaluation: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	observeEvaluation(saved)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"evaluacion": saved,
	})
}

func (h *Handler) HandleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	err := h.service.Evaluations.Delete(r.Context(), r.PathValue("key"))
	if errors.Is(err, evaluations.ErrEvaluationNotFound) {
		http.Error(w, "Evaluation not found", http.StatusNotFound)
		return
	}
	if err != nil {
		fail(w, "Failed to delete evaluation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func observeEvaluation(e *models.Evaluation) {
	metrics.EvaluationsSaved.WithLabelValues(string(e.Delivery), string(e.Type)).Inc()
	metrics.EvaluationTotals.WithLabelValues(string(e.Delivery)).Observe(e.Total)
}
