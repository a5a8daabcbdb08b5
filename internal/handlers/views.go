package handlers

import (
	"net/http"
	"strconv"

	"github.com/shrimpsizemoose/semla/internal/cohort"
	"github.com/shrimpsizemoose/semla/internal/search"
)

func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, "Missing query", http.StatusBadRequest)
		return
	}
	limit := h.service.Config.API.SearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	list, err := h.service.Courses.List(r.Context())
	if err != nil {
		fail(w, "Failed to fetch courses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"resultados": search.Search(list, q, limit),
	})
}

func (h *Handler) HandleRepeats(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Courses.List(r.Context())
	if err != nil {
		fail(w, "Failed to fetch courses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"repetidos": cohort.Repeats(list),
	})
}

func (h *Handler) HandleCohorts(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Courses.List(r.Context())
	if err != nil {
		fail(w, "Failed to fetch courses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cohortes": cohort.Group(list),
	})
}
