package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/semla/internal/backup"
)

func (h *Handler) HandleExportBackup(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Backup.Export(r.Context())
	if err != nil {
		fail(w, "Failed to export backup", err)
		return
	}
	name := fmt.Sprintf("semla-backup-%s.json", doc.ExportedAt.Format("2006-01-02"))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) HandleImportBackup(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	sum, err := h.service.Backup.Import(r.Context(), body)
	if errors.Is(err, backup.ErrInvalidBackup) || (err != nil && sum == nil) {
		logger.Debug.Printf("Rejected backup: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error.Printf("Backup restored partially: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"restaurado": sum,
			"error":      err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"restaurado": sum,
	})
}
