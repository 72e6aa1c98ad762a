package handler

import (
	"net/http"

	"github.com/edvin/backupd/internal/api/request"
	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/backup"
)

// Admin serves the aggregate endpoints: stats, cleanup and the report
// export.
type Admin struct {
	engine *backup.Engine
}

func NewAdmin(engine *backup.Engine) *Admin {
	return &Admin{engine: engine}
}

func (h *Admin) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, stats)
}

func (h *Admin) Cleanup(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RunCleanup(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

func (h *Admin) ExportReport(w http.ResponseWriter, r *http.Request) {
	start, end, err := request.ParseDateRange(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, contentType, err := h.engine.ExportReport(r.Context(), r.URL.Query().Get("format"), start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	if contentType == "text/csv" {
		w.Header().Set("Content-Disposition", `attachment; filename="backup-report.csv"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}
