package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/backupd/internal/api/request"
	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/backup"
	"github.com/edvin/backupd/internal/model"
)

type Backup struct {
	engine *backup.Engine
}

func NewBackup(engine *backup.Engine) *Backup {
	return &Backup{engine: engine}
}

func (h *Backup) List(w http.ResponseWriter, r *http.Request) {
	filter, err := request.ParseHistoryFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, total, err := h.engine.ListBackups(r.Context(), filter)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WritePaginated(w, http.StatusOK, records, total, filter.Offset, filter.Limit)
}

// Create runs a backup synchronously and returns the terminal record.
// An executor failure still returns the record, with status failed.
func (h *Backup) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	kind, err := model.ParseBackupKind(req.Type)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.engine.CreateBackup(r.Context(), kind, backup.CreateOptions{
		Compress:      req.Compress,
		Encrypt:       req.Encrypt,
		Tables:        req.Tables,
		RetentionDays: req.RetentionDays,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Backup) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.engine.GetBackup(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, rec)
}

func (h *Backup) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.DeleteBackup(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Backup) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Verify(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}

func (h *Backup) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RestoreBackup
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.Restore(r.Context(), id, backup.RestoreOptions{
		Tables: req.Tables,
		DryRun: req.DryRun,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, result)
}
