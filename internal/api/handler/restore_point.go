package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/backupd/internal/api/request"
	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/backup"
)

type RestorePoint struct {
	engine *backup.Engine
}

func NewRestorePoint(engine *backup.Engine) *RestorePoint {
	return &RestorePoint{engine: engine}
}

func (h *RestorePoint) List(w http.ResponseWriter, r *http.Request) {
	points, err := h.engine.ListRestorePoints(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, points)
}

func (h *RestorePoint) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateRestorePoint
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rp, err := h.engine.CreateRestorePoint(r.Context(), req.BackupID, req.Description)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, rp)
}

func (h *RestorePoint) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.engine.GetRestorePoint(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, detail)
}

func (h *RestorePoint) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.DeleteRestorePoint(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
