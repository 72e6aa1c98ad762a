package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/backupd/internal/api/request"
	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/backup"
	"github.com/edvin/backupd/internal/model"
)

type Schedule struct {
	engine *backup.Engine
}

func NewSchedule(engine *backup.Engine) *Schedule {
	return &Schedule{engine: engine}
}

func scheduleInput(req *request.SaveSchedule) (backup.ScheduleInput, error) {
	kind, err := model.ParseBackupKind(req.Type)
	if err != nil {
		return backup.ScheduleInput{}, err
	}
	return backup.ScheduleInput{
		Name:             req.Name,
		Kind:             kind,
		CronExpression:   req.CronExpression,
		Enabled:          req.Enabled,
		RetentionDays:    req.RetentionDays,
		Compress:         req.Compress,
		Encrypt:          req.Encrypt,
		NotifyOnComplete: req.NotifyOnComplete,
		NotifyOnFailure:  req.NotifyOnFailure,
	}, nil
}

func (h *Schedule) List(w http.ResponseWriter, r *http.Request) {
	scheds, err := h.engine.ListSchedules(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, scheds)
}

func (h *Schedule) Create(w http.ResponseWriter, r *http.Request) {
	var req request.SaveSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := scheduleInput(&req)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.engine.CreateSchedule(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, sched)
}

func (h *Schedule) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.engine.GetSchedule(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *Schedule) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.SaveSchedule
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	in, err := scheduleInput(&req)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched, err := h.engine.UpdateSchedule(r.Context(), id, in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, sched)
}

func (h *Schedule) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.DeleteSchedule(r.Context(), id); err != nil {
		writeEngineError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
