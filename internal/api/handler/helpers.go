package handler

import (
	"errors"
	"net/http"

	"github.com/edvin/backupd/internal/api/response"
	"github.com/edvin/backupd/internal/model"
)

// writeEngineError maps the engine's typed errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var (
		notFound   *model.NotFoundError
		invalid    *model.InvalidStateError
		protected  *model.ProtectedRecordError
		validation *model.ValidationError
		executor   *model.ExecutorError
	)
	switch {
	case errors.As(err, &notFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &protected):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &validation):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &executor):
		response.WriteError(w, http.StatusBadGateway, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
