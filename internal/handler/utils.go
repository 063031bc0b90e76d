package handler

import (
	"errors"
	"net/http"

	"filegate/internal/pkg/httputils"
	"filegate/internal/service"

	"go.uber.org/zap"
)

// respondServiceError maps the service error taxonomy onto HTTP
// statuses and the {status:0, error} envelope.
func respondServiceError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httputils.ResponseError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		httputils.ResponseError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDuplicate):
		httputils.ResponseError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUpstream):
		logger.Errorw("upstream failure", "error", err)
		httputils.ResponseError(w, http.StatusBadGateway, "storage backend failure")
	default:
		logger.Errorw("internal error", "error", err)
		httputils.ResponseError(w, http.StatusInternalServerError, "internal error")
	}
}
