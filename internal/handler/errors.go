package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"notevault-server/internal/apperror"
	"notevault-server/pkg/response"
)

// ErrorMapper translates service errors to HTTP responses. Classified errors
// keep their message; anything else is a 500 whose detail is logged and, in
// production, withheld from the body.
type ErrorMapper struct {
	logger     *slog.Logger
	production bool
}

func NewErrorMapper(logger *slog.Logger, production bool) *ErrorMapper {
	return &ErrorMapper{logger: logger, production: production}
}

func (m *ErrorMapper) Write(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			response.ErrorField(w, http.StatusBadRequest, appErr.Message, appErr.Field)
		case errors.Is(err, apperror.ErrUnauthorized):
			response.Unauthorized(w, appErr.Message)
		case errors.Is(err, apperror.ErrForbidden):
			response.Forbidden(w, appErr.Message)
		case errors.Is(err, apperror.ErrNotFound):
			response.NotFound(w, appErr.Message)
		case errors.Is(err, apperror.ErrConflict):
			response.Conflict(w, appErr.Message)
		default:
			m.internal(w, err)
		}
		return
	}

	m.internal(w, err)
}

func (m *ErrorMapper) internal(w http.ResponseWriter, err error) {
	m.logger.Error("internal error", slog.String("error", err.Error()))

	msg := "internal server error"
	if !m.production {
		msg = err.Error()
	}
	response.InternalError(w, msg)
}
