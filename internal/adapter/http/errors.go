package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mw "loan-servicing-backend/internal/adapter/middleware"
	"loan-servicing-backend/internal/domain/apperr"
	"loan-servicing-backend/internal/domain/authz"
)

// writeError maps use-case errors to HTTP statuses. Unknown errors are logged and hidden.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: ve.Field, Message: ve.Message}},
		})
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bind decodes and validates the request; it writes the 400/422 response itself and reports false.
func bind(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}

// actorHandler is a handler that needs the authenticated caller.
type actorHandler func(c echo.Context, a authz.Actor) error

// authed adapts h to echo, answering 401 when no actor was authenticated.
func authed(h actorHandler) echo.HandlerFunc {
	return func(c echo.Context) error {
		a, ok := mw.ActorFrom(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
		}
		return h(c, a)
	}
}
