package http

import (
	"errors"
	"net/http"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// problem maps a use case error onto a status code and body.
//
//	InvalidTransition          409 with the allowed next statuses
//	WriteConflict              409, the client re-reads and retries
//	unique key violation       409
//	UnknownStatus              422
//	ConstraintViolation        422 with every rule that failed
//	ObjectNotFound             404
//	ValueIs{Invalid,Required,OutOfRange}  400
//	anything else              500
func problem(err error) Error {
	var (
		invalid    *delivery.InvalidTransitionError
		unknown    *delivery.UnknownStatusError
		constraint *services.ConstraintViolationError
	)

	switch {
	case errors.As(err, &invalid):
		allowed := make([]string, 0, len(invalid.AllowedTransitions))
		for _, s := range invalid.AllowedTransitions {
			allowed = append(allowed, s.String())
		}
		return Error{Code: http.StatusConflict, Message: err.Error(), AllowedTransitions: allowed}
	case errors.Is(err, errs.ErrWriteConflict):
		return Error{Code: http.StatusConflict, Message: err.Error()}
	case isUniqueViolation(err):
		return Error{Code: http.StatusConflict, Message: "resource already exists"}
	case errors.As(err, &unknown):
		return Error{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	case errors.As(err, &constraint):
		return Error{
			Code:     http.StatusUnprocessableEntity,
			Message:  err.Error(),
			Errors:   constraint.Errors,
			Warnings: constraint.Warnings,
		}
	case errors.Is(err, errs.ErrObjectNotFound):
		return Error{Code: http.StatusNotFound, Message: err.Error()}
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsRequired),
		errors.Is(err, errs.ErrValueIsOutOfRange):
		return Error{Code: http.StatusBadRequest, Message: err.Error()}
	default:
		return Error{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}

// isUniqueViolation recognises the error from either PostgreSQL driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

func (s *Server) fail(ctx echo.Context, err error) error {
	body := problem(err)
	if body.Code >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx.Request().Context(), "Request failed",
			"method", ctx.Request().Method, "path", ctx.Path(), "error", err)
	}
	return ctx.JSON(body.Code, body)
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{Code: http.StatusBadRequest, Message: message})
}

