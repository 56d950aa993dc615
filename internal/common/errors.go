package common

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound           = errors.New("requested resource not found")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrForbidden          = errors.New("forbidden access")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict") // e.g., username already exists
	ErrInternalServer     = errors.New("internal server error")
	ErrValidation         = errors.New("validation failed")
	ErrServiceUnavailable = errors.New("service unavailable") // e.g. credential store down
	ErrLockNotAcquired    = errors.New("failed to acquire lock")
)

// Authentication errors. ErrConfiguration is only ever returned at startup.
var (
	ErrConfiguration     = errors.New("invalid security configuration")
	ErrMissingCredential = errors.New("authentication required")
	ErrInvalidToken      = errors.New("invalid token")
	ErrUnknownPrincipal  = errors.New("unknown principal")
)

// statusByKind is checked in order; the first matching sentinel wins.
var statusByKind = []struct {
	kind   error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrMissingCredential, http.StatusUnauthorized},
	{ErrInvalidToken, http.StatusUnauthorized},
	{ErrUnknownPrincipal, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrBadRequest, http.StatusBadRequest},
	{ErrValidation, http.StatusBadRequest},
	{ErrConflict, http.StatusConflict},
	{ErrLockNotAcquired, http.StatusConflict},
	{ErrServiceUnavailable, http.StatusServiceUnavailable},
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return m.status
		}
	}
	if IsUniqueViolation(err) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// IsUniqueViolation reports whether err carries a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
