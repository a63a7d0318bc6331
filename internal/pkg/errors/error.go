package xerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Application error taxonomy. Callers wrap these with context and the HTTP
// boundary maps them back with StatusCode.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrExpired            = errors.New("credential expired")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOrExpired   = errors.New("invalid or expired refresh token")
	ErrConflict           = errors.New("conflict: resource already exists")
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("too many requests")
	ErrInternal           = errors.New("internal server error")
)

// Wrap adds context to an error (similar to fmt.Errorf("%w")).
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is allows checking whether an error is a specific sentinel error.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsAuth reports whether err is one of the authentication failures that
// surface as a uniform 401.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidOrExpired)
}

// StatusCode maps an error onto the HTTP status the API returns for it.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsAuth(err):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the sentinel that err wraps, so callers never leak the
// internal cause chain. Expired and rejected tokens share ErrUnauthenticated.
// Unrecognised errors collapse to ErrInternal.
func Public(err error) error {
	if errors.Is(err, ErrExpired) {
		return ErrUnauthenticated
	}
	for _, s := range []error{
		ErrUnauthenticated, ErrInvalidCredentials, ErrInvalidOrExpired,
		ErrConflict, ErrForbidden, ErrNotFound, ErrInvalidInput, ErrRateLimited,
	} {
		if errors.Is(err, s) {
			return s
		}
	}
	return ErrInternal
}

// MessageOrDefault returns err.Error() or a fallback message if err is nil.
func MessageOrDefault(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
