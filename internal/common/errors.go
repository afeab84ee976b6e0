package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound     = errors.New("requested resource not found")
	ErrUnauthorized = errors.New("invalid username or password") // AuthFailure, never says which field was wrong
	ErrConflict     = errors.New("username or email already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUpstream     = errors.New("recipe catalog unavailable")
	ErrStore        = errors.New("store unavailable")
)

// ValidationError carries a message that is safe to show next to a form.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

var (
	ErrMissingIdentity  = NewValidationError("username", "Username and email are required")
	ErrWeakPassword     = NewValidationError("password", "Password must be at least 8 characters long, include both uppercase and lowercase letters and special characters.")
	ErrPasswordMismatch = NewValidationError("confirmPassword", "Passwords do not match")
	ErrInvalidRating    = NewValidationError("rating", "Rating must be a whole number between 1 and 5")
	ErrCommentTooLong   = NewValidationError("comment", "Comment is too long")
)

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrUpstream) {
		return http.StatusBadGateway
	}
	if IsUniqueViolation(err) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// UserMessage returns the text a form may display for err, falling back to
// fallback for anything that could leak internals.
func UserMessage(err error, fallback string) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ErrConflict):
		return "Username or email already exists"
	case errors.Is(err, ErrUnauthorized):
		return "Invalid username or password"
	default:
		return fallback
	}
}

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// StoreErrorf wraps a database failure so callers can match ErrStore.
func StoreErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
