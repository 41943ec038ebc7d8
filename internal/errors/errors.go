package errors

import (
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InvalidInput            ErrorCode = "invalid_input"
	DuplicateTransaction    ErrorCode = "duplicate_transaction"
	DuplicateIdempotencyKey ErrorCode = "duplicate_idempotency_key"
	InternalError           ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// HTTPStatus maps the error code onto the caller-visible status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case InvalidInput:
		return http.StatusBadRequest
	case DuplicateTransaction, DuplicateIdempotencyKey:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Predefined errors for common cases
var (
	ErrDuplicateTransaction    = NewAppError(DuplicateTransaction, "transaction already exists")
	ErrDuplicateIdempotencyKey = NewAppError(DuplicateIdempotencyKey, "idempotency key already recorded")
	ErrCannotBeginTransaction  = NewAppError(InternalError, "cannot begin a transaction from within a transaction")
)
