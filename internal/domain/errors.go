package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes carried by AppError.
const (
	CodeNotFound      = 1
	CodeAlreadyExists = 2
	CodeValidation    = 3
	CodeInternal      = 4
	// CodeConstraint covers constraint violations other than unique keys:
	// foreign keys, checks and not-null.
	CodeConstraint = 5
	// CodeConflict marks a write aborted by a concurrent transaction. The
	// request may be retried.
	CodeConflict = 6
)

// AppError is the error type every catalog layer returns to its callers.
// The storage error that caused it, if any, stays reachable through Unwrap.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error returns the message, followed by the wrapped error if any.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Sentinels for the common cases. Match them with IsNotFound and friends,
// which compare codes, rather than errors.Is, which compares pointers.
var (
	ErrNotFound      = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &AppError{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation    = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrConstraint    = &AppError{Code: CodeConstraint, Message: "constraint violation"}
	ErrConflict      = &AppError{Code: CodeConflict, Message: "concurrent update conflict"}
)

// NewAppError creates an AppError wrapping err, which may be nil.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Invalid returns a validation AppError with a formatted message.
func Invalid(format string, args ...any) *AppError {
	return &AppError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool { return hasCode(err, CodeNotFound) }

// IsAlreadyExists reports a unique-key clash.
func IsAlreadyExists(err error) bool { return hasCode(err, CodeAlreadyExists) }

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool { return hasCode(err, CodeValidation) }

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool { return hasCode(err, CodeInternal) }

// IsConstraint reports a non-unique constraint violation. Unique-key clashes
// carry CodeAlreadyExists instead.
func IsConstraint(err error) bool { return hasCode(err, CodeConstraint) }

// IsConflict reports a write lost to a concurrent transaction.
func IsConflict(err error) bool { return hasCode(err, CodeConflict) }

func hasCode(err error, code int) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

var httpStatus = map[int]int{
	CodeNotFound:      http.StatusNotFound,
	CodeAlreadyExists: http.StatusConflict,
	CodeConstraint:    http.StatusConflict,
	CodeConflict:      http.StatusConflict,
	CodeValidation:    http.StatusBadRequest,
	CodeInternal:      http.StatusInternalServerError,
}

// HTTPStatusCode maps err to the status of the HTTP envelope. Anything that
// is not an AppError with a known code is a 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if status, ok := httpStatus[appErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}
