package errors

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound           = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists      = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation         = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation   = new(ErrCodeInvalidOperation, "invalid operation")
	ErrUnauthenticated    = new(ErrCodeUnauthenticated, "unauthenticated")
	ErrPermissionDenied   = new(ErrCodePermissionDenied, "permission denied")
	ErrPaymentProcessor   = new(ErrCodePaymentProcessor, "payment processor error")
	ErrSignatureInvalid   = new(ErrCodeSignatureInvalid, "signature verification failed")
	ErrDatabase           = new(ErrCodeDatabase, "database error")
	ErrSystem             = new(ErrCodeSystemError, "system error")
	ErrServiceUnavailable = new(ErrCodeServiceUnavailable, "service unavailable")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:           http.StatusNotFound,
		ErrAlreadyExists:      http.StatusConflict,
		ErrValidation:         http.StatusBadRequest,
		ErrInvalidOperation:   http.StatusBadRequest,
		ErrUnauthenticated:    http.StatusUnauthorized,
		ErrPermissionDenied:   http.StatusForbidden,
		ErrSignatureInvalid:   http.StatusBadRequest,
		ErrPaymentProcessor:   http.StatusInternalServerError,
		ErrDatabase:           http.StatusInternalServerError,
		ErrSystem:             http.StatusInternalServerError,
		ErrServiceUnavailable: http.StatusInternalServerError,
	}
)

const (
	ErrCodeSystemError        = "system_error"
	ErrCodeNotFound           = "not_found"
	ErrCodeAlreadyExists      = "already_exists"
	ErrCodeValidation         = "validation_error"
	ErrCodeInvalidOperation   = "invalid_operation"
	ErrCodeUnauthenticated    = "unauthenticated"
	ErrCodePermissionDenied   = "permission_denied"
	ErrCodePaymentProcessor   = "payment_processor_error"
	ErrCodeSignatureInvalid   = "signature_invalid"
	ErrCodeDatabase           = "database_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsSignatureInvalid checks if an error is a webhook signature failure
func IsSignatureInvalid(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}

// IsServiceUnavailable checks if a dependency is not configured
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// HintFromErr returns the outermost non-empty hint attached to err. Hints are
// the only part of an error that is safe to show to a client.
func HintFromErr(err error, fallback string) string {
	// GetAllHints lists the innermost hint first
	hints := errors.GetAllHints(err)
	for i := len(hints) - 1; i >= 0; i-- {
		if hint := strings.TrimSpace(hints[i]); hint != "" {
			return hint
		}
	}
	return fallback
}
