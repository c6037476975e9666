package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application.
// Business rule failures are marked with one of the first four sentinels.
var (
	ErrValidation      = new(ErrCodeValidation, "validation error")
	ErrNotFound        = new(ErrCodeNotFound, "resource not found")
	ErrConflict        = new(ErrCodeConflict, "conflict")
	ErrInvalidState    = new(ErrCodeInvalidState, "invalid state")
	ErrVersionConflict = new(ErrCodeVersionConflict, "version conflict")
	ErrDatabase        = new(ErrCodeDatabase, "database error")
	ErrSystem          = new(ErrCodeSystemError, "system error")
	ErrHTTPClient      = new(ErrCodeHTTPClient, "http client error")
	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrValidation:      http.StatusBadRequest,
		ErrNotFound:        http.StatusNotFound,
		ErrConflict:        http.StatusConflict,
		ErrInvalidState:    http.StatusUnprocessableEntity,
		ErrVersionConflict: http.StatusConflict,
		ErrDatabase:        http.StatusInternalServerError,
		ErrSystem:          http.StatusInternalServerError,
		ErrHTTPClient:      http.StatusInternalServerError,
	}
)

const (
	ErrCodeValidation      = "validation_error"
	ErrCodeNotFound        = "not_found"
	ErrCodeConflict        = "conflict"
	ErrCodeInvalidState    = "invalid_state"
	ErrCodeVersionConflict = "version_conflict"
	ErrCodeDatabase        = "database_error"
	ErrCodeSystemError     = "system_error"
	ErrCodeHTTPClient      = "http_client_error"
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

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidState checks if an error is an invalid state error
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsVersionConflict checks if an error is a version conflict error
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsBusinessRule reports whether err is one of the typed business failures
// as opposed to an unexpected collaborator failure.
func IsBusinessRule(err error) bool {
	return IsValidation(err) || IsNotFound(err) || IsConflict(err) || IsInvalidState(err)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsSystem checks if an error is a system error
func IsSystem(err error) bool {
	return errors.Is(err, ErrSystem)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// CodeFromErr returns the code of the sentinel err is marked with
func CodeFromErr(err error) string {
	for _, e := range []*InternalError{
		ErrValidation,
		ErrNotFound,
		ErrConflict,
		ErrInvalidState,
		ErrVersionConflict,
		ErrDatabase,
		ErrHTTPClient,
	} {
		if errors.Is(err, e) {
			return e.Code
		}
	}
	return ErrCodeSystemError
}

// DisplayMessage returns the first non-empty hint attached to err.
func DisplayMessage(err error) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint != "" {
			return hint
		}
	}
	return "An unexpected error occurred"
}
