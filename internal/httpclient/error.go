package httpclient

import (
	"fmt"

	ierr "github.com/policlinic/backoffice/internal/errors"
)

// Error is returned for responses with a status code of 400 or above
type Error struct {
	StatusCode int
	Response   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("http client error: status %d", e.StatusCode)
}

// NewError creates a new HTTP client error marked as ErrHTTPClient
func NewError(statusCode int, response []byte) error {
	return ierr.WithError(&Error{
		StatusCode: statusCode,
		Response:   response,
	}).
		WithHintf("Remote endpoint responded with status %d", statusCode).
		WithReportableDetails(map[string]any{
			"status_code": statusCode,
		}).
		Mark(ierr.ErrHTTPClient)
}

// IsHTTPError checks if an error is an HTTP client error
func IsHTTPError(err error) (*Error, bool) {
	var httpErr *Error
	if ierr.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}
