package apiclient

import (
	"errors"
	"fmt"
)

// Error taxonomy for backend calls. The session controller branches on
// ErrUnauthorized to drive its refresh-and-retry; everything else surfaces
// to the user.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
	ErrDecode       = errors.New("malformed response body")
)

// StatusError is returned for server error statuses outside the mapped
// 401/403/404 set.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error (status %d)", e.Code)
	}
	return fmt.Sprintf("server error (status %d): %s", e.Code, e.Body)
}

// BackendError carries the backend's own failure message, surfaced verbatim
// when a 2xx response arrives with response == false.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string { return e.Message }
