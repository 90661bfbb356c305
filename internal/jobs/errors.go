package jobs

import (
	"errors"
	"net/http"
)

// Domain errors for compute job operations.
var (
	ErrNotFound       = errors.New("job not found")
	ErrDuplicate      = errors.New("job already exists")
	ErrInvalidSpec    = errors.New("invalid job spec")
	ErrInvalidState   = errors.New("job not in a state that allows this transition")
	ErrNoneAvailable  = errors.New("no queued jobs available")
	ErrSubmit         = errors.New("job submission failed")
	ErrInvalidRequest = errors.New("invalid request")
)

// MapHTTPStatus maps job domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoneAvailable) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrInvalidState) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidSpec) || errors.Is(err, ErrInvalidRequest) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
