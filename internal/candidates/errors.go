package candidates

import (
	"errors"
	"net/http"
)

// Domain errors for candidate operations.
var (
	ErrNotFound     = errors.New("candidate not found")
	ErrDuplicate    = errors.New("candidate already exists")
	ErrFieldSet     = errors.New("candidate field already set")
	ErrInvalidQuery = errors.New("invalid candidate query")
)

// MapHTTPStatus maps candidate domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) || errors.Is(err, ErrFieldSet) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidQuery) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
