package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthExpired means the bearer token is missing or was rejected.
	ErrAuthExpired = errors.New("session expired")
	// ErrInvalidResponse means a 2xx response lacked required fields.
	ErrInvalidResponse = errors.New("invalid backend response")
	// ErrRoleUnrecognized means a profile response matched neither role shape.
	ErrRoleUnrecognized = errors.New("profile response carries no recognizable role")
)

// APIError is a non-2xx backend response.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d - %s", e.Op, e.Status, e.Message)
}

// Is lets errors.Is(err, ErrAuthExpired) match 401/403 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrAuthExpired && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// IsAuthError reports whether err means the session must be re-established.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// StatusCode extracts the HTTP status of an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
