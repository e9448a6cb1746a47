package marvin

import (
	"errors"
	"fmt"
	"net/http"
)

// UpstreamError is returned for any failed Marvin API call. StatusCode is 0
// when the request never produced a response.
type UpstreamError struct {
	Method     string
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("marvin %s %s: %v", e.Method, e.Endpoint, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("marvin %s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("marvin %s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Temporary reports whether the failure is worth retrying later.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound
}
