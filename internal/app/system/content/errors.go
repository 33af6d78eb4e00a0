// internal/app/system/content/errors.go
package content

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound is returned when the content API has no such entry.
var ErrNotFound = errors.New("content not found")

// maxErrorBody is how much of a failed response body is kept.
const maxErrorBody = 512

// TimeoutError means the content API did not answer within the client deadline.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("content api timeout after %s: %s", e.Timeout, e.URL)
}

// TransportError means the request never produced a response
// (connection refused, DNS failure, reset).
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("content api unreachable: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx answer other than 404. Body is truncated.
type UpstreamError struct {
	URL    string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("content api %s: %d %s: %s", e.URL, e.Status, http.StatusText(e.Status), e.Body)
}

// IsUnavailable reports whether err means the content API could not serve
// the request at all: a timeout, a transport failure, or a 5xx. Callers
// fall back to built-in data in that case.
func IsUnavailable(err error) bool {
	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	var tr *TransportError
	if errors.As(err, &tr) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status >= 500
	}
	return false
}
