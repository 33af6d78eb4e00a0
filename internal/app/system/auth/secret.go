package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrNotConfigured means the server has no secret for this gateway, so
	// every request is refused.
	ErrNotConfigured = errors.New("secret not configured")
	// ErrUnauthorized means the caller's token is missing or wrong.
	ErrUnauthorized = errors.New("invalid token")
)

// CheckSecret validates a shared-secret gateway request. The token is read
// from header (when non-empty) and then from the "secret" query parameter.
func CheckSecret(r *http.Request, configured, header string) error {
	if configured == "" {
		return ErrNotConfigured
	}
	provided := ""
	if header != "" {
		provided = r.Header.Get(header)
	}
	if provided == "" {
		provided = r.URL.Query().Get("secret")
	}
	if provided == "" || !Equal(provided, configured) {
		return ErrUnauthorized
	}
	return nil
}
