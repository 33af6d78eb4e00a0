// internal/app/system/draftmode/draftmode.go
package draftmode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

// Session error classification for logging and monitoring.
type sessionErrorType int

const (
	sessionErrUnknown sessionErrorType = iota
	sessionErrExpired                  // timestamp expired - normal
	sessionErrTampered                 // MAC invalid - potential attack
	sessionErrCorrupted                // decode/decrypt failed - corruption or key rotation
	sessionErrBackend                  // store/backend failure
)

const (
	draftKey      = "draft"
	draftSinceKey = "draft_since"
	boostAtKey    = "boost_at"

	// DefaultName is the viewer session cookie name.
	DefaultName = "stratatour-viewer"
)

// Manager owns the viewer session cookie. The cookie carries the draft
// flag set by the preview gateway and the time of the viewer's last
// engagement boost; nothing else about the viewer is stored.
type Manager struct {
	store  *sessions.CookieStore
	logger *zap.Logger
	name   string
}

// ConfigError is returned when the session configuration is unusable.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// NewManager creates a Manager.
//
//   - sessionKey: signing key for cookies (must be ≥32 chars when secure)
//   - name: cookie name (DefaultName if empty)
//   - domain: cookie domain (empty means current host)
//   - maxAge: cookie lifetime
//   - secure: Secure cookies and a strong key are required
func NewManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*Manager, error) {
	if sessionKey == "" {
		return nil, &ConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}

	isWeak := len(sessionKey) < 32 || isDefaultKey(sessionKey)
	if secure && isWeak {
		return nil, &ConfigError{
			Message: "session key is too weak for production; provide ≥32 random chars (not the default dev key)",
		}
	} else if isWeak {
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(sessionKey)),
			zap.Bool("is_default", isDefaultKey(sessionKey)))
	}

	if name == "" {
		name = DefaultName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		// Lax keeps the cookie on the top-level redirect out of the CMS preview link.
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("viewer session manager initialized",
		zap.Bool("secure", secure),
		zap.String("name", name),
		zap.String("domain", domain))

	return &Manager{store: store, logger: logger, name: name}, nil
}

// Name returns the cookie name.
func (m *Manager) Name() string { return m.name }

// session returns the viewer session, starting a fresh one when the cookie
// cannot be decoded.
func (m *Manager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		m.logSessionError(r, err)
		sess, _ = m.store.New(r, m.name)
	}
	return sess
}

func (m *Manager) logSessionError(r *http.Request, err error) {
	errType, category := classifySessionError(err)
	switch errType {
	case sessionErrExpired:
		m.logger.Debug("viewer session expired, starting fresh session",
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	case sessionErrTampered:
		m.logger.Warn("viewer session MAC validation failed (possible tampering)",
			zap.String("category", category),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()))
	case sessionErrCorrupted:
		m.logger.Info("viewer session decode failed, starting fresh session",
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	default:
		m.logger.Warn("viewer session error, starting fresh session",
			zap.Error(err),
			zap.String("category", category),
			zap.String("path", r.URL.Path))
	}
}

// Enable turns draft mode on for this viewer.
func (m *Manager) Enable(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	sess.Values[draftKey] = true
	sess.Values[draftSinceKey] = time.Now().Unix()
	return sess.Save(r, w)
}

// Disable turns draft mode off for this viewer.
func (m *Manager) Disable(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	delete(sess.Values, draftKey)
	delete(sess.Values, draftSinceKey)
	return sess.Save(r, w)
}

// IsDraft reports whether r is viewed in draft mode. A flag already placed
// in the context wins over the cookie.
func (m *Manager) IsDraft(r *http.Request) bool {
	if v, ok := fromContext(r.Context()); ok {
		return v
	}
	on, _ := m.session(r).Values[draftKey].(bool)
	return on
}

// Middleware copies the draft flag from the cookie into the request context
// so handlers and the content client can read it with Enabled.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		on := m.IsDraft(r)
		if on {
			w.Header().Add("Vary", "Cookie")
		}
		next.ServeHTTP(w, r.WithContext(WithEnabled(r.Context(), on)))
	})
}

// LastBoost returns when this viewer last triggered an engagement boost,
// or the zero time.
func (m *Manager) LastBoost(r *http.Request) time.Time {
	if v, ok := m.session(r).Values[boostAtKey].(int64); ok && v > 0 {
		return time.Unix(v, 0)
	}
	return time.Time{}
}

// MarkBoost records t as the viewer's last boost.
func (m *Manager) MarkBoost(w http.ResponseWriter, r *http.Request, t time.Time) error {
	sess := m.session(r)
	sess.Values[boostAtKey] = t.Unix()
	return sess.Save(r, w)
}

type ctxKey struct{}

// WithEnabled returns ctx carrying the draft flag.
func WithEnabled(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, ctxKey{}, on)
}

// Enabled reports the draft flag carried by ctx (false when absent).
func Enabled(ctx context.Context) bool {
	on, _ := fromContext(ctx)
	return on
}

func fromContext(ctx context.Context) (bool, bool) {
	v, ok := ctx.Value(ctxKey{}).(bool)
	return v, ok
}

// isDefaultKey checks if the session key appears to be a default/placeholder value.
func isDefaultKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range []string{"dev-only", "change-me", "placeholder", "default", "example", "insecure", "test-key", "secret123", "password"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// classifySessionError categorizes a session/cookie error for appropriate logging.
func classifySessionError(err error) (sessionErrorType, string) {
	if err == nil {
		return sessionErrUnknown, "none"
	}

	errStr := strings.ToLower(err.Error())

	if scErr, ok := err.(securecookie.Error); ok {
		if !scErr.IsDecode() {
			return sessionErrBackend, "backend"
		}

		switch {
		case strings.Contains(errStr, "expired timestamp"):
			return sessionErrExpired, "expired"
		case strings.Contains(errStr, "mac") || strings.Contains(errStr, "hash"):
			return sessionErrTampered, "mac_invalid"
		case strings.Contains(errStr, "decrypt"):
			return sessionErrCorrupted, "decrypt_failed"
		default:
			return sessionErrCorrupted, "decode_failed"
		}
	}

	return sessionErrBackend, "unknown"
}
