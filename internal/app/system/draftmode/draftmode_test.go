package draftmode

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

const testKey = "xK8nP2mQ9rT5vW7yB3cF6hJ0lN4sU1wZ"

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(testKey, "", "", time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

// carryCookies copies Set-Cookie headers from rec onto a new request.
func carryCookies(rec *httptest.ResponseRecorder, target string) *http.Request {
	req := httptest.NewRequest("GET", target, nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNewManager(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		secure  bool
		wantErr bool
	}{
		{"strong key dev", testKey, false, false},
		{"strong key prod", testKey, true, false},
		{"empty key", "", false, true},
		{"weak key dev", "short", false, false},
		{"weak key prod", "short", true, true},
		{"default key prod", "dev-only-session-key-not-for-production", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.key, "", "", time.Hour, tt.secure, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewManager() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManager_DefaultName(t *testing.T) {
	if got := newManager(t).Name(); got != DefaultName {
		t.Errorf("Name() = %q, want %q", got, DefaultName)
	}
}

func TestEnableDisable_RoundTrip(t *testing.T) {
	m := newManager(t)

	if m.IsDraft(httptest.NewRequest("GET", "/", nil)) {
		t.Fatal("fresh viewer should not be in draft mode")
	}

	rec := httptest.NewRecorder()
	if err := m.Enable(rec, httptest.NewRequest("GET", "/api/preview", nil)); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}
	req := carryCookies(rec, "/tour/sapa")
	if !m.IsDraft(req) {
		t.Fatal("IsDraft() = false after Enable")
	}

	rec = httptest.NewRecorder()
	if err := m.Disable(rec, req); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if m.IsDraft(carryCookies(rec, "/")) {
		t.Error("IsDraft() = true after Disable")
	}
}

func TestMiddleware_PutsFlagInContext(t *testing.T) {
	m := newManager(t)
	rec := httptest.NewRecorder()
	_ = m.Enable(rec, httptest.NewRequest("GET", "/", nil))

	var seen bool
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Enabled(r.Context())
	}))
	out := httptest.NewRecorder()
	h.ServeHTTP(out, carryCookies(rec, "/"))
	if !seen {
		t.Error("Enabled(ctx) = false inside middleware")
	}
	if out.Header().Get("Vary") != "Cookie" {
		t.Errorf("Vary = %q, want Cookie", out.Header().Get("Vary"))
	}
}

func TestIsDraft_TamperedCookieIsIgnored(t *testing.T) {
	m := newManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultName, Value: "not-a-valid-signed-value"})
	if m.IsDraft(req) {
		t.Error("tampered cookie should not enable draft mode")
	}
}

func TestContextFlagWinsOverCookie(t *testing.T) {
	m := newManager(t)
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(WithEnabled(req.Context(), true))
	if !m.IsDraft(req) {
		t.Error("context flag should be honored")
	}
}

func TestBoostTimestamp(t *testing.T) {
	m := newManager(t)
	req := httptest.NewRequest("POST", "/api/engagement/boost", nil)
	if !m.LastBoost(req).IsZero() {
		t.Fatal("LastBoost() should be zero for a new viewer")
	}

	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	rec := httptest.NewRecorder()
	if err := m.MarkBoost(rec, req, at); err != nil {
		t.Fatalf("MarkBoost() error = %v", err)
	}
	if got := m.LastBoost(carryCookies(rec, "/")); !got.Equal(at) {
		t.Errorf("LastBoost() = %v, want %v", got, at)
	}
}

func TestIsDefaultKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"dev-only-key", true},
		{"change-me-please", true},
		{"password123", true},
		{testKey, false},
	}
	for _, tt := range tests {
		if got := isDefaultKey(tt.key); got != tt.want {
			t.Errorf("isDefaultKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

// mockSecureCookieError implements securecookie.Error for testing
type mockSecureCookieError struct {
	msg      string
	isDecode bool
}

func (e mockSecureCookieError) Error() string    { return e.msg }
func (e mockSecureCookieError) IsDecode() bool   { return e.isDecode }
func (e mockSecureCookieError) IsUsage() bool    { return false }
func (e mockSecureCookieError) IsInternal() bool { return false }
func (e mockSecureCookieError) Cause() error     { return nil }

func TestClassifySessionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType sessionErrorType
	}{
		{"nil", nil, sessionErrUnknown},
		{"expired", mockSecureCookieError{"expired timestamp", true}, sessionErrExpired},
		{"mac invalid", mockSecureCookieError{"the value is not valid: mac", true}, sessionErrTampered},
		{"decrypt", mockSecureCookieError{"decrypt error", true}, sessionErrCorrupted},
		{"backend", mockSecureCookieError{"backend", false}, sessionErrBackend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := classifySessionError(tt.err); got != tt.wantType {
				t.Errorf("classifySessionError() = %v, want %v", got, tt.wantType)
			}
		})
	}
}
