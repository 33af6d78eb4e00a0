// internal/app/system/engagement/marker.go
package engagement

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	// MarkerCookie holds the signed list of tours this viewer was counted for.
	MarkerCookie = "stratatour-viewed"
	// maxMarked caps the list; the oldest slugs fall off first. Long slugs
	// can reach the cookie size limit sooner, see Add.
	maxMarked = 50
)

// Marker remembers, per viewer, which tours already counted a view.
type Marker struct {
	sc     *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
}

// NewMarker signs the marker cookie with hashKey (the session key).
func NewMarker(hashKey string, maxAge time.Duration, secure bool) *Marker {
	sc := securecookie.New([]byte(hashKey), nil)
	sc.MaxAge(int(maxAge.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})
	return &Marker{sc: sc, maxAge: maxAge, secure: secure}
}

// Viewed returns the marked slugs. A missing or tampered cookie reads as empty.
func (m *Marker) Viewed(r *http.Request) []string {
	c, err := r.Cookie(MarkerCookie)
	if err != nil {
		return nil
	}
	var slugs []string
	if err := m.sc.Decode(MarkerCookie, c.Value, &slugs); err != nil {
		return nil
	}
	return slugs
}

// Has reports whether slug is already marked for this viewer.
func (m *Marker) Has(r *http.Request, slug string) bool {
	for _, s := range m.Viewed(r) {
		if s == slug {
			return true
		}
	}
	return false
}

// Add marks slug for this viewer. When the signed list would not fit in a
// cookie, the oldest slugs are dropped until it does.
func (m *Marker) Add(w http.ResponseWriter, r *http.Request, slug string) error {
	slugs := append(m.Viewed(r), slug)
	if len(slugs) > maxMarked {
		slugs = slugs[len(slugs)-maxMarked:]
	}
	encoded, err := m.sc.Encode(MarkerCookie, slugs)
	for err != nil && len(slugs) > 1 {
		slugs = slugs[1:]
		encoded, err = m.sc.Encode(MarkerCookie, slugs)
	}
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     MarkerCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(m.maxAge.Seconds()),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
