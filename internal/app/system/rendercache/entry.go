// internal/app/system/rendercache/entry.go
package rendercache

import (
	"net/http"
	"net/url"
	"time"
)

// Entry is one rendered response. Entries are written whole and never
// patched in place.
type Entry struct {
	Body        []byte    `json:"body"`
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	RenderedAt  time.Time `json:"rendered_at"`
	Policy      Policy    `json:"policy"`
	Tags        []string  `json:"tags"`
}

// PathTag is the tag every entry for path carries.
func PathTag(path string) string {
	return "path:" + path
}

// Key returns the cache key for r: the route path plus the values of the
// vary parameters, in the order given. Other query parameters (tracking
// tags, cache busters) do not create entries of their own.
func Key(r *http.Request, vary ...string) string {
	if len(vary) == 0 || r.URL.RawQuery == "" {
		return r.URL.Path
	}
	q := r.URL.Query()
	kept := url.Values{}
	for _, name := range vary {
		if v := q.Get(name); v != "" {
			kept.Set(name, v)
		}
	}
	if len(kept) == 0 {
		return r.URL.Path
	}
	// Encode sorts by name
	return r.URL.Path + "?" + kept.Encode()
}
