package resources

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAssetsHandler(t *testing.T) {
	h := AssetsHandler("/assets")

	tests := []struct {
		path        string
		status      int
		contentType string
	}{
		{"/assets/css/site.css", http.StatusOK, "text/css"},
		{"/assets/js/engagement.js", http.StatusOK, "javascript"},
		{"/assets/css/missing.css", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.contentType != "" && !strings.Contains(rec.Header().Get("Content-Type"), tt.contentType) {
				t.Errorf("Content-Type = %q, want it to contain %q", rec.Header().Get("Content-Type"), tt.contentType)
			}
			// Error responses are left to http.FileServer, which drops
			// Cache-Control on them.
			if tt.status != http.StatusOK {
				return
			}
			if got := rec.Header().Get("Cache-Control"); got != assetsMaxAge {
				t.Errorf("Cache-Control = %q", got)
			}
		})
	}
}
