package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/stratatour/internal/app/catalog"
	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/stratatour/internal/testutil"
	"github.com/dalemusser/stratatour/internal/testutil/fakecms"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, cms *fakecms.Content) (http.Handler, *rendercache.MemoryStore) {
	t.Helper()
	testutil.MustBootTemplates(t)
	logger := zap.NewNop()
	cat := catalog.New(cms, logger)
	store := rendercache.NewMemoryStore()
	h := NewHandler(cat, errorsfeature.NewHandler(cat.Settings), errorsfeature.NewErrorLogger(logger), rendercache.New(store, logger, nil), logger)

	r := chi.NewRouter()
	r.Mount("/about", h.AboutRouter())
	r.Mount("/contact", h.ContactRouter())
	r.Mount("/terms", h.TermsRouter())
	r.Mount("/privacy", h.PrivacyRouter())
	return r, store
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestShowPage_FromCMS(t *testing.T) {
	cms := fakecms.New(nil, nil)
	cms.SetPage(models.Page{Slug: "about", Title: "Về chúng tôi", Content: "<p>Hơn 10 năm kinh nghiệm.</p>"})
	router, store := newTestRouter(t, cms)

	rec := get(router, "/about")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Hơn 10 năm kinh nghiệm.") {
		t.Error("page content missing")
	}

	// on-demand: kept until invalidated
	if got := get(router, "/about").Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	if _, err := rendercache.InvalidatePath(context.Background(), store, "/about"); err != nil {
		t.Fatal(err)
	}
	if got := get(router, "/about").Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache after invalidation = %q, want MISS", got)
	}
}

func TestShowPage_DefaultsWhenMissing(t *testing.T) {
	router, _ := newTestRouter(t, fakecms.New(nil, nil))

	for _, slug := range models.AllPageSlugs() {
		rec := get(router, "/"+slug)
		if rec.Code != http.StatusOK {
			t.Errorf("/%s status = %d, want 200", slug, rec.Code)
			continue
		}
		if !strings.Contains(rec.Body.String(), models.DefaultPageTitle(slug)) {
			t.Errorf("/%s missing default title", slug)
		}
	}
}

func TestShowPage_ContactShowsChannels(t *testing.T) {
	cms := fakecms.New(nil, nil)
	cms.SetSettings(models.SiteSettings{SiteName: "Du Lịch Việt", Email: "booking@example.vn"})
	router, _ := newTestRouter(t, cms)

	rec := get(router, "/contact")
	if !strings.Contains(rec.Body.String(), "mailto:booking@example.vn") {
		t.Error("contact page missing email channel")
	}
}

func TestShowPage_OutageNotCached(t *testing.T) {
	cms := fakecms.New(nil, nil)
	cms.SetDown(true)
	router, store := newTestRouter(t, cms)

	if rec := get(router, "/terms"); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if store.Len() != 0 {
		t.Error("fallback page was cached")
	}
}
