package tours

import (
	"net/http"
	"net/http/httptest"
	"net/url"
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

func newTestRouter(t *testing.T, cms *fakecms.Content, fresh bool) (http.Handler, *rendercache.MemoryStore) {
	t.Helper()
	testutil.MustBootTemplates(t)
	logger := zap.NewNop()
	cat := catalog.New(cms, logger)
	h := NewHandler(cat, errorsfeature.NewHandler(cat.Settings), errorsfeature.NewErrorLogger(logger), fresh, logger)

	store := rendercache.NewMemoryStore()
	r := chi.NewRouter()
	h.MountRoutes(r, rendercache.New(store, logger, nil))
	return r, store
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func sampleCMS() *fakecms.Content {
	cms := fakecms.New(models.SampleTours(), models.DefaultCategories())
	cms.SetSettings(models.SiteSettings{SiteName: "Du Lịch Việt", ZaloNumber: "0901234567", PhoneNumber: "1900 1234"})
	return cms
}

func TestDetail_Renders(t *testing.T) {
	router, store := newTestRouter(t, sampleCMS(), false)
	tour := models.SampleTours()[0]

	rec := get(router, "/tour/"+tour.Slug)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{tour.Title, "https://zalo.me/0901234567", `href="tel:19001234"`, `data-slug="` + tour.Slug + `"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if store.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", store.Len())
	}
}

func TestDetail_UnknownSlugIs404AndUncached(t *testing.T) {
	router, store := newTestRouter(t, sampleCMS(), false)

	rec := get(router, "/tour/khong-ton-tai")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Không tìm thấy trang") {
		t.Error("404 page not rendered")
	}
	if store.Len() != 0 {
		t.Error("404 was cached")
	}
}

func TestDetail_OutageWithoutFallbackIs503(t *testing.T) {
	cms := sampleCMS()
	cms.SetDown(true)
	router, _ := newTestRouter(t, cms, false)

	if rec := get(router, "/tour/khong-ton-tai"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	// a fallback tour is still served
	if rec := get(router, "/tour/"+models.SampleTours()[0].Slug); rec.Code != http.StatusOK {
		t.Errorf("fallback status = %d, want 200", rec.Code)
	}
}

func TestDetail_FreshPolicyBypassesCache(t *testing.T) {
	router, store := newTestRouter(t, sampleCMS(), true)

	rec := get(router, "/tour/"+models.SampleTours()[0].Slug)
	if got := rec.Header().Get("X-Cache"); got != "BYPASS" {
		t.Errorf("X-Cache = %q, want BYPASS", got)
	}
	if store.Len() != 0 {
		t.Error("request-scoped page was cached")
	}
}

func TestList(t *testing.T) {
	router, _ := newTestRouter(t, sampleCMS(), false)

	rec := get(router, "/tours?category=mien-bac&sort=price-asc")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<option value="mien-bac" selected>`) {
		t.Error("category filter not preselected")
	}
	if !strings.Contains(body, `<option value="price-asc" selected>`) {
		t.Error("sort not preselected")
	}
	for _, tour := range models.SampleTours() {
		if !strings.Contains(body, "/tour/"+tour.Slug) {
			t.Errorf("listing missing %s", tour.Slug)
		}
	}
}

func TestFilterFromQuery(t *testing.T) {
	tests := []struct {
		query string
		want  catalog.TourFilter
	}{
		{"", catalog.TourFilter{Sort: catalog.SortNewest, Page: 1}},
		{"sort=bogus&page=-3", catalog.TourFilter{Sort: catalog.SortNewest, Page: 1}},
		{"category=Mien%20Bac", catalog.TourFilter{Sort: catalog.SortNewest, Page: 1}},
		{"category=mien-nam&destination=%20C%E1%BA%A7n%20%20Th%C6%A1%20&sort=popular&page=2",
			catalog.TourFilter{Category: "mien-nam", Destination: "Cần Thơ", Sort: catalog.SortPopular, Page: 2}},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := filterFromQuery(q); got != tt.want {
			t.Errorf("filterFromQuery(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestPageURL(t *testing.T) {
	f := catalog.TourFilter{Category: "mien-bac", Sort: catalog.SortNewest}
	if got := pageURL(f, 1); got != "/tours?category=mien-bac" {
		t.Errorf("pageURL(1) = %q", got)
	}
	if got := pageURL(catalog.TourFilter{Sort: catalog.SortPriceDesc}, 3); got != "/tours?page=3&sort=price-desc" {
		t.Errorf("pageURL(3) = %q", got)
	}
}
