package categories

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
	h := NewHandler(cat, errorsfeature.NewHandler(cat.Settings), errorsfeature.NewErrorLogger(logger), logger)

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

func TestIndex_StaticUntilInvalidated(t *testing.T) {
	cms := fakecms.New(nil, models.DefaultCategories())
	router, store := newTestRouter(t, cms)

	rec := get(router, "/categories")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	for _, c := range models.DefaultCategories() {
		if !strings.Contains(rec.Body.String(), "/category/"+c.Slug) {
			t.Errorf("index missing %s", c.Slug)
		}
	}
	if got := get(router, "/categories").Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", got)
	}

	if n, err := rendercache.InvalidatePath(context.Background(), store, "/categories"); err != nil || n != 1 {
		t.Fatalf("InvalidatePath = %d, %v", n, err)
	}
	if got := get(router, "/categories").Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache after invalidation = %q, want MISS", got)
	}
}

func TestShow(t *testing.T) {
	tours := models.SampleTours()
	cms := fakecms.New(tours, models.DefaultCategories())
	router, _ := newTestRouter(t, cms)

	rec := get(router, "/category/mien-bac")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Miền Bắc</h1>") {
		t.Error("category heading missing")
	}
	if !strings.Contains(body, "/tour/"+tours[0].Slug) {
		t.Error("category tours missing")
	}

	if rec := get(router, "/category/khong-co"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown category status = %d, want 404", rec.Code)
	}
}

func TestShow_OutageFallback(t *testing.T) {
	cms := fakecms.New(nil, nil)
	cms.SetDown(true)
	router, store := newTestRouter(t, cms)

	if rec := get(router, "/category/mien-nam"); rec.Code != http.StatusOK {
		t.Errorf("fallback category status = %d, want 200", rec.Code)
	}
	if rec := get(router, "/category/khong-co"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unknown category during outage = %d, want 503", rec.Code)
	}
	if store.Len() != 0 {
		t.Errorf("degraded pages cached: %d", store.Len())
	}
}
