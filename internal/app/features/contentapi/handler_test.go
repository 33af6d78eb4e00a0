package contentapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/stratatour/internal/testutil"
	"go.uber.org/zap"
)

const testKey = "test-api-key"

type recorder struct {
	mu     sync.Mutex
	events []lifecycle.Event
}

func (rc *recorder) Notify(_ context.Context, ev lifecycle.Event) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.events = append(rc.events, ev)
	return nil
}

func (rc *recorder) slugs(model string) []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	var out []string
	for _, ev := range rc.events {
		if ev.Model == model {
			out = append(out, ev.Slug())
		}
	}
	return out
}

func (rc *recorder) reset() {
	rc.mu.Lock()
	rc.events = nil
	rc.mu.Unlock()
}

func setup(t *testing.T) (http.Handler, *recorder) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	rec := &recorder{}
	logger := zap.NewNop()
	h := NewHandler(db, rec, errorsfeature.NewErrorLogger(logger), logger)
	return Routes(h, testKey, logger), rec
}

func do(t *testing.T, h http.Handler, method, target, body string, authed bool) *testutil.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = testutil.NewJSONRequest(method, target, body)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testKey)
	}
	rec := testutil.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type tourEnvelope struct {
	Data models.Tour `json:"data"`
}

type listEnvelope struct {
	Data []models.Tour `json:"data"`
	Meta struct {
		Pagination struct {
			Page      int64 `json:"page"`
			PageSize  int64 `json:"pageSize"`
			PageCount int64 `json:"pageCount"`
			Total     int64 `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

func createTour(t *testing.T, h http.Handler, body string, publish bool) models.Tour {
	t.Helper()
	target := "/tours"
	if publish {
		target += "?status=published"
	}
	rec := do(t, h, http.MethodPost, target, body, true)
	rec.AssertStatus(t, http.StatusCreated)
	var env tourEnvelope
	rec.DecodeJSON(t, &env)
	return env.Data
}

func TestWrites_RequireAPIKey(t *testing.T) {
	h, _ := setup(t)
	rec := do(t, h, http.MethodPost, "/tours", `{"data":{"title":"x","price":1}}`, false)
	rec.AssertStatus(t, http.StatusUnauthorized)

	// reads stay public
	rec = do(t, h, http.MethodGet, "/tours", "", false)
	rec.AssertStatus(t, http.StatusOK)
}

func TestCreateTour_Validation(t *testing.T) {
	h, rc := setup(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"negative price", `{"data":{"title":"Sapa","price":-1}}`, http.StatusBadRequest},
		{"missing title", `{"data":{"price":100}}`, http.StatusBadRequest},
		{"bad slug", `{"data":{"title":"Sapa","price":1,"slug":"Sa Pa"}}`, http.StatusBadRequest},
		{"not enveloped", `{"title":"Sapa","price":1}`, http.StatusBadRequest},
		{"unknown category", `{"data":{"title":"Sapa","price":1,"category":{"slug":"nope"}}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			do(t, h, http.MethodPost, "/tours", tt.body, true).AssertStatus(t, tt.want)
		})
	}
	if len(rc.events) != 0 {
		t.Errorf("rejected writes fired %d events", len(rc.events))
	}
}

func TestCreateTour_DraftThenPublish(t *testing.T) {
	h, rc := setup(t)

	draft := createTour(t, h, `{"data":{"title":"Vịnh Hạ Long 2N1Đ","price":2890000,"content":"<p>ok</p><script>x</script>"}}`, false)
	if draft.Slug != "vinh-ha-long-2n1d" {
		t.Errorf("generated slug = %q", draft.Slug)
	}
	if draft.Content != "<p>ok</p>" {
		t.Errorf("content not sanitized: %q", draft.Content)
	}
	if len(rc.events) != 0 {
		t.Errorf("draft create fired %d events", len(rc.events))
	}

	// no published version yet
	do(t, h, http.MethodGet, "/tours/"+draft.DocumentID, "", false).AssertStatus(t, http.StatusNotFound)
	do(t, h, http.MethodGet, "/tours/"+draft.DocumentID+"?status=draft", "", false).AssertStatus(t, http.StatusOK)

	rec := do(t, h, http.MethodPost, "/tours/"+draft.DocumentID+"/publish", "", true)
	rec.AssertStatus(t, http.StatusOK)
	if got := rc.slugs(lifecycle.ModelTour); len(got) != 1 || got[0] != draft.Slug {
		t.Errorf("publish events = %v", got)
	}

	var pub tourEnvelope
	do(t, h, http.MethodGet, "/tours/"+draft.DocumentID, "", false).DecodeJSON(t, &pub)
	if pub.Data.PublishedAt == nil {
		t.Error("published version has no publishedAt")
	}
}

func TestUpdateTour_CountersReachPublishedVersion(t *testing.T) {
	h, rc := setup(t)
	tour := createTour(t, h, `{"data":{"title":"Sapa","price":100}}`, true)
	rc.reset()

	rec := do(t, h, http.MethodPut, "/tours/"+tour.DocumentID+"?status=published", `{"data":{"reviewCount":5,"bookingCount":9}}`, true)
	rec.AssertStatus(t, http.StatusOK)

	var pub tourEnvelope
	do(t, h, http.MethodGet, "/tours/"+tour.DocumentID, "", false).DecodeJSON(t, &pub)
	if pub.Data.ReviewCount != 5 || pub.Data.BookingCount != 9 {
		t.Errorf("counts = %d/%d, want 5/9", pub.Data.ReviewCount, pub.Data.BookingCount)
	}
	if pub.Data.Title != "Sapa" {
		t.Errorf("title changed to %q", pub.Data.Title)
	}
	if got := rc.slugs(lifecycle.ModelTour); len(got) != 1 {
		t.Errorf("update events = %v", got)
	}

	do(t, h, http.MethodPut, "/tours/"+tour.DocumentID, `{"data":{"bookingCount":-1}}`, true).AssertStatus(t, http.StatusBadRequest)
}

func TestUpdateTour_SlugRenameNotifiesBoth(t *testing.T) {
	h, rc := setup(t)
	tour := createTour(t, h, `{"data":{"title":"Tour Đông Hưng","price":100}}`, true)
	rc.reset()

	do(t, h, http.MethodPut, "/tours/"+tour.DocumentID+"?status=published", `{"data":{"slug":"dong-hung-3n2d"}}`, true).
		AssertStatus(t, http.StatusOK)

	slugs := rc.slugs(lifecycle.ModelTour)
	sort.Strings(slugs)
	if got := strings.Join(slugs, ","); got != "dong-hung-3n2d,tour-dong-hung" {
		t.Errorf("events = %s", got)
	}
}

func TestListTours_FiltersAndPagination(t *testing.T) {
	h, _ := setup(t)
	do(t, h, http.MethodPost, "/categories", `{"data":{"name":"North","ten":"Miền Bắc","slug":"mien-bac"}}`, true).
		AssertStatus(t, http.StatusCreated)
	createTour(t, h, `{"data":{"title":"Sapa","price":300,"category":{"slug":"mien-bac"}}}`, true)
	createTour(t, h, `{"data":{"title":"Hạ Long","price":200,"category":{"slug":"mien-bac"}}}`, true)
	createTour(t, h, `{"data":{"title":"Cần Thơ","price":100}}`, true)
	createTour(t, h, `{"data":{"title":"Draft only","price":1}}`, false)

	var all listEnvelope
	do(t, h, http.MethodGet, "/tours?pagination[pageSize]=2&sort=price:asc", "", false).DecodeJSON(t, &all)
	if all.Meta.Pagination.Total != 3 || all.Meta.Pagination.PageCount != 2 || len(all.Data) != 2 {
		t.Errorf("pagination = %+v, %d items", all.Meta.Pagination, len(all.Data))
	}
	if len(all.Data) > 0 && all.Data[0].Slug != "can-tho" {
		t.Errorf("first by price = %q", all.Data[0].Slug)
	}

	var north listEnvelope
	do(t, h, http.MethodGet, "/tours?filters[category][slug][$eq]=mien-bac", "", false).DecodeJSON(t, &north)
	if north.Meta.Pagination.Total != 2 {
		t.Errorf("category filter total = %d", north.Meta.Pagination.Total)
	}
	for _, tour := range north.Data {
		if tour.Category == nil || tour.Category.Name != "Miền Bắc" {
			t.Errorf("tour %q category = %+v", tour.Slug, tour.Category)
		}
	}

	do(t, h, http.MethodGet, "/tours?filters[password][$eq]=x", "", false).AssertStatus(t, http.StatusBadRequest)
	do(t, h, http.MethodGet, "/tours?filters[title][$regex]=x", "", false).AssertStatus(t, http.StatusBadRequest)
}

func TestUpdateCategory_FansOutToTours(t *testing.T) {
	h, rc := setup(t)
	rec := do(t, h, http.MethodPost, "/categories", `{"data":{"name":"North","slug":"mien-bac"}}`, true)
	rec.AssertStatus(t, http.StatusCreated)
	var cat struct {
		Data models.Category `json:"data"`
	}
	rec.DecodeJSON(t, &cat)

	createTour(t, h, `{"data":{"title":"Sapa","price":1,"category":{"documentId":"`+cat.Data.DocumentID+`"}}}`, true)
	createTour(t, h, `{"data":{"title":"Hà Giang","price":1,"category":{"slug":"mien-bac"}}}`, true)
	rc.reset()

	do(t, h, http.MethodPut, "/categories/"+cat.Data.DocumentID, `{"data":{"ten":"Miền Bắc"}}`, true).
		AssertStatus(t, http.StatusOK)

	if got := rc.slugs(lifecycle.ModelCategory); len(got) != 1 || got[0] != "mien-bac" {
		t.Errorf("category events = %v", got)
	}
	if got := rc.slugs(lifecycle.ModelTour); len(got) != 2 {
		t.Errorf("tour events = %v, want 2", got)
	}

	var list listEnvelope
	do(t, h, http.MethodGet, "/tours", "", false).DecodeJSON(t, &list)
	for _, tour := range list.Data {
		if tour.Category == nil || tour.Category.Name != "Miền Bắc" {
			t.Errorf("tour %q not renamed: %+v", tour.Slug, tour.Category)
		}
	}

	// slug or document id both resolve
	do(t, h, http.MethodGet, "/categories/mien-bac", "", false).AssertStatus(t, http.StatusOK)
}

func TestPages(t *testing.T) {
	h, rc := setup(t)

	do(t, h, http.MethodPut, "/pages/careers", `{"data":{"title":"Jobs"}}`, true).AssertStatus(t, http.StatusBadRequest)

	rec := do(t, h, http.MethodPut, "/pages/about", `{"data":{"content":"<p>Về chúng tôi</p><script>x</script>"}}`, true)
	rec.AssertStatus(t, http.StatusOK)
	var p struct {
		Data models.Page `json:"data"`
	}
	rec.DecodeJSON(t, &p)
	if p.Data.Title != models.DefaultPageTitle("about") || strings.Contains(p.Data.Content, "script") {
		t.Errorf("saved page = %+v", p.Data)
	}
	if got := rc.slugs(lifecycle.ModelPage); len(got) != 1 || got[0] != "about" {
		t.Errorf("page events = %v", got)
	}

	do(t, h, http.MethodGet, "/pages?filters[slug][$eq]=about", "", false).AssertStatus(t, http.StatusOK)
	do(t, h, http.MethodDelete, "/pages/about", "", true).AssertStatus(t, http.StatusNoContent)
	do(t, h, http.MethodGet, "/pages/about", "", false).AssertStatus(t, http.StatusNotFound)
}

func TestSiteSettings(t *testing.T) {
	h, rc := setup(t)

	var def struct {
		Data models.SiteSettings `json:"data"`
	}
	do(t, h, http.MethodGet, "/site-setting", "", false).DecodeJSON(t, &def)
	if def.Data.SiteName != models.DefaultSiteName {
		t.Errorf("default settings = %+v", def.Data)
	}

	do(t, h, http.MethodPut, "/site-setting", `{"data":{"siteName":"Du Lịch Việt","zaloNumber":"0901234567"}}`, true).
		AssertStatus(t, http.StatusOK)

	var saved struct {
		Data models.SiteSettings `json:"data"`
	}
	do(t, h, http.MethodGet, "/site-setting", "", false).DecodeJSON(t, &saved)
	if saved.Data.SiteName != "Du Lịch Việt" || saved.Data.ZaloURL() != "https://zalo.me/0901234567" {
		t.Errorf("saved settings = %+v", saved.Data)
	}
	if len(rc.events) != 1 || rc.events[0].Tag != "content" {
		t.Errorf("settings events = %+v", rc.events)
	}
}

func TestDeleteTour(t *testing.T) {
	h, rc := setup(t)
	tour := createTour(t, h, `{"data":{"title":"Sapa","price":1}}`, true)
	rc.reset()

	do(t, h, http.MethodDelete, "/tours/"+tour.DocumentID, "", true).AssertStatus(t, http.StatusOK)
	do(t, h, http.MethodGet, "/tours/"+tour.DocumentID+"?status=draft", "", false).AssertStatus(t, http.StatusNotFound)
	if got := rc.slugs(lifecycle.ModelTour); len(got) != 1 || got[0] != "sapa" {
		t.Errorf("delete events = %v", got)
	}
	do(t, h, http.MethodDelete, "/tours/"+tour.DocumentID, "", true).AssertStatus(t, http.StatusNotFound)
}
