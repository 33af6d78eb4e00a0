package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/content"
	"github.com/dalemusser/stratatour/internal/app/system/draftmode"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"go.uber.org/zap"
)

// fakeSource answers from fixed data or fails every call with err.
type fakeSource struct {
	mu       sync.Mutex
	err      error
	tours    []models.Tour
	cats     []models.Category
	settings *models.SiteSettings
	pages    map[string]models.Page
	queries  []cmsquery.Query
	drafts   []bool
}

func (f *fakeSource) record(q cmsquery.Query) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
}

func (f *fakeSource) Tours(_ context.Context, q cmsquery.Query) ([]models.Tour, jsonutil.Pagination, error) {
	f.record(q)
	if f.err != nil {
		return nil, jsonutil.Pagination{}, f.err
	}
	return f.tours, jsonutil.Pagination{Page: 1, PageSize: 25, PageCount: 1, Total: int64(len(f.tours))}, nil
}

func (f *fakeSource) Tour(_ context.Context, slug string, draft bool) (models.Tour, error) {
	f.mu.Lock()
	f.drafts = append(f.drafts, draft)
	f.mu.Unlock()
	if f.err != nil {
		return models.Tour{}, f.err
	}
	for _, t := range f.tours {
		if t.Slug == slug {
			return t, nil
		}
	}
	return models.Tour{}, content.ErrNotFound
}

func (f *fakeSource) Categories(_ context.Context, q cmsquery.Query) ([]models.Category, jsonutil.Pagination, error) {
	f.record(q)
	if f.err != nil {
		return nil, jsonutil.Pagination{}, f.err
	}
	return f.cats, jsonutil.Pagination{Total: int64(len(f.cats))}, nil
}

func (f *fakeSource) Category(_ context.Context, slug string) (models.Category, error) {
	if f.err != nil {
		return models.Category{}, f.err
	}
	for _, c := range f.cats {
		if c.Slug == slug {
			return c, nil
		}
	}
	return models.Category{}, content.ErrNotFound
}

func (f *fakeSource) SiteSettings(context.Context) (models.SiteSettings, error) {
	if f.err != nil {
		return models.SiteSettings{}, f.err
	}
	if f.settings == nil {
		return models.SiteSettings{}, content.ErrNotFound
	}
	return *f.settings, nil
}

func (f *fakeSource) Page(_ context.Context, slug string) (models.Page, error) {
	if f.err != nil {
		return models.Page{}, f.err
	}
	if p, ok := f.pages[slug]; ok {
		return p, nil
	}
	return models.Page{}, content.ErrNotFound
}

var errDown = &content.TimeoutError{URL: "http://cms/api/tours", Timeout: 5 * time.Second}

func liveSource() *fakeSource {
	return &fakeSource{
		tours: []models.Tour{
			{DocumentID: "a", Slug: "ha-long", Title: "Hạ Long", Category: &models.CategoryRef{Slug: "mien-bac"}},
			{DocumentID: "b", Slug: "sapa", Title: "Sapa", Category: &models.CategoryRef{Slug: "mien-bac"}},
		},
		cats: []models.Category{{DocumentID: "c1", Slug: "mien-bac", Ten: "Miền Bắc"}},
		settings: &models.SiteSettings{SiteName: "Du Lịch Việt", ZaloNumber: "0901 234 567"},
	}
}

func TestHome_Live(t *testing.T) {
	src := liveSource()
	svc := New(src, zap.NewNop())

	vm, err := svc.Home(context.Background(), svc.Settings(context.Background()))
	if err != nil {
		t.Fatalf("Home() error = %v", err)
	}
	if vm.Degraded {
		t.Error("Home() Degraded = true with a live CMS")
	}
	if len(vm.Featured) != 2 || len(vm.Latest) != 2 || len(vm.Categories) != 1 {
		t.Errorf("Home() = %d featured, %d latest, %d categories", len(vm.Featured), len(vm.Latest), len(vm.Categories))
	}
}

func TestHome_UnavailableServesFallback(t *testing.T) {
	svc := New(&fakeSource{err: errDown}, zap.NewNop())
	ctx := context.Background()

	settings := svc.Settings(ctx)
	if settings.SiteName != models.DefaultSiteName {
		t.Errorf("Settings().SiteName = %q, want default", settings.SiteName)
	}
	vm, err := svc.Home(ctx, settings)
	if err != nil {
		t.Fatalf("Home() error = %v", err)
	}
	if !vm.Degraded {
		t.Error("Home() Degraded = false during outage")
	}
	if len(vm.Featured) == 0 || len(vm.Categories) == 0 {
		t.Errorf("fallback home is empty: %d featured, %d categories", len(vm.Featured), len(vm.Categories))
	}
	if vm.Latest == nil {
		t.Error("Latest is nil, want empty slice")
	}
	for _, tour := range vm.Featured {
		if tour.BookingCount != 0 || tour.ReviewCount != 0 {
			t.Errorf("fallback tour %q shows counters", tour.Slug)
		}
	}
}

func TestHome_UpstreamClientErrorPropagates(t *testing.T) {
	bad := &content.UpstreamError{URL: "http://cms/api/tours", Status: 400, Body: "bad filter"}
	svc := New(&fakeSource{err: bad}, zap.NewNop())

	_, err := svc.Home(context.Background(), models.DefaultSiteSettings())
	var ue *content.UpstreamError
	if !errors.As(err, &ue) {
		t.Errorf("Home() error = %v, want UpstreamError", err)
	}
}

func TestTours_FilterAndSort(t *testing.T) {
	src := liveSource()
	svc := New(src, zap.NewNop())

	vm, err := svc.Tours(context.Background(), TourFilter{Category: "mien-bac", Sort: SortPriceAsc, Page: 0})
	if err != nil {
		t.Fatalf("Tours() error = %v", err)
	}
	if vm.Filter.Page != 1 {
		t.Errorf("Filter.Page = %d, want 1", vm.Filter.Page)
	}
	q := src.queries[0]
	if len(q.Filters) != 1 || q.Filters[0].Field != "category.slug" || q.Filters[0].Values[0] != "mien-bac" {
		t.Errorf("filters = %+v", q.Filters)
	}
	if len(q.Sort) != 1 || q.Sort[0].Field != "price" || q.Sort[0].Desc {
		t.Errorf("sort = %+v, want price asc", q.Sort)
	}
	if q.PageSize != ToursPageSize {
		t.Errorf("page size = %d", q.PageSize)
	}
}

func TestTours_UnavailableFiltersFallback(t *testing.T) {
	svc := New(&fakeSource{err: errDown}, zap.NewNop())

	vm, err := svc.Tours(context.Background(), TourFilter{Category: "mien-trung"})
	if err != nil {
		t.Fatalf("Tours() error = %v", err)
	}
	if !vm.Degraded || len(vm.Tours) == 0 {
		t.Fatalf("Tours() = %+v, want degraded non-empty", vm)
	}
	for _, tour := range vm.Tours {
		if tour.Category.Slug != "mien-trung" {
			t.Errorf("fallback tour %q not in requested category", tour.Slug)
		}
	}
}

func TestTour_NotFound(t *testing.T) {
	svc := New(liveSource(), zap.NewNop())
	if _, err := svc.Tour(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Tour(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTour_DraftFromContext(t *testing.T) {
	src := liveSource()
	svc := New(src, zap.NewNop())

	ctx := draftmode.WithEnabled(context.Background(), true)
	vm, err := svc.Tour(ctx, "ha-long")
	if err != nil {
		t.Fatalf("Tour() error = %v", err)
	}
	if len(src.drafts) != 1 || !src.drafts[0] {
		t.Errorf("draft flags = %v, want [true]", src.drafts)
	}
	if !src.queries[0].Draft {
		t.Error("related tours query not in draft mode")
	}
	if len(vm.Related) != 2 {
		t.Errorf("Related = %d tours", len(vm.Related))
	}
}

func TestTour_UnavailableFallsBackBySlug(t *testing.T) {
	svc := New(&fakeSource{err: errDown}, zap.NewNop())

	vm, err := svc.Tour(context.Background(), "ha-long-2n1d")
	if err != nil || !vm.Degraded || vm.Tour.Slug != "ha-long-2n1d" {
		t.Errorf("Tour(fallback slug) = %+v, %v", vm, err)
	}
	if _, err := svc.Tour(context.Background(), "unknown"); !content.IsUnavailable(err) {
		t.Errorf("Tour(unknown) error = %v, want unavailable", err)
	}
}

func TestCategories_UnavailableServesFallback(t *testing.T) {
	svc := New(&fakeSource{err: errDown}, zap.NewNop())

	vm, err := svc.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if !vm.Degraded || len(vm.Categories) != len(models.DefaultCategories()) {
		t.Errorf("Categories() = %+v", vm)
	}
}

func TestCategory(t *testing.T) {
	svc := New(liveSource(), zap.NewNop())

	vm, err := svc.Category(context.Background(), "mien-bac")
	if err != nil {
		t.Fatalf("Category() error = %v", err)
	}
	if vm.Category.DisplayName() != "Miền Bắc" || len(vm.Tours) != 2 {
		t.Errorf("Category() = %+v", vm)
	}
	if _, err := svc.Category(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Category(missing) error = %v", err)
	}
}

func TestSearch(t *testing.T) {
	src := liveSource()
	svc := New(src, zap.NewNop())

	empty, err := svc.Search(context.Background(), "   ")
	if err != nil || len(empty.Tours) != 0 || len(src.queries) != 0 {
		t.Fatalf("blank search = %+v, %v, %d queries", empty, err, len(src.queries))
	}

	vm, err := svc.Search(context.Background(), " sapa ")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if vm.Query != "sapa" || vm.Total != 2 {
		t.Errorf("Search() = %+v", vm)
	}
	if or := src.queries[0].Or; len(or) != 3 || or[0][0].Op != cmsquery.OpContainsi {
		t.Errorf("search or-groups = %+v", or)
	}
}

func TestSearch_UnavailableIsEmpty(t *testing.T) {
	svc := New(&fakeSource{err: errDown}, zap.NewNop())
	vm, err := svc.Search(context.Background(), "sapa")
	if err != nil || !vm.Degraded || vm.Tours == nil || len(vm.Tours) != 0 {
		t.Errorf("Search() = %+v, %v", vm, err)
	}
}

func TestPage(t *testing.T) {
	src := liveSource()
	src.pages = map[string]models.Page{"about": {Slug: "about", Content: "<p>hi</p>"}}
	svc := New(src, zap.NewNop())
	ctx := context.Background()

	vm, err := svc.Page(ctx, "about")
	if err != nil || vm.Page.Title != models.DefaultPageTitle("about") {
		t.Errorf("Page(about) = %+v, %v", vm, err)
	}
	vm, err = svc.Page(ctx, "privacy")
	if err != nil || vm.Degraded || vm.Page.Content == "" {
		t.Errorf("Page(privacy) = %+v, %v, want default page", vm, err)
	}
	if _, err := svc.Page(ctx, "careers"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Page(careers) error = %v", err)
	}

	down := New(&fakeSource{err: errDown}, zap.NewNop())
	vm, err = down.Page(ctx, "terms")
	if err != nil || !vm.Degraded {
		t.Errorf("Page(terms) during outage = %+v, %v", vm, err)
	}
}

func TestSettings(t *testing.T) {
	svc := New(liveSource(), zap.NewNop())
	s := svc.Settings(context.Background())
	if s.SiteName != "Du Lịch Việt" || s.ZaloURL() != "https://zalo.me/0901234567" {
		t.Errorf("Settings() = %+v", s)
	}

	none := New(&fakeSource{}, zap.NewNop())
	if got := none.Settings(context.Background()).SiteName; got != models.DefaultSiteName {
		t.Errorf("Settings() without document = %q", got)
	}
}
