// internal/app/features/tours/tours.go
package tours

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dalemusser/stratatour/internal/app/catalog"
	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Cache lifetimes for the listing and the detail page.
const (
	ListTTL   = time.Hour
	DetailTTL = 5 * time.Minute
)

// Handler serves the tour listing and tour detail pages.
type Handler struct {
	catalog *catalog.Service
	errs    *errorsfeature.Handler
	errLog  *errorsfeature.ErrorLogger
	logger  *zap.Logger

	// freshDetail renders every detail page per request, for times when
	// prices change faster than DetailTTL.
	freshDetail bool
}

// NewHandler creates a tours Handler.
func NewHandler(cat *catalog.Service, errs *errorsfeature.Handler, errLog *errorsfeature.ErrorLogger, freshDetail bool, logger *zap.Logger) *Handler {
	return &Handler{
		catalog:     cat,
		errs:        errs,
		errLog:      errLog,
		logger:      logger,
		freshDetail: freshDetail,
	}
}

// DetailPolicy is the cache policy applied to /tour/{slug}.
func (h *Handler) DetailPolicy() rendercache.Policy {
	if h.freshDetail {
		return rendercache.RequestScoped()
	}
	return rendercache.TTL(DetailTTL)
}

// MountRoutes registers /tours and /tour/{slug} on r.
func (h *Handler) MountRoutes(r chi.Router, p *rendercache.Pipeline) {
	r.Method(http.MethodGet, "/tours", p.HandlerFunc(rendercache.TTL(ListTTL), h.List, listQuery...))
	r.Method(http.MethodGet, "/tour/{slug}", p.HandlerFunc(h.DetailPolicy(), h.Detail))
}

// SortOption is one entry of the sort dropdown.
type SortOption struct {
	Value    string
	Label    string
	Selected bool
}

// FilterOption is one entry of the category filter.
type FilterOption struct {
	Value    string
	Label    string
	Selected bool
}

// ListVM is the view model for /tours.
type ListVM struct {
	viewdata.BaseVM
	Tours       []viewdata.TourCard
	Total       int64
	Destination string
	Categories  []FilterOption
	Sorts       []SortOption
	Pager       viewdata.Pager
}

// listQuery are the parameters /tours reads; they are the only ones that
// select a separate cache entry.
var listQuery = []string{"category", "destination", "sort", "page"}

var sortLabels = []SortOption{
	{Value: catalog.SortNewest, Label: "Mới nhất"},
	{Value: catalog.SortPopular, Label: "Phổ biến"},
	{Value: catalog.SortPriceAsc, Label: "Giá tăng dần"},
	{Value: catalog.SortPriceDesc, Label: "Giá giảm dần"},
}

// filterFromQuery reads the listing filter from the URL.
func filterFromQuery(q url.Values) catalog.TourFilter {
	f := catalog.TourFilter{
		Category:    normalize.QueryParam(q.Get("category")),
		Destination: normalize.Name(q.Get("destination")),
		Sort:        q.Get("sort"),
	}
	if !normalize.IsSlug(f.Category) {
		f.Category = ""
	}
	valid := false
	for _, s := range sortLabels {
		valid = valid || s.Value == f.Sort
	}
	if !valid {
		f.Sort = catalog.SortNewest
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		f.Page = n
	} else {
		f.Page = 1
	}
	return f
}

// pageURL rebuilds the listing URL for page n, keeping the filters.
func pageURL(f catalog.TourFilter, n int) string {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Destination != "" {
		v.Set("destination", f.Destination)
	}
	if f.Sort != "" && f.Sort != catalog.SortNewest {
		v.Set("sort", f.Sort)
	}
	if n > 1 {
		v.Set("page", strconv.Itoa(n))
	}
	if len(v) == 0 {
		return "/tours"
	}
	return "/tours?" + v.Encode()
}

// List renders the tour listing.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings := h.catalog.Settings(ctx)
	f := filterFromQuery(r.URL.Query())

	data, err := h.catalog.Tours(ctx, f)
	if err != nil {
		h.errLog.Log(r, "failed to list tours", err)
		h.errs.InternalError(w, r)
		return
	}

	vm := ListVM{
		BaseVM:      viewdata.New(r, settings, "Danh sách tour"),
		Tours:       viewdata.Cards(data.Tours),
		Total:       data.Pagination.Total,
		Destination: data.Filter.Destination,
		Pager: viewdata.NewPager(int(data.Pagination.Page), int(data.Pagination.PageCount), func(n int) string {
			return pageURL(data.Filter, n)
		}),
	}
	vm.Description = "Tất cả tour du lịch đang mở bán."
	vm.Degraded = data.Degraded
	for _, c := range viewdata.Categories(data.Categories) {
		vm.Categories = append(vm.Categories, FilterOption{Value: c.Slug, Label: c.Name, Selected: c.Slug == f.Category})
	}
	for _, s := range sortLabels {
		s.Selected = s.Value == f.Sort
		vm.Sorts = append(vm.Sorts, s)
	}

	templates.Render(w, r, "tours/list", vm)
}

// DetailVM is the view model for /tour/{slug}.
type DetailVM struct {
	viewdata.BaseVM
	Tour    viewdata.TourDetail
	Related []viewdata.TourCard
	// BookingText is prefilled into the Zalo chat.
	BookingText string
}

// Detail renders one tour. Unknown slugs get the 404 page.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := normalize.QueryParam(chi.URLParam(r, "slug"))
	settings := h.catalog.Settings(ctx)

	data, err := h.catalog.Tour(ctx, slug)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		h.errs.NotFound(w, r)
		return
	case err != nil && catalog.IsUnavailable(err):
		h.errs.Unavailable(w, r)
		return
	case err != nil:
		h.errLog.Log(r, "failed to load tour", err)
		h.errs.InternalError(w, r)
		return
	}

	detail := viewdata.Detail(data.Tour)
	vm := DetailVM{
		BaseVM:      viewdata.New(r, settings, detail.Title),
		Tour:        detail,
		Related:     viewdata.Cards(data.Related),
		BookingText: "Tôi muốn đặt tour: " + detail.Title,
	}
	vm.Description = detail.Excerpt
	vm.Degraded = data.Degraded

	templates.Render(w, r, "tours/detail", vm)
}
