// internal/app/features/categories/categories.go
package categories

import (
	"errors"
	"net/http"
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

// DetailTTL bounds how long a category listing is served before re-rendering.
const DetailTTL = 24 * time.Hour

// Handler serves the category index and category listings.
type Handler struct {
	catalog *catalog.Service
	errs    *errorsfeature.Handler
	errLog  *errorsfeature.ErrorLogger
	logger  *zap.Logger
}

// NewHandler creates a categories Handler.
func NewHandler(cat *catalog.Service, errs *errorsfeature.Handler, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{catalog: cat, errs: errs, errLog: errLog, logger: logger}
}

// MountRoutes registers /categories and /category/{slug} on r. The index
// is static: rendered once and kept until a category change drops it.
func (h *Handler) MountRoutes(r chi.Router, p *rendercache.Pipeline) {
	r.Method(http.MethodGet, "/categories", p.HandlerFunc(rendercache.Static(), h.Index))
	r.Method(http.MethodGet, "/category/{slug}", p.HandlerFunc(rendercache.TTL(DetailTTL), h.Show))
}

// IndexVM is the view model for /categories.
type IndexVM struct {
	viewdata.BaseVM
	Categories []viewdata.CategoryCard
}

// Index renders every category.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings := h.catalog.Settings(ctx)

	data, err := h.catalog.Categories(ctx)
	if err != nil {
		h.errLog.Log(r, "failed to list categories", err)
		h.errs.InternalError(w, r)
		return
	}

	vm := IndexVM{
		BaseVM:     viewdata.New(r, settings, "Danh mục tour"),
		Categories: viewdata.Categories(data.Categories),
	}
	vm.Degraded = data.Degraded
	templates.Render(w, r, "categories/index", vm)
}

// ShowVM is the view model for /category/{slug}.
type ShowVM struct {
	viewdata.BaseVM
	Category viewdata.CategoryCard
	Tours    []viewdata.TourCard
}

// Show renders one category with its tours.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := normalize.QueryParam(chi.URLParam(r, "slug"))
	settings := h.catalog.Settings(ctx)

	data, err := h.catalog.Category(ctx, slug)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		h.errs.NotFound(w, r)
		return
	case err != nil && catalog.IsUnavailable(err):
		h.errs.Unavailable(w, r)
		return
	case err != nil:
		h.errLog.Log(r, "failed to load category", err)
		h.errs.InternalError(w, r)
		return
	}

	card := viewdata.Category(data.Category)
	vm := ShowVM{
		BaseVM:   viewdata.New(r, settings, card.Name),
		Category: card,
		Tours:    viewdata.Cards(data.Tours),
	}
	vm.Description = card.Description
	vm.Degraded = data.Degraded
	templates.Render(w, r, "categories/show", vm)
}
