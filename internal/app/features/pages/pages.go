// internal/app/features/pages/pages.go
package pages

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/catalog"
	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	"github.com/dalemusser/stratatour/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/viewdata"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler provides page content handlers.
type Handler struct {
	catalog  *catalog.Service
	errs     *errorsfeature.Handler
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
	pipeline *rendercache.Pipeline
}

// NewHandler creates a new pages Handler. Pages are kept until the CMS
// reports a change, so they render through p with the on-demand policy.
func NewHandler(cat *catalog.Service, errs *errorsfeature.Handler, errLog *errorsfeature.ErrorLogger, p *rendercache.Pipeline, logger *zap.Logger) *Handler {
	return &Handler{
		catalog:  cat,
		errs:     errs,
		errLog:   errLog,
		logger:   logger,
		pipeline: p,
	}
}

// PageVM is the view model for page content.
type PageVM struct {
	viewdata.BaseVM
	Slug    string
	Content template.HTML
}

// AboutRouter returns a router for the about page.
func (h *Handler) AboutRouter() http.Handler {
	return h.router(models.PageSlugAbout)
}

// ContactRouter returns a router for the contact page.
func (h *Handler) ContactRouter() http.Handler {
	return h.router(models.PageSlugContact)
}

// TermsRouter returns a router for the terms page.
func (h *Handler) TermsRouter() http.Handler {
	return h.router(models.PageSlugTerms)
}

// PrivacyRouter returns a router for the privacy page.
func (h *Handler) PrivacyRouter() http.Handler {
	return h.router(models.PageSlugPrivacy)
}

func (h *Handler) router(slug string) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/", h.pipeline.HandlerFunc(rendercache.OnDemand(), h.showPage(slug)))
	return r
}

// showPage returns a handler that displays a page by slug.
func (h *Handler) showPage(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		settings := h.catalog.Settings(ctx)

		data, err := h.catalog.Page(ctx, slug)
		if errors.Is(err, catalog.ErrNotFound) {
			h.errs.NotFound(w, r)
			return
		}
		if err != nil {
			h.errLog.Log(r, "failed to get page", err)
			h.errs.InternalError(w, r)
			return
		}

		vm := PageVM{
			BaseVM:  viewdata.New(r, settings, data.Page.Title),
			Slug:    slug,
			Content: htmlsanitize.PrepareForDisplay(data.Page.Content),
		}
		vm.Description = htmlsanitize.Excerpt(data.Page.Content, 160)
		vm.Degraded = data.Degraded

		templates.Render(w, r, "pages/show", vm)
	}
}
