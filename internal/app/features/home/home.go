// internal/app/features/home/home.go
package home

import (
	"net/http"
	"time"

	"github.com/dalemusser/stratatour/internal/app/catalog"
	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CacheTTL is how long a rendered home page is served before re-rendering.
const CacheTTL = time.Hour

// Handler provides home page handlers.
type Handler struct {
	catalog *catalog.Service
	errs    *errorsfeature.Handler
	errLog  *errorsfeature.ErrorLogger
	logger  *zap.Logger
}

// NewHandler creates a new home Handler.
func NewHandler(cat *catalog.Service, errs *errorsfeature.Handler, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		catalog: cat,
		errs:    errs,
		errLog:  errLog,
		logger:  logger,
	}
}

// HomeVM is the view model for the home page.
type HomeVM struct {
	viewdata.BaseVM
	Banners    []viewdata.BannerVM
	Featured   []viewdata.TourCard
	Latest     []viewdata.TourCard
	Categories []viewdata.CategoryCard
}

// Routes returns a chi.Router with home routes mounted.
func Routes(h *Handler, p *rendercache.Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/", p.HandlerFunc(rendercache.TTL(CacheTTL), h.Index))
	return r
}

// Index renders the home page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings := h.catalog.Settings(ctx)

	data, err := h.catalog.Home(ctx, settings)
	if err != nil {
		h.errLog.Log(r, "failed to load home page", err)
		h.errs.InternalError(w, r)
		return
	}

	vm := HomeVM{
		BaseVM:     viewdata.New(r, settings, settings.SiteName),
		Banners:    viewdata.Banners(data.Banners),
		Featured:   viewdata.Cards(data.Featured),
		Latest:     viewdata.Cards(data.Latest),
		Categories: viewdata.Categories(data.Categories),
	}
	vm.Description = "Đặt tour du lịch trong nước và nước ngoài với giá tốt nhất."
	vm.Degraded = data.Degraded

	templates.Render(w, r, "home/index", vm)
}
