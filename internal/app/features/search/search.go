// internal/app/features/search/search.go
package search

import (
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/catalog"
	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves /search.
type Handler struct {
	catalog *catalog.Service
	errs    *errorsfeature.Handler
	errLog  *errorsfeature.ErrorLogger
	logger  *zap.Logger
}

// NewHandler creates a search Handler.
func NewHandler(cat *catalog.Service, errs *errorsfeature.Handler, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{catalog: cat, errs: errs, errLog: errLog, logger: logger}
}

// Routes returns the search router. Results depend on the query, so they
// are rendered per request and never stored.
func Routes(h *Handler, p *rendercache.Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/", p.HandlerFunc(rendercache.RequestScoped(), h.Results))
	return r
}

// ResultsVM is the view model for the search page.
type ResultsVM struct {
	viewdata.BaseVM
	Query string
	Tours []viewdata.TourCard
	Total int64
}

// Results renders matches for ?q=.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings := h.catalog.Settings(ctx)

	data, err := h.catalog.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		h.errLog.Log(r, "search failed", err)
		h.errs.InternalError(w, r)
		return
	}

	title := "Tìm kiếm"
	if data.Query != "" {
		title = "Kết quả cho \"" + data.Query + "\""
	}
	vm := ResultsVM{
		BaseVM: viewdata.New(r, settings, title),
		Query:  data.Query,
		Tours:  viewdata.Cards(data.Tours),
		Total:  data.Total,
	}
	vm.Degraded = data.Degraded
	templates.Render(w, r, "search/results", vm)
}
