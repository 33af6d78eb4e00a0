package contentapi

import (
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/system/apicors"
	"github.com/dalemusser/stratatour/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Routes returns the content API router. Reads are public; writes require
// the API key and fail closed when none is configured.
func Routes(h *Handler, apiKey string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(apicors.Middleware())

	write := auth.APIKeyAuth(apiKey, logger)

	r.Route("/tours", func(sr chi.Router) {
		sr.Get("/", h.listTours)
		sr.Get("/{id}", h.getTour)
		sr.With(write).Post("/", h.createTour)
		sr.With(write).Put("/{id}", h.updateTour)
		sr.With(write).Delete("/{id}", h.deleteTour)
		sr.With(write).Post("/{id}/publish", h.publishTour)
	})

	r.Route("/categories", func(sr chi.Router) {
		sr.Get("/", h.listCategories)
		sr.Get("/{id}", h.getCategory)
		sr.With(write).Post("/", h.createCategory)
		sr.With(write).Put("/{id}", h.updateCategory)
		sr.With(write).Delete("/{id}", h.deleteCategory)
	})

	r.Route("/pages", func(sr chi.Router) {
		sr.Get("/", h.listPages)
		sr.Get("/{slug}", h.getPage)
		sr.With(write).Post("/", h.savePage)
		sr.With(write).Put("/{slug}", h.savePage)
		sr.With(write).Delete("/{slug}", h.deletePage)
	})

	r.Get("/site-setting", h.getSettings)
	r.With(write).Put("/site-setting", h.saveSettings)

	return r
}
