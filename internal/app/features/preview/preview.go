// Package preview turns draft mode on and off for a viewer. Editors reach
// it from the CMS with the shared preview secret; while draft mode is on,
// pages show unpublished content and bypass the render cache.
package preview

import (
	"errors"
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/system/auth"
	"github.com/dalemusser/stratatour/internal/app/system/draftmode"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves /api/preview and /api/preview/exit.
type Handler struct {
	drafts *draftmode.Manager
	secret string
	logger *zap.Logger
}

// NewHandler creates a preview Handler. With an empty secret entering
// preview always fails with 500.
func NewHandler(drafts *draftmode.Manager, secret string, logger *zap.Logger) *Handler {
	if secret == "" {
		logger.Warn("preview secret not configured - preview mode is disabled")
	}
	return &Handler{drafts: drafts, secret: secret, logger: logger}
}

// MountRoutes registers the gateway on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/preview", h.Enter)
	r.Get("/api/preview/exit", h.Exit)
}

// Target returns where a preview of (typ, slug) lands. A missing or unknown
// type lands on the home page.
func Target(typ, slug string) string {
	switch normalize.Model(typ) {
	case "tour":
		return "/tour/" + slug
	case "category":
		return "/category/" + slug
	case "page":
		if models.IsValidPageSlug(slug) {
			return "/" + slug
		}
	}
	return "/"
}

// Enter checks the secret, turns draft mode on, and redirects to the
// previewed entry.
func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	if err := auth.CheckSecret(r, h.secret, ""); err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			jsonutil.InternalError(w, "preview not configured")
			return
		}
		h.logger.Warn("preview rejected: invalid secret", zap.String("remote_addr", r.RemoteAddr))
		jsonutil.Unauthorized(w, "invalid token")
		return
	}

	q := r.URL.Query()
	slug := normalize.QueryParam(q.Get("slug"))
	if slug == "" {
		jsonutil.BadRequest(w, "slug is required")
		return
	}
	if !normalize.IsSlug(slug) {
		jsonutil.BadRequest(w, "invalid slug")
		return
	}

	if err := h.drafts.Enable(w, r); err != nil {
		h.logger.Error("failed to enable draft mode", zap.Error(err))
		jsonutil.InternalError(w, "failed to enable preview")
		return
	}
	target := Target(q.Get("type"), slug)
	h.logger.Info("preview enabled", zap.String("target", target))
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// Exit turns draft mode off and returns to ?redirect when it is a local path.
func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	if err := h.drafts.Disable(w, r); err != nil {
		h.logger.Warn("failed to clear draft mode", zap.Error(err))
	}
	target := urlutil.SafeReturn(r.URL.Query().Get("redirect"), "", "/")
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
