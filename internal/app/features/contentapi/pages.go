package contentapi

import (
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type pageInput struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) listPages(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	pages, total, err := h.pages.Find(r.Context(), q)
	if err != nil {
		h.storeError(w, r, "failed to list pages", err)
		return
	}
	jsonutil.Collection(w, pages, pagination(q, total))
}

func (h *Handler) getPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.pages.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.storeError(w, r, "failed to get page", err)
		return
	}
	jsonutil.Data(w, http.StatusOK, p)
}

// savePage creates or replaces a page. Only the known informational slugs
// are accepted because the storefront routes nothing else.
func (h *Handler) savePage(w http.ResponseWriter, r *http.Request) {
	var in pageInput
	if err := jsonutil.DecodeData(r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return
	}
	if s := chi.URLParam(r, "slug"); s != "" {
		in.Slug = s
	}
	in.Slug = normalize.QueryParam(in.Slug)
	if !models.IsValidPageSlug(in.Slug) {
		jsonutil.ValidationError(w, map[string]string{"slug": "must be one of about, contact, terms, privacy"})
		return
	}
	title := normalize.Name(htmlsanitize.StripTags(in.Title))
	if title == "" {
		title = models.DefaultPageTitle(in.Slug)
	}

	saved, err := h.pages.Upsert(r.Context(), models.Page{
		Slug:    in.Slug,
		Title:   title,
		Content: htmlsanitize.Sanitize(in.Content),
	})
	if err != nil {
		h.storeError(w, r, "failed to save page", err)
		return
	}
	h.logger.Info("page saved", zap.String("slug", saved.Slug))
	h.notify(r.Context(), lifecycle.For(lifecycle.ModelPage, saved.Slug))
	jsonutil.Data(w, http.StatusOK, saved)
}

func (h *Handler) deletePage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := h.pages.Delete(r.Context(), slug); err != nil {
		h.storeError(w, r, "failed to delete page", err)
		return
	}
	h.notify(r.Context(), lifecycle.For(lifecycle.ModelPage, slug))
	jsonutil.NoContent(w)
}
