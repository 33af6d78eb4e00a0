package contentapi

import (
	"net/http"

	"github.com/dalemusser/stratatour/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type categoryInput struct {
	Slug        *string       `json:"slug"`
	Name        *string       `json:"name"`
	Ten         *string       `json:"ten"`
	Description *string       `json:"description"`
	Icon        *string       `json:"icon"`
	Image       *models.Media `json:"image"`
	Order       *int          `json:"order"`
}

func (in *categoryInput) validate(creating bool) map[string]string {
	errs := map[string]string{}
	hasName := in.Name != nil && normalize.Name(*in.Name) != ""
	hasTen := in.Ten != nil && normalize.Name(*in.Ten) != ""
	if creating && !hasName && !hasTen {
		errs["name"] = "name or ten is required"
	}
	if in.Slug != nil && !normalize.IsSlug(*in.Slug) {
		errs["slug"] = "must be lowercase letters, digits, and single dashes"
	}
	return errs
}

func (in *categoryInput) set() bson.M {
	m := bson.M{}
	if in.Slug != nil {
		m["slug"] = *in.Slug
	}
	if in.Name != nil {
		m["name"] = normalize.Name(htmlsanitize.StripTags(*in.Name))
	}
	if in.Ten != nil {
		m["ten"] = normalize.Name(htmlsanitize.StripTags(*in.Ten))
	}
	if in.Description != nil {
		m["description"] = htmlsanitize.StripTags(*in.Description)
	}
	if in.Icon != nil {
		m["icon"] = normalize.Name(*in.Icon)
	}
	if in.Image != nil {
		m["image"] = in.Image
	}
	if in.Order != nil {
		m["order"] = *in.Order
	}
	return m
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	cats, total, err := h.cats.Find(r.Context(), q)
	if err != nil {
		h.storeError(w, r, "failed to list categories", err)
		return
	}
	jsonutil.Collection(w, cats, pagination(q, total))
}

// getCategory accepts a document id or a slug.
func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.cats.GetByDocumentID(r.Context(), id)
	if classify(err) == errNotFound {
		c, err = h.cats.GetBySlug(r.Context(), id)
	}
	if err != nil {
		h.storeError(w, r, "failed to get category", err)
		return
	}
	jsonutil.Data(w, http.StatusOK, c)
}

func (h *Handler) decodeCategory(w http.ResponseWriter, r *http.Request, creating bool) (*categoryInput, bool) {
	var in categoryInput
	if err := jsonutil.DecodeData(r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return nil, false
	}
	if errs := in.validate(creating); len(errs) > 0 {
		jsonutil.ValidationError(w, errs)
		return nil, false
	}
	return &in, true
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeCategory(w, r, true)
	if !ok {
		return
	}
	var c models.Category
	raw, _ := bson.Marshal(in.set())
	if err := bson.Unmarshal(raw, &c); err != nil {
		h.errLog.Log(r, "failed to build category", err)
		jsonutil.InternalError(w, "internal error")
		return
	}
	if c.Slug == "" {
		c.Slug = normalize.Slug(c.DisplayName())
	}

	created, err := h.cats.Create(r.Context(), c)
	if err != nil {
		h.storeError(w, r, "failed to create category", err)
		return
	}
	h.logger.Info("category created", zap.String("document_id", created.DocumentID), zap.String("slug", created.Slug))
	h.notify(r.Context(), lifecycle.For(lifecycle.ModelCategory, created.Slug))
	jsonutil.Data(w, http.StatusCreated, created)
}

// updateCategory rewrites the category and, when its display name or slug
// changed, the embedded link on its tours. One event fires per affected
// tour so their detail pages are dropped as well.
func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ok := h.decodeCategory(w, r, false)
	if !ok {
		return
	}
	before, err := h.cats.GetByDocumentID(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "failed to get category", err)
		return
	}
	updated, err := h.cats.Update(r.Context(), id, in.set())
	if err != nil {
		h.storeError(w, r, "failed to update category", err)
		return
	}

	events := []lifecycle.Event{lifecycle.For(lifecycle.ModelCategory, updated.Slug)}
	if before.Slug != updated.Slug {
		events = append(events, lifecycle.For(lifecycle.ModelCategory, before.Slug))
	}
	if before.Ref() != updated.Ref() {
		slugs, err := h.tours.RenameCategory(r.Context(), updated.Ref())
		if err != nil {
			h.errLog.Log(r, "failed to rename category on tours", err)
			jsonutil.InternalError(w, "category saved but tours were not updated")
			return
		}
		for _, s := range slugs {
			events = append(events, lifecycle.For(lifecycle.ModelTour, s))
		}
		h.logger.Info("category renamed on tours",
			zap.String("document_id", id),
			zap.Int("tours", len(slugs)))
	}
	h.notify(r.Context(), events...)
	jsonutil.Data(w, http.StatusOK, updated)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	deleted, err := h.cats.Delete(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "failed to delete category", err)
		return
	}
	events := []lifecycle.Event{lifecycle.For(lifecycle.ModelCategory, deleted.Slug)}
	slugs, err := h.tours.DetachCategory(r.Context(), id)
	if err != nil {
		h.errLog.Log(r, "failed to detach category from tours", err)
	}
	for _, s := range slugs {
		events = append(events, lifecycle.For(lifecycle.ModelTour, s))
	}
	h.logger.Info("category deleted", zap.String("document_id", id), zap.Int("tours_detached", len(slugs)))
	h.notify(r.Context(), events...)
	jsonutil.Data(w, http.StatusOK, deleted)
}
