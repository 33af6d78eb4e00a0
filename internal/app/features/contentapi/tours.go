package contentapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/stratatour/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// categoryLink names a category by document id or slug in write bodies.
type categoryLink struct {
	DocumentID string `json:"documentId"`
	Slug       string `json:"slug"`
}

// tourInput is a tour write body. Absent fields are left unchanged on update.
type tourInput struct {
	Slug             *string                `json:"slug"`
	Title            *string                `json:"title"`
	ShortDescription *string                `json:"shortDescription"`
	Content          *string                `json:"content"`
	Price            *float64               `json:"price"`
	OriginalPrice    json.RawMessage        `json:"originalPrice"`
	Destination      *string                `json:"destination"`
	Duration         *string                `json:"duration"`
	Departure        *string                `json:"departure"`
	Category         json.RawMessage        `json:"category"`
	Thumbnail        *models.Media          `json:"thumbnail"`
	Gallery          *[]models.Media        `json:"gallery"`
	File             *models.Media          `json:"file"`
	Itinerary        *[]models.ItineraryDay `json:"itinerary"`
	Includes         *[]string              `json:"includes"`
	Excludes         *[]string              `json:"excludes"`
	Notes            *[]string              `json:"notes"`
	Rating           *float64               `json:"rating"`
	ReviewCount      *int                   `json:"reviewCount"`
	BookingCount     *int                   `json:"bookingCount"`
	Featured         *bool                  `json:"featured"`
}

var errBadCategory = errors.New("invalid category link")

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

// validate checks invariants on the fields present in the body.
func (in *tourInput) validate(creating bool) map[string]string {
	errs := map[string]string{}
	if creating && (in.Title == nil || normalize.Name(*in.Title) == "") {
		errs["title"] = "required"
	}
	if creating && in.Price == nil {
		errs["price"] = "required"
	}
	if in.Price != nil && *in.Price < 0 {
		errs["price"] = "must be >= 0"
	}
	if len(in.OriginalPrice) > 0 && !isNull(in.OriginalPrice) {
		var v float64
		if err := json.Unmarshal(in.OriginalPrice, &v); err != nil || v < 0 {
			errs["originalPrice"] = "must be a number >= 0 or null"
		}
	}
	if in.Slug != nil && !normalize.IsSlug(*in.Slug) {
		errs["slug"] = "must be lowercase letters, digits, and single dashes"
	}
	if in.Rating != nil && (*in.Rating < 0 || *in.Rating > 5) {
		errs["rating"] = "must be between 0 and 5"
	}
	if in.ReviewCount != nil && *in.ReviewCount < 0 {
		errs["reviewCount"] = "must be >= 0"
	}
	if in.BookingCount != nil && *in.BookingCount < 0 {
		errs["bookingCount"] = "must be >= 0"
	}
	return errs
}

// set builds the $set document for the fields present. Rich content is
// sanitized, plain text fields are stripped of markup.
func (in *tourInput) set(category *models.CategoryRef) bson.M {
	m := bson.M{}
	str := func(key string, v *string, clean func(string) string) {
		if v != nil {
			m[key] = clean(*v)
		}
	}
	str("slug", in.Slug, strings.TrimSpace)
	str("title", in.Title, func(s string) string { return normalize.Name(htmlsanitize.StripTags(s)) })
	str("short_description", in.ShortDescription, htmlsanitize.StripTags)
	str("content", in.Content, htmlsanitize.Sanitize)
	str("destination", in.Destination, normalize.Name)
	str("duration", in.Duration, normalize.Name)
	str("departure", in.Departure, normalize.Name)

	if in.Price != nil {
		m["price"] = *in.Price
	}
	if len(in.OriginalPrice) > 0 {
		var v *float64
		_ = json.Unmarshal(in.OriginalPrice, &v)
		m["original_price"] = v
	}
	if len(in.Category) > 0 {
		m["category"] = category
	}
	if in.Thumbnail != nil {
		m["thumbnail"] = in.Thumbnail
	}
	if in.Gallery != nil {
		m["gallery"] = *in.Gallery
	}
	if in.File != nil {
		m["file"] = in.File
	}
	if in.Itinerary != nil {
		days := make([]models.ItineraryDay, 0, len(*in.Itinerary))
		for _, d := range *in.Itinerary {
			d.Title = htmlsanitize.StripTags(d.Title)
			d.Description = htmlsanitize.Sanitize(d.Description)
			days = append(days, d)
		}
		m["itinerary"] = days
	}
	lines := func(key string, v *[]string) {
		if v == nil {
			return
		}
		out := make([]string, 0, len(*v))
		for _, s := range *v {
			if s = htmlsanitize.StripTags(s); s != "" {
				out = append(out, s)
			}
		}
		m[key] = out
	}
	lines("includes", in.Includes)
	lines("excludes", in.Excludes)
	lines("notes", in.Notes)

	if in.Rating != nil {
		m["rating"] = *in.Rating
	}
	if in.ReviewCount != nil {
		m["review_count"] = *in.ReviewCount
	}
	if in.BookingCount != nil {
		m["booking_count"] = *in.BookingCount
	}
	if in.Featured != nil {
		m["featured"] = *in.Featured
	}
	return m
}

// resolveCategory turns the body's category link into the embedded ref.
// A null link detaches the tour.
func (h *Handler) resolveCategory(r *http.Request, raw json.RawMessage) (*models.CategoryRef, error) {
	if len(raw) == 0 || isNull(raw) {
		return nil, nil
	}
	var link categoryLink
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadCategory, err)
	}
	var (
		cat models.Category
		err error
	)
	switch {
	case link.DocumentID != "":
		cat, err = h.cats.GetByDocumentID(r.Context(), link.DocumentID)
	case link.Slug != "":
		cat, err = h.cats.GetBySlug(r.Context(), link.Slug)
	default:
		return nil, fmt.Errorf("%w: documentId or slug required", errBadCategory)
	}
	if err != nil {
		return nil, err
	}
	ref := cat.Ref()
	return &ref, nil
}

func (h *Handler) listTours(w http.ResponseWriter, r *http.Request) {
	q, ok := parseQuery(w, r)
	if !ok {
		return
	}
	tours, total, err := h.tours.Find(r.Context(), q)
	if err != nil {
		h.storeError(w, r, "failed to list tours", err)
		return
	}
	jsonutil.Collection(w, tours, pagination(q, total))
}

func (h *Handler) getTour(w http.ResponseWriter, r *http.Request) {
	t, err := h.tours.GetByDocumentID(r.Context(), chi.URLParam(r, "id"), wantDraft(r))
	if err != nil {
		h.storeError(w, r, "failed to get tour", err)
		return
	}
	jsonutil.Data(w, http.StatusOK, t)
}

// decodeTour reads and validates a tour body, resolving its category.
func (h *Handler) decodeTour(w http.ResponseWriter, r *http.Request, creating bool) (*tourInput, *models.CategoryRef, bool) {
	var in tourInput
	if err := jsonutil.DecodeData(r, &in); err != nil {
		jsonutil.BadRequest(w, err.Error())
		return nil, nil, false
	}
	if errs := in.validate(creating); len(errs) > 0 {
		jsonutil.ValidationError(w, errs)
		return nil, nil, false
	}
	ref, err := h.resolveCategory(r, in.Category)
	if err != nil {
		if classify(err) == errNotFound {
			jsonutil.ValidationError(w, map[string]string{"category": "unknown category"})
			return nil, nil, false
		}
		if errors.Is(err, errBadCategory) {
			jsonutil.ValidationError(w, map[string]string{"category": err.Error()})
			return nil, nil, false
		}
		h.storeError(w, r, "failed to resolve category", err)
		return nil, nil, false
	}
	return &in, ref, true
}

func (h *Handler) createTour(w http.ResponseWriter, r *http.Request) {
	in, ref, ok := h.decodeTour(w, r, true)
	if !ok {
		return
	}
	set := in.set(ref)
	var t models.Tour
	raw, _ := bson.Marshal(set)
	if err := bson.Unmarshal(raw, &t); err != nil {
		h.errLog.Log(r, "failed to build tour", err)
		jsonutil.InternalError(w, "internal error")
		return
	}
	if t.Slug == "" {
		t.Slug = normalize.Slug(t.Title)
	}

	publish := wantPublish(r)
	created, err := h.tours.Create(r.Context(), t, publish)
	if err != nil {
		h.storeError(w, r, "failed to create tour", err)
		return
	}
	h.logger.Info("tour created",
		zap.String("document_id", created.DocumentID),
		zap.String("slug", created.Slug),
		zap.Bool("published", publish))
	if publish {
		h.notify(r.Context(), lifecycle.For(lifecycle.ModelTour, created.Slug))
	}
	jsonutil.Data(w, http.StatusCreated, created)
}

func (h *Handler) updateTour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ref, ok := h.decodeTour(w, r, false)
	if !ok {
		return
	}

	// the old published slug must be dropped too when a rename is published
	before, beforeErr := h.tours.GetByDocumentID(r.Context(), id, false)

	publish := wantPublish(r)
	updated, err := h.tours.Update(r.Context(), id, in.set(ref), publish)
	if err != nil {
		h.storeError(w, r, "failed to update tour", err)
		return
	}
	if publish {
		events := []lifecycle.Event{lifecycle.For(lifecycle.ModelTour, updated.Slug)}
		if beforeErr == nil && before.Slug != updated.Slug {
			events = append(events, lifecycle.For(lifecycle.ModelTour, before.Slug))
		}
		h.notify(r.Context(), events...)
	}
	jsonutil.Data(w, http.StatusOK, updated)
}

func (h *Handler) publishTour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	before, beforeErr := h.tours.GetByDocumentID(r.Context(), id, false)

	pub, err := h.tours.Publish(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "failed to publish tour", err)
		return
	}
	h.logger.Info("tour published", zap.String("document_id", id), zap.String("slug", pub.Slug))

	events := []lifecycle.Event{lifecycle.For(lifecycle.ModelTour, pub.Slug)}
	if beforeErr == nil && before.Slug != pub.Slug {
		events = append(events, lifecycle.For(lifecycle.ModelTour, before.Slug))
	}
	h.notify(r.Context(), events...)
	jsonutil.Data(w, http.StatusOK, pub)
}

func (h *Handler) deleteTour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pub, pubErr := h.tours.GetByDocumentID(r.Context(), id, false)

	deleted, err := h.tours.Delete(r.Context(), id)
	if err != nil {
		h.storeError(w, r, "failed to delete tour", err)
		return
	}
	h.logger.Info("tour deleted", zap.String("document_id", id), zap.String("slug", deleted.Slug))
	if pubErr == nil {
		h.notify(r.Context(), lifecycle.For(lifecycle.ModelTour, pub.Slug))
	}
	jsonutil.Data(w, http.StatusOK, deleted)
}
