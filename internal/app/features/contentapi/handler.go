// Package contentapi serves the CMS content API consumed by the storefront.
//
// Endpoints (mounted at /api):
//   - GET    /tours, /categories, /pages          list with filters, fields, pagination, sort, status
//   - GET    /tours/{id}, /categories/{id}, /pages/{slug}
//   - POST   /tours, /categories, /pages          create  (API key)
//   - PUT    /tours/{id}, /categories/{id}, /pages/{slug}  update  (API key)
//   - DELETE /tours/{id}, /categories/{id}, /pages/{slug}  delete  (API key)
//   - POST   /tours/{id}/publish                  publish the draft (API key)
//   - GET|PUT /site-setting                       settings singleton (PUT needs API key)
//
// Reads return {"data": ..., "meta": {...}}; writes take {"data": {...}}.
// Every successful write of a tour, category, or page fires a lifecycle
// event so the storefront can drop the affected pages.
package contentapi

import (
	"context"
	"errors"
	"net/http"

	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	categorystore "github.com/dalemusser/stratatour/internal/app/store/categories"
	pagestore "github.com/dalemusser/stratatour/internal/app/store/pages"
	settingsstore "github.com/dalemusser/stratatour/internal/app/store/settings"
	"github.com/dalemusser/stratatour/internal/app/store/storeutil"
	tourstore "github.com/dalemusser/stratatour/internal/app/store/tours"
	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the content API.
type Handler struct {
	tours    *tourstore.Store
	cats     *categorystore.Store
	pages    *pagestore.Store
	settings *settingsstore.Store

	notifier lifecycle.Notifier
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a content API handler. notifier may be nil, in which
// case writes fire no lifecycle events.
func NewHandler(db *mongo.Database, notifier lifecycle.Notifier, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		tours:    tourstore.New(db),
		cats:     categorystore.New(db),
		pages:    pagestore.New(db),
		settings: settingsstore.New(db),
		notifier: notifier,
		errLog:   errLog,
		logger:   logger,
	}
}

// notify fires lifecycle events after a write. Failures are logged by
// Dispatch and never reach the caller.
func (h *Handler) notify(ctx context.Context, events ...lifecycle.Event) {
	lifecycle.Dispatch(ctx, h.notifier, h.logger, events...)
}

// parseQuery reads the cmsquery language from the URL, writing a 400 on error.
func parseQuery(w http.ResponseWriter, r *http.Request) (cmsquery.Query, bool) {
	q, err := cmsquery.Parse(r.URL.Query())
	if err != nil {
		jsonutil.BadRequest(w, err.Error())
		return cmsquery.Query{}, false
	}
	return q, true
}

func pagination(q cmsquery.Query, total int64) jsonutil.Pagination {
	return jsonutil.Pagination{
		Page:      int64(q.Page),
		PageSize:  int64(q.PageSize),
		PageCount: storeutil.PageCount(total, int64(q.PageSize)),
		Total:     total,
	}
}

// wantDraft reports whether the caller asked for draft versions.
func wantDraft(r *http.Request) bool {
	return r.URL.Query().Get("status") == "draft"
}

// wantPublish reports whether a write should also reach the published version.
func wantPublish(r *http.Request) bool {
	return r.URL.Query().Get("status") == "published"
}

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("slug already in use")
)

// classify maps store errors to API errors.
func classify(err error) error {
	switch {
	case errors.Is(err, tourstore.ErrNotFound), errors.Is(err, categorystore.ErrNotFound), errors.Is(err, pagestore.ErrNotFound):
		return errNotFound
	case errors.Is(err, tourstore.ErrDuplicateSlug), errors.Is(err, categorystore.ErrDuplicateSlug):
		return errDuplicate
	}
	return err
}

// storeError writes the response for a failed store call.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var uf *cmsquery.UnknownFieldError
	var pe *cmsquery.ParseError
	switch err = classify(err); {
	case errors.Is(err, errNotFound):
		jsonutil.NotFound(w, "not found")
	case errors.Is(err, errDuplicate):
		jsonutil.Error(w, http.StatusConflict, err.Error())
	case errors.As(err, &uf), errors.As(err, &pe):
		jsonutil.BadRequest(w, err.Error())
	default:
		h.errLog.Log(r, msg, err)
		jsonutil.InternalError(w, "internal error")
	}
}
