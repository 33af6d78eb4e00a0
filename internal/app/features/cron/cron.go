// Package cron serves the endpoints an external scheduler hits: a
// keep-alive ping to the CMS and a cache warmer that renders the main
// pages through the live router.
package cron

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/auth"
	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/app/system/settle"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	// concurrency bounds parallel renders while warming.
	concurrency = 4
	// maxPages stops slug listing from walking an unbounded catalog.
	maxPages = 20
)

// staticPaths are warmed on every run ahead of the tour detail pages.
var staticPaths = []string{"/", "/tours", "/categories"}

// Source is what the cron jobs need from the content client.
type Source interface {
	Tours(ctx context.Context, q cmsquery.Query) ([]models.Tour, jsonutil.Pagination, error)
	Ping(ctx context.Context) error
}

// Handler serves /api/cron/*.
type Handler struct {
	src    Source
	secret string
	router http.Handler
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a cron Handler. The warmer needs the finished router,
// so it is attached later with SetRouter.
func NewHandler(src Source, secret string, logger *zap.Logger) *Handler {
	if secret == "" {
		logger.Warn("cron secret not configured - cron endpoints are disabled")
	}
	return &Handler{src: src, secret: secret, logger: logger, now: time.Now}
}

// SetRouter sets the handler warm requests are rendered through.
func (h *Handler) SetRouter(router http.Handler) {
	h.router = router
}

// MountRoutes registers the cron endpoints on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.requireSecret).Route("/api/cron", func(r chi.Router) {
		r.Get("/ping", h.Ping)
		r.Post("/ping", h.Ping)
		r.Get("/warm", h.Warm)
		r.Post("/warm", h.Warm)
	})
}

// requireSecret applies the same fail-closed rules as the revalidation
// webhook.
func (h *Handler) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := auth.CheckSecret(r, h.secret, lifecycle.TokenHeader)
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, auth.ErrNotConfigured):
			jsonutil.InternalError(w, "cron not configured")
		default:
			h.logger.Warn("cron rejected: invalid token",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr))
			jsonutil.Unauthorized(w, "invalid token")
		}
	})
}

type pingResponse struct {
	OK         bool   `json:"ok"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
}

// Ping makes one small request to the CMS so it does not idle out.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	start := h.now()
	err := h.src.Ping(r.Context())
	elapsed := h.now().Sub(start)

	if err != nil {
		metrics.CronRunsTotal.WithLabelValues("ping", "failed").Inc()
		h.logger.Warn("cms ping failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		jsonutil.JSON(w, http.StatusBadGateway, pingResponse{
			OK:         false,
			DurationMs: elapsed.Milliseconds(),
			Error:      err.Error(),
		})
		return
	}
	metrics.CronRunsTotal.WithLabelValues("ping", "ok").Inc()
	h.logger.Debug("cms ping ok", zap.Duration("elapsed", elapsed))
	jsonutil.OK(w, pingResponse{OK: true, DurationMs: elapsed.Milliseconds()})
}

type warmFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type warmResponse struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    []warmFailure `json:"failed"`
}

// Warm renders the shared pages and every published tour page so the
// render cache is populated before visitors arrive.
func (h *Handler) Warm(w http.ResponseWriter, r *http.Request) {
	if h.router == nil {
		jsonutil.InternalError(w, "warmer not ready")
		return
	}
	ctx := r.Context()

	paths := append([]string(nil), staticPaths...)
	slugs, err := h.tourSlugs(ctx)
	if err != nil {
		// Still warm the shared pages; they have fallbacks.
		h.logger.Warn("warm: listing tours failed", zap.Error(err))
	}
	for _, s := range slugs {
		paths = append(paths, "/tour/"+s)
	}

	res := settle.Strings(ctx, paths, concurrency, func(ctx context.Context, path string) error {
		return h.render(ctx, path)
	})

	out := warmResponse{
		Attempted: res.Attempted,
		Succeeded: len(res.Succeeded),
		Failed:    make([]warmFailure, 0, len(res.Failed)),
	}
	if err != nil {
		out.Failed = append(out.Failed, warmFailure{Path: "/api/tours", Error: err.Error()})
	}
	for _, f := range res.Failed {
		out.Failed = append(out.Failed, warmFailure{Path: f.Key, Error: f.Err.Error()})
	}

	outcome := "ok"
	if len(out.Failed) > 0 {
		outcome = "partial"
	}
	metrics.CronRunsTotal.WithLabelValues("warm", outcome).Inc()
	h.logger.Info("cache warmed",
		zap.Int("attempted", out.Attempted),
		zap.Int("succeeded", out.Succeeded),
		zap.Int("failed", len(out.Failed)))
	jsonutil.OK(w, out)
}

// tourSlugs lists every published tour slug, page by page.
func (h *Handler) tourSlugs(ctx context.Context) ([]string, error) {
	var slugs []string
	for page := 1; page <= maxPages; page++ {
		q := cmsquery.Query{}.Paginate(page, cmsquery.MaxPageSize).Select("slug")
		tours, pg, err := h.src.Tours(ctx, q)
		if err != nil {
			return slugs, err
		}
		for _, t := range tours {
			if normalize.IsSlug(t.Slug) {
				slugs = append(slugs, t.Slug)
			}
		}
		if int64(page) >= pg.PageCount || len(tours) == 0 {
			break
		}
	}
	return slugs, nil
}

// render serves path through the router and discards the body. The warm
// request's own route context must not reach the router: chi would route
// on its leftover path, and the workers would share one chi.Context.
func (h *Handler) render(ctx context.Context, path string) error {
	ctx = context.WithValue(ctx, chi.RouteCtxKey, nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	req.RemoteAddr = "127.0.0.1:0"
	rw := &discardWriter{header: make(http.Header)}
	h.router.ServeHTTP(rw, req)
	if rw.status() != http.StatusOK {
		return fmt.Errorf("status %d", rw.status())
	}
	return nil
}

// discardWriter records the status of a rendered page and drops the body.
type discardWriter struct {
	header http.Header
	code   int
}

func (d *discardWriter) Header() http.Header { return d.header }

func (d *discardWriter) Write(p []byte) (int, error) {
	if d.code == 0 {
		d.code = http.StatusOK
	}
	return len(p), nil
}

func (d *discardWriter) WriteHeader(code int) {
	if d.code == 0 {
		d.code = code
	}
}

func (d *discardWriter) status() int {
	if d.code == 0 {
		return http.StatusOK
	}
	return d.code
}
