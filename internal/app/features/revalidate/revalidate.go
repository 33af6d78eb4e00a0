// Package revalidate is the webhook the CMS calls after a content change.
// It drops the cached renders affected by the change so the next request
// for each path renders fresh content.
package revalidate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/auth"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/lifecycle"
	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/settle"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// concurrency bounds parallel invalidations against the cache store.
const concurrency = 4

// maxBody caps the webhook body; events are a few dozen bytes.
const maxBody = 64 << 10

// Handler serves /api/revalidate.
type Handler struct {
	store  rendercache.Store
	secret string
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a revalidation Handler. With an empty secret every
// request is refused with 500.
func NewHandler(store rendercache.Store, secret string, logger *zap.Logger) *Handler {
	if secret == "" {
		logger.Warn("revalidate secret not configured - revalidation is disabled")
	}
	return &Handler{store: store, secret: secret, logger: logger, now: time.Now}
}

// MountRoutes registers the gateway on r. The routes are explicit so they
// coexist with other /api mounts.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/api/revalidate", h.Revalidate)
	r.Get("/api/revalidate", h.Revalidate)
}

// Paths returns the paths an event invalidates. The home page and the
// tour listing show every kind of content, so they are always included.
// Unknown models add nothing.
func Paths(ev lifecycle.Event) []string {
	paths := []string{"/", "/tours"}
	slug := ev.Slug()
	if slug != "" && !normalize.IsSlug(slug) {
		return paths
	}
	switch normalize.Model(ev.Model) {
	case lifecycle.ModelTour:
		if slug != "" {
			paths = append(paths, "/tour/"+slug)
		}
	case lifecycle.ModelCategory:
		paths = append(paths, "/categories")
		if slug != "" {
			paths = append(paths, "/category/"+slug)
		}
	case lifecycle.ModelPage:
		if slug != "" {
			paths = append(paths, "/"+slug)
		}
	}
	return paths
}

// Invalidate drops every cached render for the event's paths, and for its
// tag when one is set. All paths are attempted even when some fail.
func (h *Handler) Invalidate(ctx context.Context, ev lifecycle.Event) ([]string, settle.Results) {
	paths := Paths(ev)
	targets := make([]string, 0, len(paths)+1)
	for _, p := range paths {
		targets = append(targets, rendercache.PathTag(p))
	}
	if tag := strings.TrimSpace(ev.Tag); tag != "" {
		targets = append(targets, tag)
	}

	res := settle.Strings(ctx, targets, concurrency, func(ctx context.Context, tag string) error {
		n, err := h.store.InvalidateTag(ctx, tag)
		if err != nil {
			return err
		}
		h.logger.Debug("invalidated", zap.String("tag", tag), zap.Int("entries", n))
		return nil
	})
	return paths, res
}

// Notifier delivers lifecycle events straight to Invalidate. The
// all-in-one role uses it in place of an HTTP round trip.
func (h *Handler) Notifier() lifecycle.Notifier {
	return lifecycle.NotifierFunc(func(ctx context.Context, ev lifecycle.Event) error {
		_, res := h.Invalidate(ctx, ev)
		return res.Err()
	})
}

type response struct {
	Revalidated bool     `json:"revalidated"`
	Now         int64    `json:"now,omitempty"`
	Message     string   `json:"message,omitempty"`
	Paths       []string `json:"paths,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}

// Revalidate authenticates the caller and invalidates the event's paths.
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	if err := auth.CheckSecret(r, h.secret, lifecycle.TokenHeader); err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			metrics.RevalidationsTotal.WithLabelValues("not_configured").Inc()
			jsonutil.InternalError(w, "revalidation not configured")
			return
		}
		metrics.RevalidationsTotal.WithLabelValues("unauthorized").Inc()
		h.logger.Warn("revalidate rejected: invalid token",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("method", r.Method))
		jsonutil.Unauthorized(w, "invalid token")
		return
	}

	ev, err := readEvent(r)
	if err != nil {
		metrics.RevalidationsTotal.WithLabelValues("bad_request").Inc()
		jsonutil.BadRequest(w, err.Error())
		return
	}

	paths, res := h.Invalidate(r.Context(), ev)
	if !res.OK() {
		metrics.RevalidationsTotal.WithLabelValues("failed").Inc()
		h.logger.Error("revalidate failed",
			zap.String("model", ev.Model),
			zap.String("slug", ev.Slug()),
			zap.Strings("errors", res.Messages()))
		jsonutil.JSON(w, http.StatusInternalServerError, response{
			Revalidated: false,
			Errors:      res.Messages(),
		})
		return
	}

	metrics.RevalidationsTotal.WithLabelValues("ok").Inc()
	h.logger.Info("revalidated",
		zap.String("model", ev.Model),
		zap.String("slug", ev.Slug()),
		zap.String("tag", ev.Tag),
		zap.Strings("paths", paths))
	jsonutil.OK(w, response{
		Revalidated: true,
		Now:         h.now().UnixMilli(),
		Message:     fmt.Sprintf("revalidated %d paths", len(paths)),
		Paths:       paths,
	})
}

// readEvent decodes the optional body. GET requests and empty bodies
// yield the zero event, which still invalidates the shared paths.
func readEvent(r *http.Request) (lifecycle.Event, error) {
	var ev lifecycle.Event
	if r.Method != http.MethodPost || r.Body == nil {
		return ev, nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return ev, fmt.Errorf("read body: %w", err)
	}
	if strings.TrimSpace(string(raw)) == "" {
		return ev, nil
	}
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("invalid event body: %w", err)
	}
	return ev, nil
}
