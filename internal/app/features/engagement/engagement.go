// Package engagement serves the counters shown as social proof on tour
// pages: a view endpoint called once per viewer per tour, and a boost
// endpoint that adds occasional activity between real bookings.
//
// Neither endpoint invalidates the render cache; new counts appear as
// cached pages expire.
package engagement

import (
	"errors"
	"net/http"
	"time"

	errorsfeature "github.com/dalemusser/stratatour/internal/app/features/errors"
	"github.com/dalemusser/stratatour/internal/app/system/content"
	"github.com/dalemusser/stratatour/internal/app/system/draftmode"
	"github.com/dalemusser/stratatour/internal/app/system/engagement"
	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"github.com/dalemusser/stratatour/internal/app/system/normalize"
	"github.com/dalemusser/stratatour/internal/app/system/ratelimit"
	"github.com/dalemusser/stratatour/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves /api/engagement.
type Handler struct {
	counter  engagement.Counter
	marker   *engagement.Marker
	booster  *engagement.Booster
	sessions *draftmode.Manager
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
	now      func() time.Time
}

// NewHandler creates an engagement Handler. sessions stores each viewer's
// last boost time next to the draft flag.
func NewHandler(counter engagement.Counter, marker *engagement.Marker, booster *engagement.Booster, sessions *draftmode.Manager, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		counter:  counter,
		marker:   marker,
		booster:  booster,
		sessions: sessions,
		errLog:   errLog,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the engagement router, rate limited per client IP.
func Routes(h *Handler, limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(limiter.Middleware("engagement"))
	r.Post("/view/{slug}", h.View)
	r.Post("/boost", h.Boost)
	return r
}

type viewResponse struct {
	Counted bool           `json:"counted"`
	Counts  *models.Counts `json:"counts,omitempty"`
}

// View counts one view of a tour for this viewer. Repeat views from the
// same viewer are not counted.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	slug := normalize.QueryParam(chi.URLParam(r, "slug"))
	if !normalize.IsSlug(slug) {
		jsonutil.BadRequest(w, "invalid slug")
		return
	}
	if h.marker.Has(r, slug) {
		metrics.EngagementTotal.WithLabelValues("view", "repeat").Inc()
		jsonutil.OK(w, viewResponse{Counted: false})
		return
	}

	ctx := r.Context()
	tour, err := h.counter.Tour(ctx, slug, false)
	if err != nil {
		h.fail(w, r, "view", "failed to load tour for view", err)
		return
	}

	counts, err := engagement.IncrementOnView(ctx, h.counter, tour.DocumentID, tour.Counts())
	if err != nil {
		h.fail(w, r, "view", "failed to update view counters", err)
		return
	}
	if err := h.marker.Add(w, r, slug); err != nil {
		h.logger.Warn("failed to set view marker", zap.String("slug", slug), zap.Error(err))
	}

	metrics.EngagementTotal.WithLabelValues("view", "ok").Inc()
	h.logger.Debug("tour view counted",
		zap.String("slug", slug),
		zap.Int("review_count", counts.ReviewCount),
		zap.Int("booking_count", counts.BookingCount))
	jsonutil.OK(w, viewResponse{Counted: true, Counts: &counts})
}

// Boost nudges the counters of one or two random tours. Each viewer gets
// one roll per cooldown, whether or not the roll boosts anything.
func (h *Handler) Boost(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if reason := h.booster.Gate(now, h.sessions.LastBoost(r)); reason != "" {
		if reason == engagement.ReasonChance {
			h.markBoost(w, r, now)
		}
		metrics.EngagementTotal.WithLabelValues("boost", "skipped").Inc()
		jsonutil.OK(w, engagement.BoostResult{Boosted: []string{}, Skipped: true, Reason: reason})
		return
	}
	h.markBoost(w, r, now)

	res, err := h.booster.Boost(r.Context())
	if errors.Is(err, engagement.ErrAllFailed) {
		metrics.EngagementTotal.WithLabelValues("boost", "failed").Inc()
		h.logger.Warn("boost failed", zap.Strings("errors", res.Failed))
		jsonutil.JSON(w, http.StatusBadGateway, res)
		return
	}
	if err != nil {
		h.fail(w, r, "boost", "failed to list tours for boost", err)
		return
	}

	metrics.EngagementTotal.WithLabelValues("boost", "ok").Inc()
	if len(res.Failed) > 0 {
		h.logger.Warn("boost partially failed", zap.Strings("boosted", res.Boosted), zap.Strings("errors", res.Failed))
	}
	jsonutil.OK(w, res)
}

func (h *Handler) markBoost(w http.ResponseWriter, r *http.Request, now time.Time) {
	if err := h.sessions.MarkBoost(w, r, now); err != nil {
		h.logger.Warn("failed to record boost time", zap.Error(err))
	}
}

// fail maps a content error to a JSON response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, kind, msg string, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound):
		metrics.EngagementTotal.WithLabelValues(kind, "not_found").Inc()
		jsonutil.NotFound(w, "tour not found")
	case content.IsUnavailable(err):
		metrics.EngagementTotal.WithLabelValues(kind, "unavailable").Inc()
		h.logger.Warn(msg, zap.String("path", r.URL.Path), zap.Error(err))
		jsonutil.Error(w, http.StatusServiceUnavailable, "content temporarily unavailable")
	default:
		metrics.EngagementTotal.WithLabelValues(kind, "error").Inc()
		h.errLog.Log(r, msg, err)
		jsonutil.InternalError(w, "internal error")
	}
}
