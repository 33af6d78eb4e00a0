// internal/app/system/lifecycle/lifecycle.go
package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"github.com/dalemusser/stratatour/internal/app/system/settle"
	"github.com/dalemusser/stratatour/internal/app/system/timeouts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// Content models that trigger revalidation.
const (
	ModelTour     = "tour"
	ModelCategory = "category"
	ModelPage     = "page"
)

// TokenHeader carries the revalidation secret.
const TokenHeader = "x-revalidate-token"

// ErrNotConfigured is returned by an HTTPNotifier without a URL or secret.
var ErrNotConfigured = errors.New("lifecycle notifier not configured")

// Entry identifies the changed entry.
type Entry struct {
	Slug string `json:"slug"`
}

// Event is the webhook body sent after a content change. It is also the
// body accepted by the revalidation gateway.
type Event struct {
	Model string `json:"model,omitempty"`
	Entry *Entry `json:"entry,omitempty"`
	// Tag, when set, additionally drops every cached page carrying it.
	Tag string `json:"tag,omitempty"`
}

// Slug returns the entry slug, or "" when the event has none.
func (e Event) Slug() string {
	if e.Entry == nil {
		return ""
	}
	return strings.TrimSpace(e.Entry.Slug)
}

// For builds an event for model and slug.
func For(model, slug string) Event {
	return Event{Model: model, Entry: &Entry{Slug: slug}}
}

// Notifier delivers content change events to the storefront.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NotifierFunc adapts a function to Notifier. The all-in-one role uses it
// to call the revalidation gateway in process.
type NotifierFunc func(ctx context.Context, ev Event) error

func (f NotifierFunc) Notify(ctx context.Context, ev Event) error { return f(ctx, ev) }

// HTTPNotifier posts events to <siteURL>/api/revalidate.
type HTTPNotifier struct {
	endpoint string
	secret   string
	httpc    *http.Client
}

// NewHTTPNotifier returns a notifier for siteURL. With an empty siteURL or
// secret it is inert and every Notify returns ErrNotConfigured.
func NewHTTPNotifier(siteURL, secret string) *HTTPNotifier {
	n := &HTTPNotifier{secret: secret, httpc: &http.Client{Timeout: timeouts.Medium()}}
	if siteURL != "" {
		n.endpoint = strings.TrimRight(siteURL, "/") + "/api/revalidate"
	}
	return n
}

// Configured reports whether Notify can do anything.
func (n *HTTPNotifier) Configured() bool {
	return n.endpoint != "" && n.secret != ""
}

func (n *HTTPNotifier) Notify(ctx context.Context, ev Event) error {
	if !n.Configured() {
		return ErrNotConfigured
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, n.secret)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := n.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", n.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", n.endpoint, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// Dispatch sends every event through n with settle-all semantics. Failures
// are logged and counted; they never fail the authoring request.
func Dispatch(ctx context.Context, n Notifier, logger *zap.Logger, events ...Event) settle.Results {
	if n == nil || len(events) == 0 {
		return settle.Results{}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
	defer cancel()

	start := time.Now()
	res := settle.Each(ctx, events, 4, func(ev Event) string {
		return ev.Model + ":" + ev.Slug()
	}, func(ctx context.Context, ev Event) error {
		err := n.Notify(ctx, ev)
		outcome := "ok"
		switch {
		case errors.Is(err, ErrNotConfigured):
			outcome = "not_configured"
		case err != nil:
			outcome = "failed"
		}
		metrics.NotificationsTotal.WithLabelValues(ev.Model, outcome).Inc()
		return err
	})

	for _, f := range res.Failed {
		if errors.Is(f.Err, ErrNotConfigured) {
			logger.Info("revalidation webhook skipped (site_url or revalidate_secret not set)",
				zap.String("event", f.Key))
			continue
		}
		logger.Warn("revalidation webhook failed", zap.String("event", f.Key), zap.Error(f.Err))
	}
	logger.Debug("revalidation webhooks dispatched",
		zap.Int("attempted", res.Attempted),
		zap.Int("failed", len(res.Failed)),
		zap.Duration("duration", time.Since(start)))
	return res
}
