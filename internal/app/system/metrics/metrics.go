// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every stratatour collector. It is separate from the
// prometheus default registry so tests and /metrics see the same set.
var Registry = prometheus.NewRegistry()

var RenderCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stratatour_render_cache_total",
		Help: "Render pipeline lookups by policy and result (hit, miss, bypass)",
	},
	[]string{"policy", "result"},
)

var RevalidationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stratatour_revalidations_total",
		Help: "Revalidation requests by result",
	},
	[]string{"result"},
)

var ContentRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stratatour_content_requests_total",
		Help: "Content API calls made by the storefront",
	},
	[]string{"resource", "method", "outcome"},
)

var ContentRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "stratatour_content_request_duration_seconds",
		Help:    "Latency of content API calls in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"resource", "method"},
)

var EngagementTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stratatour_engagement_total",
		Help: "Engagement counter updates by kind (view, boost) and outcome",
	},
	[]string{"kind", "outcome"},
)

var RateLimitRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stratatour_rate_limit_rejections_total",
		Help: "Requests rejected by the per-client rate limiter",
	},
	[]string{"endpoint"},
)

var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stratatour_lifecycle_notifications_total",
		Help: "Lifecycle notifications sent by the content store",
	},
	[]string{"model", "outcome"},
)

var CronRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "stratatour_cron_runs_total",
		Help: "Cron endpoint runs by job (ping, warm) and outcome",
	},
	[]string{"job", "outcome"},
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RenderCacheTotal,
		RevalidationsTotal,
		ContentRequestsTotal,
		ContentRequestDuration,
		EngagementTotal,
		RateLimitRejectionsTotal,
		NotificationsTotal,
		CronRunsTotal,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
