package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHandler_ExposesStratatourMetrics(t *testing.T) {
	RenderCacheTotal.WithLabelValues("ttl", "hit").Inc()
	RevalidationsTotal.WithLabelValues("ok").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{
		"stratatour_render_cache_total",
		"stratatour_revalidations_total",
		"go_goroutines",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestCounters_Increment(t *testing.T) {
	before := promtest.ToFloat64(EngagementTotal.WithLabelValues("view", "counted"))
	EngagementTotal.WithLabelValues("view", "counted").Inc()
	after := promtest.ToFloat64(EngagementTotal.WithLabelValues("view", "counted"))
	if after-before != 1 {
		t.Errorf("counter delta = %v, want 1", after-before)
	}
}
