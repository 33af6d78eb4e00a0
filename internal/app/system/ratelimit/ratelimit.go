// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/jsonutil"
	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"github.com/dalemusser/stratatour/internal/app/system/network"
	"golang.org/x/time/rate"
)

// idleAfter is how long a client's limiter is kept after its last request.
const idleAfter = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out one token bucket per client IP.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	r       rate.Limit
	burst   int
	now     func() time.Time
}

// New returns a Limiter allowing perSecond requests with the given burst.
func New(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		clients: make(map[string]*client),
		r:       rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.r, l.burst)}
		l.clients[key] = c
		// piggyback eviction on inserts so the map stays bounded
		for k, other := range l.clients {
			if now.Sub(other.lastSeen) > idleAfter && k != key {
				delete(l.clients, k)
			}
		}
	}
	c.lastSeen = now
	return c.limiter
}

// Allow reports whether a request from key may proceed now.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).AllowN(l.now(), 1)
}

// Middleware rejects over-limit requests with 429. endpoint labels the
// rejection metric.
func (l *Limiter) Middleware(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(network.ClientKey(r)) {
				metrics.RateLimitRejectionsTotal.WithLabelValues(endpoint).Inc()
				w.Header().Set("Retry-After", "1")
				jsonutil.Error(w, http.StatusTooManyRequests, "rate limit exceeded, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
