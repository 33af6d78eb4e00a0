// internal/app/system/rendercache/pipeline.go
package rendercache

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CacheStatus is reported to clients in the X-Cache header.
type CacheStatus string

const (
	Hit    CacheStatus = "HIT"
	Miss   CacheStatus = "MISS"
	Bypass CacheStatus = "BYPASS"
)

// Result is one response produced by the pipeline.
type Result struct {
	Body   []byte
	Status int
	Header http.Header
	Cache  CacheStatus
	// Policy is the policy actually applied, after draft mode downgrades.
	Policy Policy
}

// Pipeline serves routes under a Policy, storing renders in a Store.
type Pipeline struct {
	store   Store
	logger  *zap.Logger
	isDraft func(*http.Request) bool
	now     func() time.Time
	group   singleflight.Group
}

// New builds a Pipeline. isDraft may be nil when draft mode is not wired.
func New(store Store, logger *zap.Logger, isDraft func(*http.Request) bool) *Pipeline {
	if isDraft == nil {
		isDraft = func(*http.Request) bool { return false }
	}
	return &Pipeline{store: store, logger: logger, isDraft: isDraft, now: time.Now}
}

// Store exposes the backing store to the revalidation gateway.
func (p *Pipeline) Store() Store { return p.store }

// renderTimeout bounds a shared render, which no longer follows the
// request that started it.
const renderTimeout = 30 * time.Second

// Render answers r under policy, rendering with h when no fresh entry exists.
// vary names the query parameters the route reads; only they reach the key.
func (p *Pipeline) Render(r *http.Request, policy Policy, h http.Handler, vary ...string) Result {
	if p.isDraft(r) || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		policy = RequestScoped()
	}
	if !policy.Cacheable() {
		res := p.render(r, h).Result
		res.Cache = Bypass
		res.Policy = policy
		metrics.RenderCacheTotal.WithLabelValues(string(policy.Kind), "bypass").Inc()
		return res
	}

	key := Key(r, vary...)
	e, ok, err := p.store.Get(r.Context(), key)
	if err != nil {
		p.logger.Warn("render cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok && policy.Fresh(e.RenderedAt, p.now()) {
		metrics.RenderCacheTotal.WithLabelValues(string(policy.Kind), "hit").Inc()
		return resultFromEntry(e, policy)
	}

	// Concurrent misses for one key share a single render. It runs detached
	// from the first caller so that caller leaving does not fail the others.
	v, _, _ := p.group.Do(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), renderTimeout)
		defer cancel()

		gen, genErr := p.store.Generation(ctx)
		out := p.render(r.WithContext(ctx), h)
		if genErr != nil {
			p.logger.Warn("render cache generation unavailable, not storing", zap.String("key", key), zap.Error(genErr))
			return out, nil
		}
		p.maybeStore(ctx, key, r.URL.Path, policy, gen, out)
		return out, nil
	})
	res := v.(renderOutcome).Result
	res.Cache = Miss
	res.Policy = policy
	metrics.RenderCacheTotal.WithLabelValues(string(policy.Kind), "miss").Inc()
	return res
}

// renderOutcome carries the collector verdict along with the result so the
// singleflight closure can decide storage once.
type renderOutcome struct {
	Result
	tags        []string
	uncacheable bool
}

func (p *Pipeline) render(r *http.Request, h http.Handler) renderOutcome {
	ctx, col := withCollector(r.Context())
	cw := newCaptureWriter()
	h.ServeHTTP(cw, r.WithContext(ctx))
	tags, uncacheable := col.snapshot()
	return renderOutcome{
		Result: Result{
			Body:   cw.buf.Bytes(),
			Status: cw.status(),
			Header: cw.header,
		},
		tags:        tags,
		uncacheable: uncacheable,
	}
}

// maybeStore writes out unless it failed, opted out, or an invalidation
// happened after generation gen was read.
func (p *Pipeline) maybeStore(ctx context.Context, key, path string, policy Policy, gen uint64, out renderOutcome) {
	if out.Status != http.StatusOK || out.uncacheable {
		return
	}
	e := Entry{
		Body:        out.Body,
		Status:      out.Status,
		ContentType: out.Header.Get("Content-Type"),
		RenderedAt:  p.now(),
		Policy:      policy,
		Tags:        append([]string{PathTag(path)}, out.tags...),
	}
	stored, err := p.store.SetIfUnchanged(ctx, key, e, gen)
	if err != nil {
		p.logger.Warn("render cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	if !stored {
		p.logger.Debug("render superseded by invalidation, not stored", zap.String("key", key))
	}
}

func resultFromEntry(e Entry, policy Policy) Result {
	h := make(http.Header)
	if e.ContentType != "" {
		h.Set("Content-Type", e.ContentType)
	}
	return Result{Body: e.Body, Status: e.Status, Header: h, Cache: Hit, Policy: policy}
}

// Handler mounts h behind the pipeline with the given policy. vary lists
// the query parameters h reads.
func (p *Pipeline) Handler(policy Policy, h http.Handler, vary ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := p.Render(r, policy, h, vary...)
		res.Write(w, r)
	})
}

// HandlerFunc is Handler for a plain function.
func (p *Pipeline) HandlerFunc(policy Policy, fn http.HandlerFunc, vary ...string) http.Handler {
	return p.Handler(policy, fn, vary...)
}

// Write copies the result to w with cache headers.
func (res Result) Write(w http.ResponseWriter, r *http.Request) {
	dst := w.Header()
	for k, vv := range res.Header {
		dst[k] = append([]string(nil), vv...)
	}
	dst.Set("X-Cache", string(res.Cache))
	if res.Cache == Bypass {
		dst.Set("Cache-Control", "private, no-store")
	} else {
		dst.Set("Cache-Control", "public, max-age=0, must-revalidate")
	}
	dst.Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.WriteHeader(res.Status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(res.Body)
	}
}

// captureWriter buffers a handler's response so it can be stored.
type captureWriter struct {
	header http.Header
	buf    bytes.Buffer
	code   int
}

func newCaptureWriter() *captureWriter {
	return &captureWriter{header: make(http.Header)}
}

func (c *captureWriter) Header() http.Header { return c.header }

func (c *captureWriter) WriteHeader(code int) {
	if c.code == 0 {
		c.code = code
	}
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.code == 0 {
		c.code = http.StatusOK
	}
	return c.buf.Write(b)
}

func (c *captureWriter) status() int {
	if c.code == 0 {
		return http.StatusOK
	}
	return c.code
}
