package rendercache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// countingHandler renders "render #n" and counts invocations.
func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, "render #%d", n)
	})
}

func newTestPipeline(draft bool) (*Pipeline, *MemoryStore, *time.Time) {
	store := NewMemoryStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := New(store, zap.NewNop(), func(*http.Request) bool { return draft })
	p.now = func() time.Time { return now }
	return p, store, &now
}

func TestRender_TTLHitThenStale(t *testing.T) {
	p, _, now := newTestPipeline(false)
	var calls int32
	h := countingHandler(&calls, http.StatusOK)
	policy := TTL(300 * time.Second)

	first := p.Render(httptest.NewRequest("GET", "/tour/ha-long", nil), policy, h)
	if first.Cache != Miss {
		t.Fatalf("first request cache = %s, want MISS", first.Cache)
	}

	*now = now.Add(300 * time.Second)
	second := p.Render(httptest.NewRequest("GET", "/tour/ha-long", nil), policy, h)
	if second.Cache != Hit {
		t.Errorf("request at age == ttl cache = %s, want HIT", second.Cache)
	}
	if string(second.Body) != "render #1" {
		t.Errorf("hit body = %q, want first render", second.Body)
	}

	*now = now.Add(time.Second)
	third := p.Render(httptest.NewRequest("GET", "/tour/ha-long", nil), policy, h)
	if third.Cache != Miss {
		t.Errorf("request after ttl cache = %s, want MISS", third.Cache)
	}
	if string(third.Body) != "render #2" {
		t.Errorf("stale request body = %q, want fresh render", third.Body)
	}
}

func TestRender_StaticAndOnDemandNeverExpire(t *testing.T) {
	for _, policy := range []Policy{Static(), OnDemand()} {
		t.Run(string(policy.Kind), func(t *testing.T) {
			p, _, now := newTestPipeline(false)
			var calls int32
			h := countingHandler(&calls, http.StatusOK)

			p.Render(httptest.NewRequest("GET", "/about", nil), policy, h)
			*now = now.Add(365 * 24 * time.Hour)
			res := p.Render(httptest.NewRequest("GET", "/about", nil), policy, h)
			if res.Cache != Hit {
				t.Errorf("cache = %s, want HIT", res.Cache)
			}
			if calls != 1 {
				t.Errorf("handler calls = %d, want 1", calls)
			}
		})
	}
}

func TestRender_RequestScopedNeverStored(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	var calls int32
	h := countingHandler(&calls, http.StatusOK)

	for i := 0; i < 3; i++ {
		res := p.Render(httptest.NewRequest("GET", "/search?q=hue", nil), RequestScoped(), h)
		if res.Cache != Bypass {
			t.Errorf("cache = %s, want BYPASS", res.Cache)
		}
	}
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries, want 0", store.Len())
	}
}

func TestRender_DraftModeForcesRequestScoped(t *testing.T) {
	p, store, _ := newTestPipeline(true)
	var calls int32
	h := countingHandler(&calls, http.StatusOK)

	res := p.Render(httptest.NewRequest("GET", "/", nil), TTL(time.Hour), h)
	if res.Cache != Bypass {
		t.Errorf("cache = %s, want BYPASS", res.Cache)
	}
	if res.Policy.Kind != KindRequestScoped {
		t.Errorf("policy = %s, want request-scoped", res.Policy)
	}
	if store.Len() != 0 {
		t.Errorf("draft render was stored")
	}
}

func TestRender_NonOKNotStored(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	var calls int32
	h := countingHandler(&calls, http.StatusNotFound)

	p.Render(httptest.NewRequest("GET", "/tour/missing", nil), TTL(time.Hour), h)
	p.Render(httptest.NewRequest("GET", "/tour/missing", nil), TTL(time.Hour), h)
	if calls != 2 {
		t.Errorf("handler calls = %d, want 2", calls)
	}
	if store.Len() != 0 {
		t.Errorf("404 was stored")
	}
}

func TestRender_MarkUncacheable(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		MarkUncacheable(r.Context())
		_, _ = w.Write([]byte("fallback"))
	})

	res := p.Render(httptest.NewRequest("GET", "/", nil), TTL(time.Hour), h)
	if res.Status != http.StatusOK || string(res.Body) != "fallback" {
		t.Errorf("unexpected result %d %q", res.Status, res.Body)
	}
	if store.Len() != 0 {
		t.Errorf("uncacheable render was stored")
	}
}

func TestRender_RecordedTagsInvalidate(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RecordTags(r.Context(), "content", "content:tours")
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("tours"))
	})

	p.Render(httptest.NewRequest("GET", "/tours", nil), TTL(time.Hour), h)
	p.Render(httptest.NewRequest("GET", "/", nil), TTL(time.Hour), h)

	n, err := store.InvalidateTag(context.Background(), "content")
	if err != nil {
		t.Fatalf("InvalidateTag() error = %v", err)
	}
	if n != 2 {
		t.Errorf("invalidated %d entries, want 2", n)
	}
	res := p.Render(httptest.NewRequest("GET", "/tours", nil), TTL(time.Hour), h)
	if res.Cache != Miss {
		t.Errorf("cache after tag invalidation = %s, want MISS", res.Cache)
	}
}

func TestInvalidatePath_DropsEveryQueryVariant(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	var calls int32
	h := countingHandler(&calls, http.StatusOK)

	p.Render(httptest.NewRequest("GET", "/tours", nil), TTL(time.Hour), h)
	p.Render(httptest.NewRequest("GET", "/tours?page=2", nil), TTL(time.Hour), h, "page")
	p.Render(httptest.NewRequest("GET", "/", nil), TTL(time.Hour), h)

	n, err := InvalidatePath(context.Background(), store, "/tours")
	if err != nil {
		t.Fatalf("InvalidatePath() error = %v", err)
	}
	if n != 2 {
		t.Errorf("invalidated %d entries, want 2", n)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d entries, want 1", store.Len())
	}

	// idempotent
	n, err = InvalidatePath(context.Background(), store, "/tours")
	if err != nil || n != 0 {
		t.Errorf("second InvalidatePath() = %d, %v; want 0, nil", n, err)
	}
}

func TestKey(t *testing.T) {
	vary := []string{"sort", "page"}
	tests := []struct {
		target string
		want   string
	}{
		{"/tours", "/tours"},
		{"/tours?sort=price&page=2", "/tours?page=2&sort=price"},
		{"/tours?page=2&sort=price", "/tours?page=2&sort=price"},
		{"/tours?page=2&utm_source=zalo", "/tours?page=2"},
		{"/tours?fbclid=abc&x=1", "/tours"},
		{"/tours?page=", "/tours"},
	}
	for _, tt := range tests {
		if got := Key(httptest.NewRequest("GET", tt.target, nil), vary...); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
	if got := Key(httptest.NewRequest("GET", "/about?utm=1", nil)); got != "/about" {
		t.Errorf("Key() without vary = %q, want /about", got)
	}
}

func TestRender_UnlistedQueryShareOneEntry(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	var calls int32
	h := countingHandler(&calls, http.StatusOK)

	for i := 0; i < 1000; i++ {
		p.Render(httptest.NewRequest("GET", fmt.Sprintf("/categories?x=%d", i), nil), Static(), h)
	}
	if store.Len() != 1 || calls != 1 {
		t.Errorf("entries = %d, renders = %d; want 1 and 1", store.Len(), calls)
	}
}

func TestRender_InvalidationDuringRenderIsNotStored(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
		}
		fmt.Fprint(w, "about")
	})

	done := make(chan Result)
	go func() { done <- p.Render(httptest.NewRequest("GET", "/about", nil), OnDemand(), h) }()

	<-started
	if _, err := InvalidatePath(context.Background(), store, "/about"); err != nil {
		t.Fatalf("InvalidatePath() error = %v", err)
	}
	close(release)

	if res := <-done; res.Status != http.StatusOK {
		t.Fatalf("in-flight render status = %d", res.Status)
	}
	if store.Len() != 0 {
		t.Fatalf("render begun before invalidation was stored after it")
	}
	next := p.Render(httptest.NewRequest("GET", "/about", nil), OnDemand(), h)
	if next.Cache != Miss || calls != 2 {
		t.Errorf("next request cache = %s, renders = %d; want MISS and 2", next.Cache, calls)
	}
	if store.Len() != 1 {
		t.Errorf("entries = %d, want the post-invalidation render stored", store.Len())
	}
}

func TestRender_CancelledCallerDoesNotSpoilSharedRender(t *testing.T) {
	p, store, _ := newTestPipeline(false)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Context().Err() != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "home")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)

	res := p.Render(req, TTL(time.Minute), h)
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Status)
	}
	if store.Len() != 1 {
		t.Errorf("entries = %d, want the render stored", store.Len())
	}
}

func TestMemoryStore_Bounded(t *testing.T) {
	store := NewBoundedMemoryStore(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		path := fmt.Sprintf("/tour/t%d", i)
		_ = store.Set(ctx, path, Entry{Policy: Static(), Tags: []string{PathTag(path), "content"}})
	}
	if store.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", store.Len())
	}
	if _, ok, _ := store.Get(ctx, "/tour/t0"); ok {
		t.Error("oldest entry kept past the bound")
	}
	if n, _ := store.InvalidateTag(ctx, "content"); n != 3 {
		t.Errorf("content tag matched %d entries, want 3", n)
	}
	if n, _ := store.InvalidateTag(ctx, PathTag("/tour/t0")); n != 0 {
		t.Errorf("evicted entry still indexed: %d", n)
	}
}

func TestMemoryStore_SetIfUnchanged(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	gen, _ := store.Generation(ctx)
	if ok, _ := store.SetIfUnchanged(ctx, "/", Entry{Policy: Static()}, gen); !ok {
		t.Fatal("write at current generation refused")
	}
	_, _ = store.InvalidateTag(ctx, "unrelated")
	if ok, _ := store.SetIfUnchanged(ctx, "/tours", Entry{Policy: Static()}, gen); ok {
		t.Error("write at a stale generation accepted")
	}
	if next, _ := store.Generation(ctx); next != gen+1 {
		t.Errorf("Generation() = %d, want %d", next, gen+1)
	}
}

func TestHandler_Headers(t *testing.T) {
	p, _, _ := newTestPipeline(false)
	var calls int32
	h := p.Handler(TTL(time.Hour), countingHandler(&calls, http.StatusOK))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if got := rec.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("X-Cache = %q, want MISS", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if got := rec.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("X-Cache = %q, want HIT", got)
	}
	if rec.Body.String() != "render #1" {
		t.Errorf("body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	p.Handler(RequestScoped(), countingHandler(&calls, http.StatusOK)).
		ServeHTTP(rec, httptest.NewRequest("GET", "/search", nil))
	if got := rec.Header().Get("Cache-Control"); got != "private, no-store" {
		t.Errorf("Cache-Control = %q, want private, no-store", got)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (Entry, bool, error) {
	return Entry{}, false, fmt.Errorf("store down")
}
func (failingStore) Set(context.Context, string, Entry) error { return fmt.Errorf("store down") }
func (failingStore) Generation(context.Context) (uint64, error) {
	return 0, fmt.Errorf("store down")
}
func (failingStore) SetIfUnchanged(context.Context, string, Entry, uint64) (bool, error) {
	return false, fmt.Errorf("store down")
}
func (failingStore) InvalidateTag(context.Context, string) (int, error) {
	return 0, fmt.Errorf("store down")
}

func TestRender_StoreErrorsDegradeToRender(t *testing.T) {
	p := New(failingStore{}, zap.NewNop(), nil)
	var calls int32
	res := p.Render(httptest.NewRequest("GET", "/", nil), TTL(time.Hour), countingHandler(&calls, http.StatusOK))
	if res.Status != http.StatusOK || string(res.Body) != "render #1" {
		t.Errorf("unexpected result %d %q", res.Status, res.Body)
	}
}

func TestPolicy_Fresh(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		policy Policy
		age    time.Duration
		want   bool
	}{
		{"ttl within", TTL(time.Minute), 30 * time.Second, true},
		{"ttl boundary", TTL(time.Minute), time.Minute, true},
		{"ttl expired", TTL(time.Minute), time.Minute + time.Nanosecond, false},
		{"static", Static(), 1000 * time.Hour, true},
		{"on-demand", OnDemand(), 1000 * time.Hour, true},
		{"request-scoped", RequestScoped(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Fresh(base, base.Add(tt.age)); got != tt.want {
				t.Errorf("Fresh() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryStore_Sweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = store.Set(ctx, "/tours?", Entry{RenderedAt: base, Policy: TTL(time.Minute), Tags: []string{PathTag("/tours"), "content"}})
	_ = store.Set(ctx, "/categories?", Entry{RenderedAt: base, Policy: Static(), Tags: []string{PathTag("/categories"), "content"}})

	if n := store.Sweep(base.Add(time.Minute)); n != 0 {
		t.Fatalf("Sweep at age == ttl removed %d, want 0", n)
	}
	if n := store.Sweep(base.Add(2 * time.Minute)); n != 1 {
		t.Fatalf("Sweep after ttl removed %d, want 1", n)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (static entry kept)", store.Len())
	}
	if n, _ := store.InvalidateTag(ctx, PathTag("/tours")); n != 0 {
		t.Errorf("swept path tag still matched %d entries", n)
	}
	if n, _ := store.InvalidateTag(ctx, "content"); n != 1 {
		t.Errorf("content tag matched %d entries, want 1", n)
	}
}
