// internal/app/system/rendercache/collector.go
package rendercache

import (
	"context"
	"sort"
	"sync"
)

// collector gathers what a render touched. The pipeline installs one in the
// request context; code further down records into it without knowing
// whether the response will be stored.
type collector struct {
	mu          sync.Mutex
	tags        map[string]struct{}
	uncacheable bool
}

type collectorKey struct{}

func withCollector(ctx context.Context) (context.Context, *collector) {
	c := &collector{tags: make(map[string]struct{})}
	return context.WithValue(ctx, collectorKey{}, c), c
}

func collectorFrom(ctx context.Context) *collector {
	c, _ := ctx.Value(collectorKey{}).(*collector)
	return c
}

// RecordTags attaches tags to the entry being rendered under ctx.
// Outside a pipeline render it does nothing.
func RecordTags(ctx context.Context, tags ...string) {
	c := collectorFrom(ctx)
	if c == nil {
		return
	}
	c.mu.Lock()
	for _, t := range tags {
		if t != "" {
			c.tags[t] = struct{}{}
		}
	}
	c.mu.Unlock()
}

// MarkUncacheable keeps the current render out of the store. Views built
// from fallback data call it so an outage is not pinned in the cache.
func MarkUncacheable(ctx context.Context) {
	c := collectorFrom(ctx)
	if c == nil {
		return
	}
	c.mu.Lock()
	c.uncacheable = true
	c.mu.Unlock()
}

func (c *collector) snapshot() (tags []string, uncacheable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tags = make([]string, 0, len(c.tags))
	for t := range c.tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, c.uncacheable
}
