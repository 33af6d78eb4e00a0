// internal/app/system/rendercache/policy.go
package rendercache

import (
	"fmt"
	"time"
)

// Kind names how long a rendered page may be served from the store.
type Kind string

const (
	KindStatic        Kind = "static"
	KindTTL           Kind = "ttl"
	KindRequestScoped Kind = "request-scoped"
	KindOnDemand      Kind = "on-demand"
)

// Policy is attached to a route and decides whether a stored Entry may
// answer a request.
type Policy struct {
	Kind Kind          `json:"kind"`
	TTL  time.Duration `json:"ttl,omitempty"`
}

// Static pages render on first request and stay until invalidated.
func Static() Policy { return Policy{Kind: KindStatic} }

// TTL pages are fresh while their age is at most d. A stale entry is
// re-rendered synchronously by the next request.
func TTL(d time.Duration) Policy { return Policy{Kind: KindTTL, TTL: d} }

// RequestScoped pages are rendered for every request and never stored.
func RequestScoped() Policy { return Policy{Kind: KindRequestScoped} }

// OnDemand pages stay until the revalidation gateway drops them.
func OnDemand() Policy { return Policy{Kind: KindOnDemand} }

// Cacheable reports whether renders under p are stored at all.
func (p Policy) Cacheable() bool {
	switch p.Kind {
	case KindStatic, KindOnDemand:
		return true
	case KindTTL:
		return p.TTL > 0
	}
	return false
}

// Fresh reports whether an entry rendered at renderedAt may still be served at now.
func (p Policy) Fresh(renderedAt, now time.Time) bool {
	switch p.Kind {
	case KindStatic, KindOnDemand:
		return true
	case KindTTL:
		return now.Sub(renderedAt) <= p.TTL
	}
	return false
}

func (p Policy) String() string {
	if p.Kind == KindTTL {
		return fmt.Sprintf("ttl(%s)", p.TTL)
	}
	return string(p.Kind)
}
