// internal/app/system/engagement/boost.go
package engagement

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dalemusser/stratatour/internal/app/system/cmsquery"
	"github.com/dalemusser/stratatour/internal/app/system/settle"
	"github.com/dalemusser/stratatour/internal/domain/models"
)

// Boost defaults.
const (
	DefaultCooldown        = 30 * time.Minute
	DefaultSkipProbability = 0.5
)

// Skip reasons reported to the caller.
const (
	ReasonCooldown = "cooldown"
	ReasonChance   = "chance"
	ReasonNoTours  = "no_tours"
)

// ErrAllFailed is returned when every selected tour failed to update.
var ErrAllFailed = errors.New("boost: every update failed")

// BoostResult reports one boost attempt.
type BoostResult struct {
	Boosted []string `json:"boosted"`
	Skipped bool     `json:"skipped"`
	Reason  string   `json:"reason,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Booster nudges booking and review counters of random published tours so
// the catalog shows some activity between real bookings.
type Booster struct {
	counter  Counter
	cooldown time.Duration
	skipProb float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBooster returns a Booster. Non-positive cooldown and out-of-range skip
// probability fall back to the defaults.
func NewBooster(c Counter, cooldown time.Duration, skipProb float64) *Booster {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if skipProb < 0 || skipProb > 1 {
		skipProb = DefaultSkipProbability
	}
	return &Booster{
		counter:  c,
		cooldown: cooldown,
		skipProb: skipProb,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
	}
}

// Cooldown returns the per-viewer wait between boosts.
func (b *Booster) Cooldown() time.Duration { return b.cooldown }

func (b *Booster) intN(n int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.IntN(n)
}

func (b *Booster) float() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64()
}

// Gate decides whether a viewer whose last boost was at last may boost
// now. It returns the skip reason, or "" to proceed.
func (b *Booster) Gate(now, last time.Time) string {
	if !last.IsZero() && now.Sub(last) < b.cooldown {
		return ReasonCooldown
	}
	if b.float() < b.skipProb {
		return ReasonChance
	}
	return ""
}

// Boost picks one or two published tours and adds 1-3 bookings and 0-1
// reviews to each. Updates run with settle-all semantics.
func (b *Booster) Boost(ctx context.Context) (BoostResult, error) {
	q := cmsquery.Query{Page: 1, PageSize: cmsquery.MaxPageSize}.
		Select("documentId", "slug", "reviewCount", "bookingCount")
	tours, _, err := b.counter.Tours(ctx, q)
	if err != nil {
		return BoostResult{}, err
	}
	if len(tours) == 0 {
		return BoostResult{Skipped: true, Reason: ReasonNoTours}, nil
	}

	picked := b.pick(tours, 1+b.intN(2))
	res := settle.Each(ctx, picked, 2, func(t models.Tour) string { return t.Slug },
		func(ctx context.Context, t models.Tour) error {
			delta := models.Counts{BookingCount: 1 + b.intN(3), ReviewCount: b.intN(2)}
			return b.counter.UpdateTourCounts(ctx, t.DocumentID, t.Counts().Add(delta))
		})

	out := BoostResult{Boosted: res.Succeeded, Failed: res.Messages()}
	if out.Boosted == nil {
		out.Boosted = []string{}
	}
	if len(res.Succeeded) == 0 {
		return out, errors.Join(ErrAllFailed, res.Err())
	}
	return out, nil
}

// pick returns n distinct tours (or all of them when there are fewer).
func (b *Booster) pick(tours []models.Tour, n int) []models.Tour {
	if n >= len(tours) {
		return tours
	}
	idx := make([]int, len(tours))
	for i := range idx {
		idx[i] = i
	}
	b.mu.Lock()
	b.rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	b.mu.Unlock()
	out := make([]models.Tour, 0, n)
	for _, i := range idx[:n] {
		out = append(out, tours[i])
	}
	return out
}
