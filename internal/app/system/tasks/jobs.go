// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pinger is satisfied by the content client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sweeper is satisfied by rendercache.MemoryStore.
type Sweeper interface {
	Sweep(now time.Time) int
}

// KeepaliveJob pings the CMS on an interval so a host that sleeps idle
// services stays warm. It is the in-process twin of /api/cron/ping.
func KeepaliveJob(p Pinger, interval, timeout time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:        "cms-keepalive",
		Interval:    interval,
		Timeout:     timeout,
		SkipInitial: true,
		Run: func(ctx context.Context) error {
			start := time.Now()
			if err := p.Ping(ctx); err != nil {
				return err
			}
			logger.Debug("cms keepalive", zap.Duration("duration", time.Since(start)))
			return nil
		},
	}
}

// RenderCacheSweepJob evicts stale ttl entries from the in-memory render store.
func RenderCacheSweepJob(s Sweeper, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:        "render-cache-sweep",
		Interval:    interval,
		SkipInitial: true,
		Run: func(ctx context.Context) error {
			if n := s.Sweep(time.Now()); n > 0 {
				logger.Info("swept stale render entries", zap.Int("removed", n))
			}
			return ctx.Err()
		},
	}
}
