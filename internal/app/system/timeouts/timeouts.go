// Package timeouts holds the deadlines used for store calls, content API
// calls, and gateway fan-outs.
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
	DefaultBatch  = 60 * time.Second

	// Content client deadlines: short in development so a stopped CMS shows
	// up quickly, generous in production where cold starts are slow.
	DefaultContentDev  = 5 * time.Second
	DefaultContentProd = 30 * time.Second
)

var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
	batch  = DefaultBatch
)

func read(v *time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return *v
}

// Ping is for health checks.
func Ping() time.Duration { return read(&ping) }

// Short is for single-document reads and writes.
func Short() time.Duration { return read(&short) }

// Medium is for list queries and settle-all invalidation.
func Medium() time.Duration { return read(&medium) }

// Long is for startup work such as index creation and seeding.
func Long() time.Duration { return read(&long) }

// Batch is for cache warming and other whole-catalog operations.
func Batch() time.Duration { return read(&batch) }

// ContentClient returns the content API deadline for env ("dev" or "prod").
// A positive override wins.
func ContentClient(env string, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if env == "prod" {
		return DefaultContentProd
	}
	return DefaultContentDev
}

// Config holds timeout configuration values.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
	Batch  time.Duration
}

// Configure sets custom timeout values. Zero fields keep their current value.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	for _, s := range []struct {
		dst *time.Duration
		v   time.Duration
	}{
		{&ping, cfg.Ping}, {&short, cfg.Short}, {&medium, cfg.Medium}, {&long, cfg.Long}, {&batch, cfg.Batch},
	} {
		if s.v > 0 {
			*s.dst = s.v
		}
	}
}

// Reset restores all timeouts to defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping, short, medium, long, batch = DefaultPing, DefaultShort, DefaultMedium, DefaultLong, DefaultBatch
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM,
// TIMEOUT_LONG and TIMEOUT_BATCH (Go durations) and returns how many were
// applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0
	for _, s := range []struct {
		env string
		dst *time.Duration
	}{
		{"TIMEOUT_PING", &ping},
		{"TIMEOUT_SHORT", &short},
		{"TIMEOUT_MEDIUM", &medium},
		{"TIMEOUT_LONG", &long},
		{"TIMEOUT_BATCH", &batch},
	} {
		v := os.Getenv(s.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*s.dst = d
			configured++
		}
	}
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Short: short, Medium: medium, Long: long, Batch: batch}
}

// WithTimeout creates a context with timeout and logs when the deadline
// was what ended the operation.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
