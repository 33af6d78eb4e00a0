// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratatour/internal/app/resources"
	"github.com/dalemusser/stratatour/internal/app/system/rendercache"
	"github.com/dalemusser/stratatour/internal/app/system/tasks"
	"github.com/dalemusser/stratatour/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after backends and schema are ready, before the HTTP
// handler is built. It registers the shared templates and starts the
// background jobs this role needs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers and starts the background jobs.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	if deps.Content != nil && appCfg.KeepaliveInterval > 0 {
		taskRunner.Register(tasks.KeepaliveJob(deps.Content, appCfg.KeepaliveInterval, timeouts.Short(), logger))
	}

	// Only the memory store needs sweeping.
	if mem, ok := deps.RenderStore.(*rendercache.MemoryStore); ok && appCfg.CacheSweep > 0 {
		taskRunner.Register(tasks.RenderCacheSweepJob(mem, appCfg.CacheSweep, logger))
	}

	if len(taskRunner.Names()) == 0 {
		logger.Debug("no background jobs configured")
	}
	taskRunner.Start()
}
