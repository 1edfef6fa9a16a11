// Package app implements the top-level lifecycle management of the chat
// capture-and-translation service. This file, runner.go, is the
// orchestration point: it starts services in the right order, serves the
// GUI sink, and organizes a clean shutdown so in-flight MT calls and cache
// writes get a chance to finish before the process exits.
package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"wct/internal/cache"
	"wct/internal/debugconsole"
	"wct/internal/infra/config"
	"wct/internal/infra/logger"
	"wct/internal/mt"
	"wct/internal/pipeline"
	"wct/internal/scanner"
	"wct/internal/sink"
	"wct/internal/tail"
)

// Runner encapsulates the startup/shutdown choreography for the capture
// sources, the pipeline orchestrator, the GUI sink's HTTP server, the
// optional debug console, and the background cache-cleanup sweep.
type Runner struct {
	settingsStore    *config.Store
	pipe             *pipeline.Pipeline
	scan             *scanner.Scanner
	tailW            *tail.Watcher
	sinkHub          *sink.Hub
	translationCache *cache.Cache
	mtAdapter        *mt.Adapter
	console          *debugconsole.Service
	configPath       string

	mainCtx    context.Context
	mainCancel context.CancelFunc

	httpSrv *http.Server
}

const (
	sinkShutdownTimeout = 5 * time.Second
)

// NewRunner prepares a Runner with the already-wired dependencies from
// App.Init. It does not start anything; that happens in Run.
func NewRunner(
	mainCtx context.Context,
	mainCancel context.CancelFunc,
	settingsStore *config.Store,
	pipe *pipeline.Pipeline,
	scan *scanner.Scanner,
	tailW *tail.Watcher,
	sinkHub *sink.Hub,
	translationCache *cache.Cache,
	mtAdapter *mt.Adapter,
	console *debugconsole.Service,
	configPath string,
) *Runner {
	return &Runner{
		mainCtx:          mainCtx,
		mainCancel:       mainCancel,
		settingsStore:    settingsStore,
		pipe:             pipe,
		scan:             scan,
		tailW:            tailW,
		sinkHub:          sinkHub,
		translationCache: translationCache,
		mtAdapter:        mtAdapter,
		console:          console,
		configPath:       configPath,
	}
}

// Run is the main loop: it starts every service in dependency order, then
// blocks until the context passed to Init is canceled (Ctrl+C/SIGTERM),
// running the mirrored shutdown before returning.
func (r *Runner) Run() error {
	logger.Info("wct running...")

	r.startAllServices()

	<-r.mainCtx.Done()
	logger.Debug("shutdown signal received, stopping runner...")
	r.stopAllServices()

	logger.Info("wct shutdown complete")
	return nil
}

func (r *Runner) startAllServices() {
	// pipeline orchestrator: must be running before either capture source
	// can push a line into it.
	logger.Debug("starting service pipeline")
	go r.pipe.Run(r.mainCtx)
	logger.Debug("service pipeline started")

	// GUI sink HTTP server.
	logger.Debug("starting service sink")
	mux := http.NewServeMux()
	mux.Handle("/ws", r.sinkHub)
	r.httpSrv = &http.Server{Addr: config.Env().SinkAddr, Handler: mux}
	go func() {
		if err := r.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("sink server error", zap.Error(err))
		}
	}()
	logger.Debug("service sink started")

	// memory scanner
	logger.Debug("starting service scanner")
	go r.scan.Run(r.mainCtx)
	logger.Debug("service scanner started")

	// file tail watcher
	logger.Debug("starting service tail")
	r.tailW.Start(r.mainCtx)
	logger.Debug("service tail started")

	// config hot-reload watcher (§4.K)
	logger.Debug("starting service config watch")
	go r.watchConfig(r.mainCtx)
	logger.Debug("service config watch started")

	// cache TTL cleanup sweep
	logger.Debug("starting service cache cleanup")
	go r.cleanupCacheLoop(r.mainCtx)
	logger.Debug("service cache cleanup started")

	// debug console (only built when show_debug_console is set)
	if r.console != nil {
		logger.Debug("starting service debug console")
		r.console.Start(r.mainCtx)
		logger.Debug("service debug console started")
	}
}

func (r *Runner) stopAllServices() {
	// Stop in roughly the reverse order services were started.

	if r.console != nil {
		logger.Debug("stopping service debug console")
		r.console.Stop()
		logger.Debug("service debug console stopped")
	}

	logger.Debug("stopping service tail")
	r.tailW.Stop()
	logger.Debug("service tail stopped")

	logger.Debug("stopping service scanner")
	r.scan.Stop()
	logger.Debug("service scanner stopped")

	logger.Debug("stopping service sink")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), sinkShutdownTimeout)
	defer cancel()
	if err := r.httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to stop sink server", zap.Error(err))
	}
	logger.Debug("service sink stopped")

	logger.Debug("stopping service pipeline")
	r.pipe.Stop()
	logger.Debug("service pipeline stopped")

	logger.Debug("stopping service translation cache")
	if err := r.translationCache.Close(); err != nil {
		logger.Error("failed to close translation cache", zap.Error(err))
	}
	logger.Debug("service translation cache stopped")

	r.mtAdapter.Close()
}

// watchConfig reloads settings on every debounced file-change notification
// from config.Watch and pushes the result into the pipeline atomically,
// implementing §4.K hot reconfigure.
func (r *Runner) watchConfig(ctx context.Context) {
	changes := config.Watch(ctx, r.configPath)
	for range changes {
		next, err := config.LoadSettings(r.configPath)
		if err != nil {
			logger.Warn("config watch: reload failed", zap.Error(err))
			continue
		}
		r.settingsStore.Update(next)
		r.pipe.PushConfigUpdate(next)
		logger.Debug("config watch: settings reloaded")
	}
}

func (r *Runner) cleanupCacheLoop(ctx context.Context) {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := r.translationCache.Cleanup()
			if err != nil {
				logger.Warn("cache cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("cache cleanup removed expired entries", zap.Int("count", removed))
			}
		}
	}
}
