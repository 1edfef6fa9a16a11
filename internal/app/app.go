// Package app is the top-level assembly and initialization of the chat
// capture-and-translation service: configuration, the two capture sources
// (memory scanner and file tail watcher), the pipeline orchestrator, the
// translation cache and MT adapter, and the optional debug console and GUI
// sink. The event loop and graceful shutdown live in Runner; App just wires
// the dependency graph together.
package app

import (
	"context"
	"fmt"
	"time"

	"wct/internal/cache"
	"wct/internal/debugconsole"
	"wct/internal/detect"
	"wct/internal/infra/config"
	"wct/internal/infra/logger"
	"wct/internal/mt"
	"wct/internal/pipeline"
	"wct/internal/scanner"
	"wct/internal/sink"
	"wct/internal/status"
	"wct/internal/tail"
)

// App aggregates the service's dependencies and wires them together. It is
// responsible for:
//   - loading the JSON settings record and tracking it in a live Store,
//   - the translation cache, MT adapter, and language detector,
//   - the two capture sources and the single pipeline orchestrator they
//     both feed,
//   - the GUI sink and optional debug console,
//   - constructing a Runner, which owns the running lifecycle and shutdown.
type App struct {
	settingsStore    *config.Store
	translationCache *cache.Cache
	mtAdapter        *mt.Adapter
	detector         *detect.Detector
	statusChecker    *status.Checker

	pipe    *pipeline.Pipeline
	scan    *scanner.Scanner
	tailW   *tail.Watcher
	sinkHub *sink.Hub
	console *debugconsole.Service

	runner *Runner

	ctx  context.Context
	stop context.CancelFunc
}

// cacheCleanupInterval bounds how often the background TTL sweep runs
// against the persistent translation cache.
const cacheCleanupInterval = 1 * time.Hour

// NewApp returns an empty App shell. Init does the actual wiring.
func NewApp() *App {
	return &App{}
}

// Init wires the service together:
//  1. loads settings (§4.J) and opens the translation cache,
//  2. builds the detector and MT adapter,
//  3. constructs the Pipeline Orchestrator and its GUI sink,
//  4. builds the memory scanner and file tail watcher, both pushing into
//     the pipeline's input channel,
//  5. optionally starts the debug console,
//  6. constructs the Runner that will drive the running lifecycle.
func (a *App) Init(ctx context.Context, stop context.CancelFunc) error {
	logger.Info("wct initializing...")

	a.ctx = ctx
	a.stop = stop

	env := config.Env()

	settings, err := config.LoadSettings(env.ConfigFile)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.WowPath == "" {
		settings.WowPath = config.DiscoverWowPath()
	}
	if settings.ChatlogPath == "" {
		settings.ChatlogPath = config.DiscoverChatlogPath()
	}
	a.settingsStore = config.NewStore(settings)

	cachePath := env.DataDir + "/cache.db"
	translationCache, err := cache.Open(cachePath, cache.DefaultCapacity, 30*24*time.Hour)
	if err != nil {
		return fmt.Errorf("open translation cache: %w", err)
	}
	a.translationCache = translationCache

	a.detector = detect.New(settings.OwnLanguage)

	httpClient := mt.NewDefaultHTTPClient("https://api-free.deepl.com", settings.DeepLAPIKey)
	a.mtAdapter = mt.New(httpClient, 5)

	a.statusChecker = status.New()
	a.sinkHub = sink.New(a.statusChecker)

	a.pipe = pipeline.New(a.detector, a.translationCache, a.mtAdapter, settings, a.sinkHub.Broadcast)

	a.scan = scanner.New(scanner.NewProcessReader(), scanner.DefaultCandidateProcessNames, a.pipe.PushLine)
	a.scan.SetStatus(a.statusChecker)

	a.tailW = tail.New(settings.ChatlogPath, a.pipe.PushLine)

	if settings.ShowDebugConsole {
		logger.EnableFileSink(logger.FileSinkOptions{
			Path:       env.DataDir + "/wct.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 14,
		})
		a.console = debugconsole.New(a.statusChecker, a.translationCache, a.stop)
	}

	a.runner = NewRunner(a.ctx, a.stop, a.settingsStore, a.pipe, a.scan, a.tailW, a.sinkHub, a.translationCache, a.mtAdapter, a.console, env.ConfigFile)

	return nil
}

// Run delegates to the Runner's main loop. It blocks until the context
// passed to Init is canceled.
func (a *App) Run() error {
	return a.runner.Run()
}
