// Package debugconsole is the optional local REPL gated by the config's
// show_debug_console flag (§4.J). It prints scanner/cache/status snapshots
// on demand instead of requiring a GUI to inspect the running pipeline.
// Structurally grounded on the teacher's internal/adapters/cli: a readline
// loop (via internal/infra/pr), a command registry rendered into help text,
// and idempotent Start/Stop lifecycle methods.
package debugconsole

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"wct/internal/cache"
	"wct/internal/infra/logger"
	"wct/internal/infra/pr"
	"wct/internal/status"
)

type commandDescriptor struct {
	name        string
	description string
}

var commandDescriptors = []commandDescriptor{
	{name: "help", description: "Show available commands with short descriptions"},
	{name: "status", description: "Show the scanner attachment state"},
	{name: "cache", description: "Show translation cache stats and run TTL cleanup"},
	{name: "exit", description: "Stop the debug console and terminate the service"},
}

// Service owns the readline loop and the snapshot sources it reports on.
// Start/Stop are idempotent, matching the teacher's CLI service discipline.
type Service struct {
	checker *status.Checker
	cache   *cache.Cache
	stopApp context.CancelFunc

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	onceStart sync.Once
	onceStop  sync.Once
}

// New builds a debug console Service. checker and translationCache may be
// nil; the corresponding commands then report unavailability instead of
// panicking. stopApp is invoked by "exit"; a Readline error (EOF or Ctrl-C)
// only ends the console loop and leaves the app running.
func New(checker *status.Checker, translationCache *cache.Cache, stopApp context.CancelFunc) *Service {
	return &Service{checker: checker, cache: translationCache, stopApp: stopApp}
}

// Start launches the console's read loop on its own goroutine. Repeated
// calls are safely ignored.
func (s *Service) Start(ctx context.Context) {
	s.onceStart.Do(func() {
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run(runCtx)
		}()
	})
}

// Stop interrupts the readline loop, cancels the local context, and waits
// for the run loop to exit.
func (s *Service) Stop() {
	s.onceStop.Do(func() {
		if rl := pr.Rl(); rl != nil {
			pr.InterruptReadline()
		}
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

func (s *Service) run(ctx context.Context) {
	logger.Debug("debug console: started")
	pr.SetPrompt("wct> ")
	pr.Println("Debug console started. Enter commands:", joinCommandNames(commandDescriptors))
	pr.Println("Type 'help' for detailed descriptions.")

	defer func() {
		if rl := pr.Rl(); rl != nil {
			_ = rl.Close()
		}
	}()

	for {
		if ctx.Err() != nil {
			logger.Debug("debug console: context canceled")
			return
		}

		line, err := pr.Rl().Readline()
		if err != nil {
			logger.Debug("debug console: deactivated (EOF)")
			return
		}

		if s.handleCommand(strings.TrimSpace(line)) {
			return
		}
	}
}

// handleCommand returns true when the console should exit.
func (s *Service) handleCommand(cmd string) bool {
	switch cmd {
	case "help":
		s.printHelp()
	case "status":
		s.printStatus()
	case "cache":
		s.printCacheStats()
	case "exit":
		if s.stopApp != nil {
			s.stopApp()
		}
		return true
	case "":
		// ignore
	default:
		pr.Println("unknown command:", cmd)
	}
	return false
}

func (s *Service) printHelp() {
	pr.Println("Available commands:")
	for _, d := range commandDescriptors {
		pr.Printf("  %-8s - %s\n", d.name, d.description)
	}
}

func (s *Service) printStatus() {
	if s.checker == nil {
		pr.ErrPrintln("status checker is not available")
		return
	}
	pr.Println("Scanner state:", s.checker.Snapshot())
}

func (s *Service) printCacheStats() {
	if s.cache == nil {
		pr.ErrPrintln("translation cache is not available")
		return
	}
	start := time.Now()
	removed, err := s.cache.Cleanup()
	if err != nil {
		pr.ErrPrintln("cache cleanup error:", err)
		return
	}
	pr.Println(fmt.Sprintf("Cache cleanup removed %d expired entries in %s", removed, time.Since(start).Round(time.Millisecond)))
}

func joinCommandNames(descriptors []commandDescriptor) string {
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.name)
	}
	return strings.Join(names, ", ")
}
