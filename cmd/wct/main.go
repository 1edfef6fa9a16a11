// Package main is the CLI entry point for wct: it parses flags, loads
// configuration, sets up logging, and arranges a graceful shutdown on
// system signals (Ctrl+C/SIGTERM). Its only job is to initialize App and
// hand it control.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wct/internal/app"
	"wct/internal/infra/config"
	"wct/internal/infra/logger"
	"wct/internal/infra/pr"
)

// main brings up the environment, starts the application, and blocks until
// shutdown. Order:
//  1. bootstrap: redirect stdout/stderr into pr, a bare log with a time
//     prefix before the structured logger exists,
//  2. flags/env: path to the .env file,
//  3. config: load and surface warnings,
//  4. logger: set level and redirect output through pr,
//  5. signals: a context canceled on Ctrl+C/SIGTERM,
//  6. app: Init(ctx, stop) then Run().
func main() {
	log.SetFlags(0)
	log.SetPrefix(time.Now().Format("2006-01-02 15:04:05 "))
	if err := pr.Init(); err != nil {
		log.Fatalf("failed to assign stdout/stderr: %v", err)
	}

	envPath := flag.String("env", "assets/.env", "path to .env file")
	flag.Parse()

	if err := config.Load(*envPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(config.Env().LogLevel)
	logger.SetWriters(pr.Stdout(), pr.Stderr())
	for _, msg := range config.Warnings() {
		logger.Warn(msg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := app.NewApp()
	if err := a.Init(ctx, stop); err != nil {
		stop()
		log.Fatalf("app init failed: %v", err)
	}

	if err := a.Run(); err != nil {
		stop()
		log.Fatalf("app run failed: %v", err)
	}
	stop()
	log.Println("graceful shutdown complete")
}
