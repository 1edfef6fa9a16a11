// Package config owns the two tiers of configuration this application
// reads:
//  1. EnvConfig — a handful of operational knobs loaded from .env via
//     godotenv, read once at process start (log level, data directory,
//     override path to the user-editable settings file).
//  2. Config — the user-editable JSON settings record (§4.J/§6): DeepL key,
//     paths, UI language, hotkeys, enabled channels. See settings.go,
//     paths.go, watch.go.
//
// NB: EnvConfig values already go through minimal validation/normalization
// in loadConfig. Call sites may assume an EnvConfig is internally consistent.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// EnvConfig is the set of operational knobs that do not belong in the
// user-editable settings JSON.
type EnvConfig struct {
	LogLevel   string
	DataDir    string
	ConfigFile string
	// SinkAddr is the listen address for the GUI sink's websocket endpoint.
	SinkAddr string
}

// Config holds the environment-level configuration singleton.
//
// Thread safety: public getters take an RLock. There is currently no
// mutation path for EnvConfig after Load (it is read once at startup), but
// the mutex is kept so a future reload story doesn't need a new type.
type Config struct {
	Env      EnvConfig
	warnings []string
	mu       sync.RWMutex
}

const (
	defaultLogLevel   = "info"
	defaultDataDir    = "data"
	defaultConfigFile = "wct_config.json"
	defaultSinkAddr   = ":8765"
)

var (
	cfgInstance *Config
	cfgDone     bool
)

// Load is the entry point for initializing the global environment config.
// On first call it reads .env (a missing file is not an error — godotenv
// treats absent files as "nothing to overlay"), builds EnvConfig, and
// latches the result into the singleton. Repeat calls return an error to
// avoid racing config on startup.
func Load(envPath string) error {
	if cfgDone {
		return errors.New("config already loaded")
	}
	if cfgInstance == nil {
		cfgInstance = &Config{}
	}
	cfgInstance.mu.Lock()
	defer cfgInstance.mu.Unlock()
	newCfg, err := loadConfig(envPath)
	cfgInstance = newCfg
	cfgDone = true
	return err
}

// loadConfig performs the actual load/validation without touching global
// state, so tests can build a throwaway Config and inspect it.
func loadConfig(envPath string) (*Config, error) {
	_ = godotenv.Load(envPath) // missing .env is fine; env vars may be set directly

	var warnings []string

	logLevel := sanitizeLogLevel(os.Getenv("WCT_LOG_LEVEL"), &warnings)
	dataDir := sanitizeFile("WCT_DATA_DIR", os.Getenv("WCT_DATA_DIR"), defaultDataDir, &warnings)
	configFile := sanitizeFile("WCT_CONFIG_FILE", os.Getenv("WCT_CONFIG_FILE"), defaultConfigFile, &warnings)
	sinkAddr := sanitizeFile("WCT_SINK_ADDR", os.Getenv("WCT_SINK_ADDR"), defaultSinkAddr, &warnings)

	env := EnvConfig{
		LogLevel:   logLevel,
		DataDir:    dataDir,
		ConfigFile: configFile,
		SinkAddr:   sinkAddr,
	}

	return &Config{Env: env, warnings: warnings}, nil
}

// Warnings returns the warnings accumulated while loading .env (e.g. when a
// default was substituted). Returns a copy.
func Warnings() []string {
	cfgInstance.mu.RLock()
	defer cfgInstance.mu.RUnlock()
	result := make([]string, len(cfgInstance.warnings))
	copy(result, cfgInstance.warnings)
	return result
}

// Env returns the EnvConfig from the global singleton: an immutable
// snapshot as of the last Load.
func Env() EnvConfig {
	return cfgInstance.Env
}

// appendWarningf accumulates a warning about an invalid/missing environment
// variable. Surfaced later via Warnings().
func appendWarningf(warnings *[]string, format string, args ...any) {
	if warnings == nil {
		return
	}
	*warnings = append(*warnings, fmt.Sprintf(format, args...))
}

// sanitizeLogLevel normalizes WCT_LOG_LEVEL and restricts it to
// {debug, info, warn, error}. Anything else becomes defaultLogLevel.
func sanitizeLogLevel(level string, warnings *[]string) string {
	lvl := strings.ToLower(strings.TrimSpace(level))
	if lvl == "" {
		return defaultLogLevel
	}
	switch lvl {
	case "debug", "info", "warn", "error":
		return lvl
	default:
		appendWarningf(warnings, "env WCT_LOG_LEVEL value %q is invalid; using default %q", level, defaultLogLevel)
		return defaultLogLevel
	}
}

// sanitizeFile returns a valid path value, substituting fallback when the
// environment left it unset.
func sanitizeFile(name, value, fallback string, warnings *[]string) string {
	v := strings.TrimSpace(value)
	if v != "" {
		return v
	}
	appendWarningf(warnings, "env %s is not set; using default %q", name, fallback)
	return fallback
}
