// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command ghostd starts the GhostLocal editor daemon.
//
// This is the headless entry point: it reads configuration from
// environment variables and serves the HTTP/websocket API the desktop
// UI and the ghost CLI talk to.
//
// # Environment Variables
//
//   - GHOST_PORT: HTTP server port (default: 12210)
//   - GHOST_LLM_BACKEND: LLM provider - ollama, openai (default: ollama)
//   - GHOST_DATA_DIR: state root for preferences, artifacts, history (default: ~/.ghostcut)
//   - GHOST_VIDEO_ROOT: uploads/exports root (default: <data dir>/media)
//   - GHOST_GENERATION_TIMEOUT_S: model call timeout in seconds (default: 60)
//   - GHOST_CONFIDENCE_THRESHOLD: plan admission cutoff (default: 0.6)
//   - GHOST_ENABLE_METRICS: expose Prometheus collectors (default: true)
//   - GHOST_LOG_LEVEL: debug, info, warn, error (default: info)
//   - GHOST_LOG_DIR: log file directory (default: <data dir>/logs)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: localhost:4317)
//
// # Usage
//
//	# Build
//	go build -o ghostd ./cmd/ghostd
//
//	# Run
//	./ghostd
package main

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GhostCutAI/GhostLocal/pkg/logging"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
)

func main() {
	// Build configuration from environment variables
	cfg := orchestrator.Config{
		Port:                getEnvInt("GHOST_PORT", 12210),
		LLMBackend:          getEnvString("GHOST_LLM_BACKEND", "ollama"),
		DataDir:             os.Getenv("GHOST_DATA_DIR"),
		VideoRoot:           os.Getenv("GHOST_VIDEO_ROOT"),
		OTelEndpoint:        getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		GenerationTimeout:   time.Duration(getEnvInt("GHOST_GENERATION_TIMEOUT_S", 60)) * time.Second,
		ConfidenceThreshold: getEnvFloat("GHOST_CONFIDENCE_THRESHOLD", 0),
		EnableMetrics:       getEnvBool("GHOST_ENABLE_METRICS", true),
	}

	// Structured logging: JSON on stderr plus a daily file under the
	// data dir, so crashes leave a trail even when stderr is lost.
	logger := logging.New(logging.Config{
		Level:   parseLogLevel(getEnvString("GHOST_LOG_LEVEL", "info")),
		LogDir:  resolveLogDir(cfg.DataDir),
		Service: "ghostd",
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	slog.Info("Starting ghostd",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
	)

	// Create the daemon with default (no-op) extension options.
	// Enterprise builds pass custom ServiceOptions here.
	svc, err := orchestrator.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}
}

// resolveLogDir picks the log file directory: GHOST_LOG_DIR wins,
// otherwise logs/ under the data dir. Empty disables the file sink.
func resolveLogDir(dataDir string) string {
	if dir := os.Getenv("GHOST_LOG_DIR"); dir != "" {
		return dir
	}
	if dataDir == "" {
		var err error
		dataDir, err = preferences.DefaultDir()
		if err != nil {
			return ""
		}
	}
	return filepath.Join(dataDir, "logs")
}

// parseLogLevel maps the GHOST_LOG_LEVEL value to a logging.Level,
// defaulting to Info for anything unrecognized.
func parseLogLevel(s string) logging.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns the environment variable as float64 or a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
