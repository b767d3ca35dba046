// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"log"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/GhostCutAI/GhostLocal/pkg/logging"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator"
)

// runServe starts the daemon in the foreground. It is the flag-driven
// sibling of cmd/ghostd, which reads everything from the environment.
func runServe(cmd *cobra.Command, args []string) {
	port := cliConfig.Port
	if cmd.Flags().Changed("port") {
		port, _ = cmd.Flags().GetInt("port")
	}
	backend := cliConfig.LLMBackend
	if cmd.Flags().Changed("llm-backend") {
		backend, _ = cmd.Flags().GetString("llm-backend")
	}
	dataDir := cliConfig.DataDir
	if cmd.Flags().Changed("data-dir") {
		dataDir, _ = cmd.Flags().GetString("data-dir")
	}
	videoRoot := cliConfig.VideoRoot
	if cmd.Flags().Changed("video-root") {
		videoRoot, _ = cmd.Flags().GetString("video-root")
	}
	metrics, _ := cmd.Flags().GetBool("metrics")

	cfg := orchestrator.Config{
		Port:          port,
		LLMBackend:    backend,
		DataDir:       dataDir,
		VideoRoot:     videoRoot,
		EnableMetrics: metrics,
	}

	// Foreground serve keeps human-readable stderr output. The ghostd
	// binary is the one that logs JSON and writes log files.
	logger := logging.New(logging.Config{Level: logging.LevelInfo, Service: "ghost"})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	slog.Info("Starting GhostCut daemon from CLI",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
	)

	svc, err := orchestrator.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}
	if err := svc.Run(); err != nil {
		log.Fatalf("Daemon error: %v", err)
	}
}
