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
	"github.com/spf13/cobra"
)

// =============================================================================
// Command Definitions
// =============================================================================

var (
	rootCmd = &cobra.Command{
		Use:   "ghost",
		Short: "A CLI to drive the GhostCut local editing daemon",
		Long: `ghost controls a GhostCut daemon: start one with 'ghost serve', then
inspect the timeline, run natural-language edits, and manage preferences
from the same terminal.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the editing daemon in the foreground",
		Run:   runServe, // Defined in cmd_serve.go
	}

	stateCmd = &cobra.Command{
		Use:   "state",
		Short: "Print the current timeline state",
		Run:   runState, // Defined in cmd_timeline.go
	}

	editCmd = &cobra.Command{
		Use:   "edit [instruction]",
		Short: "Run a natural-language edit against the timeline",
		Long: `edit sends an instruction to the daemon, shows the plan the model
produced, and applies it. With no argument the instruction is read from
stdin, so it can be piped in from scripts.`,
		Args: cobra.MaximumNArgs(1),
		Run:  runEdit, // Defined in cmd_edit.go
	}

	prefsCmd = &cobra.Command{
		Use:   "prefs",
		Short: "Inspect and update editing preferences",
	}

	prefsGetCmd = &cobra.Command{
		Use:   "get",
		Short: "Print the current preferences",
		Run:   runPrefsGet, // Defined in cmd_prefs.go
	}

	prefsSetCmd = &cobra.Command{
		Use:   "set",
		Short: "Update one or more preference fields",
		Run:   runPrefsSet, // Defined in cmd_prefs.go
	}

	testClipsCmd = &cobra.Command{
		Use:   "test-clips",
		Short: "Synthesize local test clips and append them to the timeline",
		Long: `test-clips renders short solid-color clips with ffmpeg into the
daemon's uploads directory and appends each one to the timeline. It is
intended for local development when no real footage is at hand.`,
		Run: runTestClips, // Defined in cmd_timeline.go
	}
)

// =============================================================================
// Initialization
// =============================================================================

func init() {
	// Add commands to root
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(testClipsCmd)

	// Add subcommands
	prefsCmd.AddCommand(prefsGetCmd)
	prefsCmd.AddCommand(prefsSetCmd)

	// Root flags
	rootCmd.PersistentFlags().String("server", "", "Base URL of the daemon (overrides GHOST_SERVER_URL)")

	// Serve flags
	serveCmd.Flags().Int("port", 0, "Port to listen on")
	serveCmd.Flags().String("data-dir", "", "Directory for daemon state")
	serveCmd.Flags().String("video-root", "", "Directory for media files")
	serveCmd.Flags().String("llm-backend", "", "LLM backend (ollama or openai)")
	serveCmd.Flags().Bool("metrics", true, "Expose Prometheus metrics on /metrics")

	// Edit flags
	editCmd.Flags().Bool("dry-run", false, "Show the generated plan without applying it")
	editCmd.Flags().BoolP("yes", "y", false, "Apply without confirmation")

	// Prefs set flags
	prefsSetCmd.Flags().Float64("transition-duration", 0, "Default transition duration in seconds")
	prefsSetCmd.Flags().Bool("auto-ripple", false, "Close gaps automatically after deletes")

	// Test clip flags
	testClipsCmd.Flags().IntP("count", "n", 3, "Number of clips to synthesize")
}
