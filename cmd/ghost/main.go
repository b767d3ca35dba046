// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command ghost is the CLI for the GhostCut editing daemon.
//
// Most subcommands talk to a running daemon over HTTP; `ghost serve`
// starts one in the foreground. Configuration comes from
// ~/.ghostcut/config.yaml, GHOST_* environment variables, and flags,
// in increasing order of precedence.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

var cliConfig CLIConfig

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg, err := loadCLIConfig()
		if err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}
		cliConfig = cfg
	}
}
