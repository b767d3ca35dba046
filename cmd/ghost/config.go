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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// CLIConfig holds the settings shared across subcommands. Values come
// from ~/.ghostcut/config.yaml and GHOST_* environment variables;
// command flags override both.
type CLIConfig struct {
	// ServerURL is the base URL of a running daemon. When empty the
	// CLI targets localhost on the configured port.
	ServerURL string `mapstructure:"server_url"`

	// Port is used both by `serve` to listen on and by the other
	// commands to build the default server URL.
	Port int `mapstructure:"port"`

	// LLMBackend selects the model provider for `serve`.
	LLMBackend string `mapstructure:"llm_backend"`

	// DataDir is the daemon state root for `serve` and `test-clips`.
	DataDir string `mapstructure:"data_dir"`

	// VideoRoot overrides where uploads/ and exports/ live.
	VideoRoot string `mapstructure:"video_root"`
}

// loadCLIConfig reads the optional config file and environment. A
// missing config file is not an error; defaults cover everything.
func loadCLIConfig() (CLIConfig, error) {
	v := viper.New()
	v.SetDefault("server_url", "")
	v.SetDefault("port", 12210)
	v.SetDefault("llm_backend", "ollama")
	v.SetDefault("data_dir", "")
	v.SetDefault("video_root", "")

	// GHOST_SERVER_URL, GHOST_PORT, and friends.
	v.SetEnvPrefix("GHOST")
	v.AutomaticEnv()

	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".ghostcut", "config.yaml")
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return CLIConfig{}, fmt.Errorf("failed to read %s: %w", path, err)
			}
		}
	}

	var cfg CLIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}
