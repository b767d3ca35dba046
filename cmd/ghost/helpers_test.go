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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// newScratchCmd builds a bare command carrying the --server flag, so
// getServerBaseURL can be exercised without running the real root.
func newScratchCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "scratch"}
	cmd.Flags().String("server", "", "")
	return cmd
}

func TestGetServerBaseURL_Default(t *testing.T) {
	saved := cliConfig
	defer func() { cliConfig = saved }()

	cliConfig = CLIConfig{}
	url := getServerBaseURL(newScratchCmd())
	expected := "http://localhost:12210"
	if url != expected {
		t.Errorf("Expected %s, got %s", expected, url)
	}
}

func TestGetServerBaseURL_UsesConfiguredPort(t *testing.T) {
	saved := cliConfig
	defer func() { cliConfig = saved }()

	cliConfig = CLIConfig{Port: 9999}
	url := getServerBaseURL(newScratchCmd())
	if url != "http://localhost:9999" {
		t.Errorf("Expected port 9999 in URL, got %s", url)
	}
}

func TestGetServerBaseURL_ConfigURLTrimsSlash(t *testing.T) {
	saved := cliConfig
	defer func() { cliConfig = saved }()

	cliConfig = CLIConfig{ServerURL: "http://editor.local:8080/"}
	url := getServerBaseURL(newScratchCmd())
	if url != "http://editor.local:8080" {
		t.Errorf("Expected trimmed URL, got %s", url)
	}
}

func TestGetServerBaseURL_FlagWins(t *testing.T) {
	saved := cliConfig
	defer func() { cliConfig = saved }()

	cliConfig = CLIConfig{ServerURL: "http://from-config:1"}
	cmd := newScratchCmd()
	if err := cmd.Flags().Set("server", "http://from-flag:2/"); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}
	url := getServerBaseURL(cmd)
	if url != "http://from-flag:2" {
		t.Errorf("Expected the flag value to win, got %s", url)
	}
}

func TestDoJSON_DecodesSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %s", ct)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"hello","latency_ms":42}`))
	}))
	defer srv.Close()

	var out promptResult
	err := postJSON(srv.URL, "/v1/assistant/prompt", map[string]string{"instruction": "x"}, &out)
	if err != nil {
		t.Fatalf("postJSON failed: %v", err)
	}
	if out.Text != "hello" || out.LatencyMs != 42 {
		t.Errorf("Unexpected decode result: %+v", out)
	}
}

func TestDoJSON_SurfacesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"plan rejected: confidence 0.20 below threshold 0.60","stage":"admission"}`))
	}))
	defer srv.Close()

	err := postJSON(srv.URL, "/v1/assistant/apply", map[string]string{"raw_response": "x"}, nil)
	if err == nil {
		t.Fatal("Expected an error for a 422 response")
	}
	if !strings.Contains(err.Error(), "plan rejected") {
		t.Errorf("Expected the daemon message in the error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "422") {
		t.Errorf("Expected the status code in the error, got: %v", err)
	}
}

func TestDoJSON_HandlesNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	err := getJSON(srv.URL, "/health", nil)
	if err == nil {
		t.Fatal("Expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected the status code in the error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Errorf("Expected the raw body in the error, got: %v", err)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("Expected 01234567, got %s", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("Short ids should pass through, got %s", got)
	}
}

func TestLoadCLIConfig_Defaults(t *testing.T) {
	// Point HOME at an empty directory so no real config file leaks in.
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadCLIConfig()
	if err != nil {
		t.Fatalf("loadCLIConfig failed: %v", err)
	}
	if cfg.Port != 12210 {
		t.Errorf("Expected default port 12210, got %d", cfg.Port)
	}
	if cfg.LLMBackend != "ollama" {
		t.Errorf("Expected default backend ollama, got %s", cfg.LLMBackend)
	}
}

func TestLoadCLIConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GHOST_PORT", "9999")
	t.Setenv("GHOST_SERVER_URL", "http://env.test:9999")

	cfg, err := loadCLIConfig()
	if err != nil {
		t.Fatalf("loadCLIConfig failed: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Expected GHOST_PORT to override the port, got %d", cfg.Port)
	}
	if cfg.ServerURL != "http://env.test:9999" {
		t.Errorf("Expected GHOST_SERVER_URL to be picked up, got %s", cfg.ServerURL)
	}
}

func TestLoadCLIConfig_ReadsConfigFile(t *testing.T) {
	// 1. Create a temp home with a config file in place
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".ghostcut")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	yaml := "port: 7777\nserver_url: http://config.test:7777\nllm_backend: openai\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	// 2. Load and verify
	cfg, err := loadCLIConfig()
	if err != nil {
		t.Fatalf("loadCLIConfig failed: %v", err)
	}
	if cfg.Port != 7777 {
		t.Errorf("Expected port 7777 from config file, got %d", cfg.Port)
	}
	if cfg.ServerURL != "http://config.test:7777" {
		t.Errorf("Expected server_url from config file, got %s", cfg.ServerURL)
	}
	if cfg.LLMBackend != "openai" {
		t.Errorf("Expected backend openai from config file, got %s", cfg.LLMBackend)
	}
}

func TestLoadCLIConfig_RejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".ghostcut")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := loadCLIConfig(); err == nil {
		t.Fatal("Expected an error for a malformed config file")
	}
}
