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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// =============================================================================
// HTTP Utilities
// =============================================================================

// httpClient is shared by all subcommands. The timeout is generous
// because a prompt round trip includes a local model generation.
var httpClient = &http.Client{Timeout: 5 * time.Minute}

// getServerBaseURL resolves the daemon address. Precedence: the
// --server flag, then server_url from config/env, then localhost on
// the configured port.
func getServerBaseURL(cmd *cobra.Command) string {
	if flagURL, _ := cmd.Flags().GetString("server"); flagURL != "" {
		return strings.TrimRight(flagURL, "/")
	}
	if cliConfig.ServerURL != "" {
		return strings.TrimRight(cliConfig.ServerURL, "/")
	}
	port := cliConfig.Port
	if port == 0 {
		port = 12210
	}
	return fmt.Sprintf("http://localhost:%d", port)
}

// apiError is the daemon's uniform error envelope.
type apiError struct {
	Error string `json:"error"`
	Stage string `json:"stage"`
	Code  string `json:"code"`
}

// doJSON sends one JSON request and decodes the response into out
// (skipped when out is nil). Non-2xx responses come back as errors
// carrying the daemon's message.
func doJSON(method, url string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach the daemon at %s (is it running?): %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope apiError
		if json.Unmarshal(data, &envelope) == nil && envelope.Error != "" {
			return fmt.Errorf("%s (status %d)", envelope.Error, resp.StatusCode)
		}
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func getJSON(base, path string, out any) error {
	return doJSON(http.MethodGet, base+path, nil, out)
}

func postJSON(base, path string, payload, out any) error {
	return doJSON(http.MethodPost, base+path, payload, out)
}

func putJSON(base, path string, payload, out any) error {
	return doJSON(http.MethodPut, base+path, payload, out)
}

// =============================================================================
// Display Utilities
// =============================================================================

// shortID trims a UUID to its first segment for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
