// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// homebrewFFprobe is tried when the PATH lookup fails; GUI-launched
// processes on macOS often miss the Homebrew bin dir.
const homebrewFFprobe = "/opt/homebrew/bin/ffprobe"

// ProbeDuration returns the container duration of a media file in
// seconds.
//
// # Description
//
// Runs ffprobe with JSON output and parses format.duration. Concurrent
// probes of the same path are collapsed into a single subprocess via
// singleflight, so a double-clicked import does not spawn two probes.
//
// # Inputs
//
//   - ctx: bounds the subprocess together with the engine timeout.
//   - path: the media file to inspect.
//
// # Outputs
//
//   - float64: duration in seconds.
//   - error: lookup, execution, or parse failure.
func (e *Engine) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if ctx == nil {
		return 0, ErrNilContext
	}
	v, err, shared := e.probeFlight.Do(path, func() (interface{}, error) {
		out, err := e.run(ctx, e.ffprobePath, probeArgs(path))
		if err != nil && e.ffprobePath == "ffprobe" {
			e.logger.Warn("Default ffprobe failed, trying Homebrew path",
				slog.String("path", path), "error", err)
			out, err = e.run(ctx, homebrewFFprobe, probeArgs(path))
		}
		if err != nil {
			return nil, err
		}
		return parseProbeOutput(out)
	})
	if err != nil {
		return 0, err
	}
	if shared {
		e.logger.Debug("Probe deduplicated", slog.String("path", path))
	}
	return v.(float64), nil
}

// probeArgs builds the ffprobe invocation for one file.
func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
}

// parseProbeOutput extracts the container duration from ffprobe's JSON
// output. ffprobe reports the duration as a string.
func parseProbeOutput(out []byte) (float64, error) {
	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if payload.Format.Duration == "" {
		return 0, errors.New("could not find duration in ffprobe output")
	}
	duration, err := strconv.ParseFloat(payload.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", payload.Format.Duration, err)
	}
	return duration, nil
}
