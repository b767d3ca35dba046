// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package media wraps the ffmpeg and ffprobe binaries: probing import
// candidates, transcoding them to a uniform H.264 house format, and
// rendering a timeline preview. Everything here shells out; nothing
// touches timeline state.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"
)

var (
	ErrNilContext = errors.New("context must not be nil")

	// ErrEmptyTimeline rejects a render of a timeline with no clips.
	ErrEmptyTimeline = errors.New("timeline is empty")
)

// Dirs are the on-disk video directories: originals land in Uploads
// after transcoding, rendered previews in Exports.
type Dirs struct {
	Uploads string
	Exports string
}

// ResolveDirs creates (if needed) and returns the upload and export
// directories under root.
func ResolveDirs(root string) (Dirs, error) {
	dirs := Dirs{
		Uploads: filepath.Join(root, "uploads"),
		Exports: filepath.Join(root, "exports"),
	}
	for _, dir := range []string{dirs.Uploads, dirs.Exports} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Dirs{}, fmt.Errorf("failed to create video dir %s: %w", dir, err)
		}
	}
	return dirs, nil
}

// Engine executes ffmpeg/ffprobe with timeouts and output capture.
//
// Thread Safety: Safe for concurrent use. Each call spawns its own
// process; concurrent probes of the same file are deduplicated.
type Engine struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	logger      *slog.Logger
	probeFlight singleflight.Group
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithFFmpegPath overrides the ffmpeg binary lookup.
func WithFFmpegPath(path string) EngineOption {
	return func(e *Engine) { e.ffmpegPath = path }
}

// WithFFprobePath overrides the ffprobe binary lookup.
func WithFFprobePath(path string) EngineOption {
	return func(e *Engine) { e.ffprobePath = path }
}

// WithTimeout bounds each subprocess run.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an Engine with PATH binary lookup and a 10 minute
// per-run ceiling, enough for a long preview render.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		timeout:     10 * time.Minute,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run executes one binary and returns captured stdout. Stderr is
// folded into the error because ffmpeg reports everything there.
func (e *Engine) run(ctx context.Context, bin string, args []string) ([]byte, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.logger.Debug("Executing media command",
		slog.String("bin", bin),
		slog.Int("arg_count", len(args)),
	)

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		e.logger.Warn("Media command timed out",
			slog.String("bin", bin),
			slog.Duration("timeout", e.timeout),
		)
		return nil, fmt.Errorf("%s timed out after %s", bin, e.timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", bin, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
