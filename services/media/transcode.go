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
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TestClipDuration is the length of a synthesized test clip.
const TestClipDuration = 5.0

// transcodeDestName builds the unique upload filename for an import.
// The destination is always .mp4 regardless of the source container.
func transcodeDestName(srcPath string) string {
	stem := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	return fmt.Sprintf("%s_%s.mp4", stem, uuid.NewString())
}

// transcodeArgs builds the import transcode invocation: H.264 with a
// compatibility pixel format and AAC audio, so every clip on the
// timeline shares one decode path.
func transcodeArgs(srcPath, destPath string) []string {
	return []string{
		"-y",
		"-i", srcPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		destPath,
	}
}

// TranscodeToH264 converts an import candidate into the house format
// and returns the new path under uploadsDir.
func (e *Engine) TranscodeToH264(ctx context.Context, srcPath, uploadsDir string) (string, error) {
	destPath := filepath.Join(uploadsDir, transcodeDestName(srcPath))

	e.logger.Info("Transcoding video to H.264",
		slog.String("src", srcPath),
		slog.String("dest", destPath),
	)
	if _, err := e.run(ctx, e.ffmpegPath, transcodeArgs(srcPath, destPath)); err != nil {
		return "", fmt.Errorf("transcoding failed: %w", err)
	}
	e.logger.Info("Transcoding complete", slog.String("dest", destPath))
	return destPath, nil
}

// testClipArgs synthesizes a 5 second 720p test pattern.
func testClipArgs(destPath string) []string {
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("testsrc=duration=%g:size=1280x720:rate=30", TestClipDuration),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		destPath,
	}
}

// SynthesizeTestClip renders a test-pattern clip into uploadsDir and
// returns its path. Used by the CLI test-clips command so the editing
// pipeline can be exercised without real footage.
func (e *Engine) SynthesizeTestClip(ctx context.Context, uploadsDir string, index int) (string, error) {
	name := fmt.Sprintf("test_clip_%d_%s.mp4", index, uuid.NewString())
	destPath := filepath.Join(uploadsDir, name)

	if _, err := e.run(ctx, e.ffmpegPath, testClipArgs(destPath)); err != nil {
		return "", fmt.Errorf("test clip generation failed: %w", err)
	}
	e.logger.Info("Generated test clip", slog.String("path", destPath))
	return destPath, nil
}
