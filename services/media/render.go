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
	"sort"
	"strings"

	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// BuildRenderArgs assembles the full ffmpeg invocation for a preview
// render.
//
// Clips are sorted by start time, every input is scaled into a padded
// 1920x1080 frame, trimmed to its stored duration, and the results are
// concatenated video-only. Gaps between clips collapse: the preview is
// the clips back to back, not a wall-clock replay.
func BuildRenderArgs(state timeline.TimelineState, outputPath string) ([]string, error) {
	if len(state.Clips) == 0 {
		return nil, ErrEmptyTimeline
	}

	clips := make([]timeline.Clip, len(state.Clips))
	copy(clips, state.Clips)
	sort.Slice(clips, func(i, j int) bool { return clips[i].Start < clips[j].Start })

	args := []string{"-y"}
	for _, clip := range clips {
		args = append(args, "-i", clip.SourceFile)
	}

	var filterComplex strings.Builder
	var concatInputs strings.Builder
	for i, clip := range clips {
		fmt.Fprintf(&filterComplex,
			"[%d:v]scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2,trim=duration=%.4f,setpts=PTS-STARTPTS[v%d];",
			i, clip.Duration, i)
		fmt.Fprintf(&concatInputs, "[v%d]", i)
	}
	fmt.Fprintf(&filterComplex, "%sconcat=n=%d:v=1:a=0[outv]", concatInputs.String(), len(clips))

	args = append(args,
		"-filter_complex", filterComplex.String(),
		"-map", "[outv]",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		outputPath,
	)
	return args, nil
}

// RenderTimeline renders the state into outputPath.
func (e *Engine) RenderTimeline(ctx context.Context, state timeline.TimelineState, outputPath string) error {
	args, err := BuildRenderArgs(state, outputPath)
	if err != nil {
		return err
	}

	e.logger.Info("Rendering timeline preview",
		slog.Int("clips", len(state.Clips)),
		slog.String("output", outputPath),
	)
	if _, err := e.run(ctx, e.ffmpegPath, args); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	e.logger.Info("Render complete", slog.String("output", outputPath))
	return nil
}
