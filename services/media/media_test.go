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
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// TestParseProbeOutput_Valid reads the duration ffprobe reports as a
// JSON string.
func TestParseProbeOutput_Valid(t *testing.T) {
	d, err := parseProbeOutput([]byte(`{"format":{"duration":"12.480000"}}`))
	require.NoError(t, err)
	assert.InDelta(t, 12.48, d, 1e-9)
}

// TestParseProbeOutput_Errors covers missing and malformed durations.
func TestParseProbeOutput_Errors(t *testing.T) {
	cases := []struct {
		name string
		out  string
	}{
		{"no format block", `{}`},
		{"empty duration", `{"format":{"duration":""}}`},
		{"non-numeric duration", `{"format":{"duration":"N/A"}}`},
		{"garbage", `ffprobe: command not found`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseProbeOutput([]byte(tc.out))
			assert.Error(t, err)
		})
	}
}

// TestProbeArgs pins the ffprobe flag set.
func TestProbeArgs(t *testing.T) {
	args := probeArgs("/videos/uploads/a.mp4")
	assert.Equal(t, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		"/videos/uploads/a.mp4",
	}, args)
}

// TestTranscodeDestName always lands on .mp4 with a unique suffix.
func TestTranscodeDestName(t *testing.T) {
	a := transcodeDestName("/imports/holiday.mov")
	b := transcodeDestName("/imports/holiday.mov")

	assert.True(t, strings.HasPrefix(a, "holiday_"))
	assert.True(t, strings.HasSuffix(a, ".mp4"))
	assert.NotEqual(t, a, b, "destination names must be unique")
}

// TestTranscodeArgs pins the compatibility codec settings.
func TestTranscodeArgs(t *testing.T) {
	args := transcodeArgs("/in.mov", "/out.mp4")
	assert.Equal(t, []string{
		"-y",
		"-i", "/in.mov",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"/out.mp4",
	}, args)
}

// TestTestClipArgs synthesizes a 5 second 720p pattern.
func TestTestClipArgs(t *testing.T) {
	args := testClipArgs("/uploads/test_clip_0.mp4")
	assert.Contains(t, args, "testsrc=duration=5:size=1280x720:rate=30")
	assert.Contains(t, args, "lavfi")
	assert.Equal(t, "/uploads/test_clip_0.mp4", args[len(args)-1])
}

// TestBuildRenderArgs_TwoClips checks input order, the per-clip filter
// chains, and the concat tail.
func TestBuildRenderArgs_TwoClips(t *testing.T) {
	state := timeline.TimelineState{
		Clips: []timeline.Clip{
			// Deliberately out of order to exercise the sort.
			{ID: "b", TrackID: timeline.DefaultTrackID, Start: 10, Duration: 2.5, SourceFile: "/u/b.mp4"},
			{ID: "a", TrackID: timeline.DefaultTrackID, Start: 0, Duration: 10, SourceFile: "/u/a.mp4"},
		},
		Duration: 12.5,
	}

	args, err := BuildRenderArgs(state, "/exports/preview.mp4")
	require.NoError(t, err)

	joined := strings.Join(args, " ")
	// Inputs follow timeline order, not slice order.
	assert.Less(t, strings.Index(joined, "/u/a.mp4"), strings.Index(joined, "/u/b.mp4"))

	var filter string
	for i, arg := range args {
		if arg == "-filter_complex" {
			filter = args[i+1]
		}
	}
	require.NotEmpty(t, filter)
	assert.Contains(t, filter, "[0:v]scale=1920:1080:force_original_aspect_ratio=decrease,pad=1920:1080:(ow-iw)/2:(oh-ih)/2,trim=duration=10.0000,setpts=PTS-STARTPTS[v0];")
	assert.Contains(t, filter, "trim=duration=2.5000")
	assert.Contains(t, filter, "[v0][v1]concat=n=2:v=1:a=0[outv]")

	assert.Equal(t, "/exports/preview.mp4", args[len(args)-1])
	assert.Contains(t, args, "libx264")
}

// TestBuildRenderArgs_EmptyTimeline refuses to render nothing.
func TestBuildRenderArgs_EmptyTimeline(t *testing.T) {
	_, err := BuildRenderArgs(timeline.TimelineState{}, "/exports/p.mp4")
	assert.ErrorIs(t, err, ErrEmptyTimeline)
}

// TestResolveDirs creates both subdirectories.
func TestResolveDirs(t *testing.T) {
	root := t.TempDir()

	dirs, err := ResolveDirs(root)
	require.NoError(t, err)
	assert.DirExists(t, dirs.Uploads)
	assert.DirExists(t, dirs.Exports)
	assert.Equal(t, filepath.Join(root, "uploads"), dirs.Uploads)
}

// writeFakeProbe drops an executable stub that logs each invocation
// and prints a fixed ffprobe response.
func writeFakeProbe(t *testing.T, duration string, invocationLog string) string {
	t.Helper()
	script := filepath.Join(t.TempDir(), "fake_ffprobe")
	body := "#!/bin/sh\n" +
		"echo run >> " + invocationLog + "\n" +
		"echo '{\"format\":{\"duration\":\"" + duration + "\"}}'\n"
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))
	return script
}

// TestProbeDuration_EndToEnd runs the probe against a stub binary.
func TestProbeDuration_EndToEnd(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "invocations")
	engine := NewEngine(WithFFprobePath(writeFakeProbe(t, "7.25", logFile)))

	d, err := engine.ProbeDuration(context.Background(), "/videos/a.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 7.25, d, 1e-9)
}

// TestProbeDuration_Deduplicates collapses concurrent probes of the
// same path into fewer subprocess runs.
func TestProbeDuration_Deduplicates(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "invocations")
	engine := NewEngine(WithFFprobePath(writeFakeProbe(t, "3.0", logFile)))

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			d, err := engine.ProbeDuration(context.Background(), "/videos/same.mp4")
			assert.NoError(t, err)
			assert.InDelta(t, 3.0, d, 1e-9)
		}()
	}
	wg.Wait()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	runs := strings.Count(string(content), "run")
	assert.Less(t, runs, callers, "concurrent probes should be deduplicated")
}

// TestProbeDuration_BinaryMissing surfaces the lookup failure.
func TestProbeDuration_BinaryMissing(t *testing.T) {
	engine := NewEngine(WithFFprobePath("/nonexistent/ffprobe-binary"))

	_, err := engine.ProbeDuration(context.Background(), "/videos/a.mp4")
	assert.Error(t, err)
}

// TestRun_NilContext rejects a nil context outright.
func TestRun_NilContext(t *testing.T) {
	engine := NewEngine()
	var nilCtx context.Context
	_, err := engine.ProbeDuration(nilCtx, "/videos/a.mp4")
	assert.ErrorIs(t, err, ErrNilContext)
}
