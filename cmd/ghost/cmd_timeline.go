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
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GhostCutAI/GhostLocal/services/media"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// runState fetches and prints the committed timeline.
func runState(cmd *cobra.Command, args []string) {
	base := getServerBaseURL(cmd)

	var state timeline.TimelineState
	if err := getJSON(base, "/v1/timeline", &state); err != nil {
		log.Fatalf("Error fetching timeline: %v", err)
	}
	printTimeline(state)
}

// printTimeline renders a state snapshot as a small table. Shared with
// the edit command, which prints the post-apply state the same way.
func printTimeline(state timeline.TimelineState) {
	fmt.Printf("Timeline version %d: %d clip(s), %.2fs total, playhead at %.2fs\n",
		state.Version, len(state.Clips), state.Duration, state.PlayheadTime)
	if len(state.Clips) == 0 {
		return
	}
	fmt.Printf("%-10s %-10s %-10s %-10s %s\n", "CLIP", "START", "END", "DURATION", "SOURCE")
	for _, clip := range state.Clips {
		fmt.Printf("%-10s %-10.2f %-10.2f %-10.2f %s\n",
			shortID(clip.ID),
			clip.Start,
			clip.Start+clip.Duration,
			clip.Duration,
			filepath.Base(clip.SourceFile),
		)
	}
}

// runTestClips synthesizes solid test-pattern clips with ffmpeg and
// appends each one to the timeline through the daemon API. The clips
// land in the same uploads directory the daemon serves from, so they
// render like any imported footage.
func runTestClips(cmd *cobra.Command, args []string) {
	count, _ := cmd.Flags().GetInt("count")
	if count < 1 {
		log.Fatalf("Error: --count must be at least 1")
	}
	base := getServerBaseURL(cmd)

	// Resolve the uploads directory the way the daemon does, so both
	// sides agree on where media lives.
	videoRoot := cliConfig.VideoRoot
	if videoRoot == "" {
		dataDir := cliConfig.DataDir
		if dataDir == "" {
			dir, err := preferences.DefaultDir()
			if err != nil {
				log.Fatalf("Error resolving data directory: %v", err)
			}
			dataDir = dir
		}
		videoRoot = filepath.Join(dataDir, "media")
	}
	dirs, err := media.ResolveDirs(videoRoot)
	if err != nil {
		log.Fatalf("Error preparing video directories: %v", err)
	}

	engine := media.NewEngine()
	for i := 0; i < count; i++ {
		fmt.Printf("Synthesizing test clip %d of %d...\n", i+1, count)
		path, err := engine.SynthesizeTestClip(cmd.Context(), dirs.Uploads, i)
		if err != nil {
			log.Fatalf("Error generating test clip: %v", err)
		}

		payload := map[string]any{
			"source_file": path,
			"duration":    media.TestClipDuration,
		}
		var state timeline.TimelineState
		if err := postJSON(base, "/v1/timeline/clips", payload, &state); err != nil {
			log.Fatalf("Error appending clip to timeline: %v", err)
		}
		fmt.Printf("Appended %s (timeline now %d clip(s), version %d)\n",
			filepath.Base(path), len(state.Clips), state.Version)
	}
}
