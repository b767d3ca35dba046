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

	"github.com/spf13/cobra"
)

// prefsDocument mirrors the daemon's preference envelope.
type prefsDocument struct {
	General struct {
		DefaultTransitionDuration float64 `json:"default_transition_duration"`
		AutoRippleEdits           bool    `json:"auto_ripple_edits"`
	} `json:"general"`
	Interactions []struct {
		Timestamp int64  `json:"timestamp"`
		EventType string `json:"event_type"`
	} `json:"interactions"`
}

func runPrefsGet(cmd *cobra.Command, args []string) {
	base := getServerBaseURL(cmd)

	var doc prefsDocument
	if err := getJSON(base, "/v1/preferences", &doc); err != nil {
		log.Fatalf("Error fetching preferences: %v", err)
	}
	fmt.Printf("default_transition_duration: %.2f\n", doc.General.DefaultTransitionDuration)
	fmt.Printf("auto_ripple_edits:           %t\n", doc.General.AutoRippleEdits)
	fmt.Printf("recorded_interactions:       %d\n", len(doc.Interactions))
}

func runPrefsSet(cmd *cobra.Command, args []string) {
	if !cmd.Flags().Changed("transition-duration") && !cmd.Flags().Changed("auto-ripple") {
		log.Fatalf("Error: nothing to set. Pass --transition-duration and/or --auto-ripple.")
	}
	base := getServerBaseURL(cmd)

	// The update endpoint replaces the whole general block, so start
	// from the current values and overlay only the changed flags.
	var current prefsDocument
	if err := getJSON(base, "/v1/preferences", &current); err != nil {
		log.Fatalf("Error fetching current preferences: %v", err)
	}

	next := map[string]any{
		"default_transition_duration": current.General.DefaultTransitionDuration,
		"auto_ripple_edits":           current.General.AutoRippleEdits,
	}
	if cmd.Flags().Changed("transition-duration") {
		v, _ := cmd.Flags().GetFloat64("transition-duration")
		next["default_transition_duration"] = v
	}
	if cmd.Flags().Changed("auto-ripple") {
		v, _ := cmd.Flags().GetBool("auto-ripple")
		next["auto_ripple_edits"] = v
	}

	var updated prefsDocument
	if err := putJSON(base, "/v1/preferences", next, &updated); err != nil {
		log.Fatalf("Error updating preferences: %v", err)
	}
	fmt.Printf("Preferences updated: transition %.2fs, auto-ripple %t\n",
		updated.General.DefaultTransitionDuration, updated.General.AutoRippleEdits)
}
