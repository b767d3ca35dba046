// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompt assembles the text sent to the model: the system
// rules, a preference summary, a simplified timeline context, and the
// user's instruction. The output format the rules demand is the wire
// schema services/editplan decodes.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// MaxContextClips caps how many clips ride along in the prompt so a
// long project cannot blow the model's context window.
const MaxContextClips = 50

// recentInteractionWindow is how many trailing interaction events feed
// the activity summary.
const recentInteractionWindow = 10

// preferencePlaceholder marks where the preference summary lands in
// the system prompt.
const preferencePlaceholder = "{{PREFERENCE_CONTEXT}}"

// SystemPrompt is the fixed instruction block. The unsupported-actions
// rule mirrors the capability list services/policy_engine screens for.
const SystemPrompt = `
You are "GhostCut", an intelligent video editing assistant.
Your goal is to interpret natural language instructions into a JSON EditPlan based on the provided timeline context.

[PREFERENCE_CONTEXT]
{{PREFERENCE_CONTEXT}}

TIMELINE CONTEXT:
The user will provide a JSON representation of the current timeline state.
You must use the exact Clip IDs provided in the context. Do not invent IDs.

OUTPUT FORMAT:
You must output ONLY a valid JSON object matching this structure:
{
  "actions": [
    {
      "type": "DELETE", // ONLY: "DELETE", "MOVE", "TRIM", "SPLIT"
      "target_clip_id": "uuid-string",
      "parameters": {
        // "new_start_time": float (for MOVE)
        // "trim_start_delta": float (for TRIM, negative to shorten from start)
        // "trim_end_delta": float (for TRIM, negative to shorten from end)
        // "split_time": float (for SPLIT)
      }
    }
  ]
}

RULES:
1. No text outside JSON.
2. No trailing comments.
3. No thought process.
4. If you are unsure, return an empty actions array.
5. SPLIT Rule: You may NOT reference or modify the newly created clip in the same plan. Treat SPLIT as a final action for that clip.
6. UNSUPPORTED ACTIONS: "Speed", "Merge", "Color", "Effect", "Export". Return empty actions if requested.

EXAMPLES:

Input: "Delete the first clip"
Context: [{"id": "abc-123", ...}]
Output:
{
  "actions": [
    { "type": "DELETE", "target_clip_id": "abc-123" }
  ]
}
`

// SimplifiedClip is the reduced clip view placed in the prompt. Source
// paths are withheld: the model only needs IDs and timing.
type SimplifiedClip struct {
	ID            string  `json:"id"`
	TimelineStart float64 `json:"timeline_start"`
	Duration      float64 `json:"duration"`
	TrackID       *string `json:"track_id"`
}

// SimplifyTimeline maps the first maxClips clips into prompt form.
func SimplifyTimeline(state timeline.TimelineState, maxClips int) []SimplifiedClip {
	n := len(state.Clips)
	if n > maxClips {
		n = maxClips
	}
	out := make([]SimplifiedClip, 0, n)
	for _, c := range state.Clips[:n] {
		trackID := c.TrackID
		out = append(out, SimplifiedClip{
			ID:            c.ID,
			TimelineStart: c.Start,
			Duration:      c.Duration,
			TrackID:       &trackID,
		})
	}
	return out
}

// formatPreferenceContext summarizes the user's settings and recent
// activity for the model.
func formatPreferenceContext(prefs preferences.UserPreferences) string {
	var summary strings.Builder

	fmt.Fprintf(&summary,
		"USER PREFERENCES:\n- Default Transition Duration: %.1fs\n- Auto-Ripple Edits: %t\n",
		prefs.General.DefaultTransitionDuration, prefs.General.AutoRippleEdits)

	total := len(prefs.Interactions)
	if total == 0 {
		summary.WriteString("- No prior interaction history.\n")
		return summary.String()
	}

	window := recentInteractionWindow
	if total < window {
		window = total
	}

	var manualMoves, manualTrims, aiEdits int
	for _, event := range prefs.Interactions[total-window:] {
		switch event.EventType {
		case preferences.EventManualMove:
			manualMoves++
		case preferences.EventManualTrim:
			manualTrims++
		case preferences.EventAIEditApplied:
			aiEdits++
		}
	}

	fmt.Fprintf(&summary,
		"- Recent Activity (last %d): %d AI Edits, %d Manual Moves, %d Manual Trims.\n",
		window, aiEdits, manualMoves, manualTrims)
	return summary.String()
}

type contextEnvelope struct {
	TimelineContext []SimplifiedClip `json:"timeline_context"`
}

// BuildContextBlock renders the timeline portion of the prompt. An
// empty timeline and an over-long one both get an explicit NOTE so the
// model never mistakes a capped context for the whole project.
func BuildContextBlock(state timeline.TimelineState) string {
	simplified := SimplifyTimeline(state, MaxContextClips)

	raw, err := json.Marshal(contextEnvelope{TimelineContext: simplified})
	contextStr := string(raw)
	if err != nil {
		contextStr = "{}"
	}

	switch {
	case len(state.Clips) == 0:
		contextStr = "NOTE: timeline contains 0 clips."
	case len(state.Clips) > MaxContextClips:
		omitted := len(state.Clips) - MaxContextClips
		contextStr = fmt.Sprintf("NOTE: %d clips omitted.\n%s", omitted, contextStr)
	}

	return "TIMELINE_CONTEXT:\n" + contextStr
}

// Build assembles the full prompt for one user instruction.
func Build(state timeline.TimelineState, prefs preferences.UserPreferences, userInput string) string {
	system := strings.Replace(SystemPrompt, preferencePlaceholder, formatPreferenceContext(prefs), 1)
	contextBlock := BuildContextBlock(state)
	return fmt.Sprintf("%s\n\n%s\n\nUSER:\n\"%s\"\n", system, contextBlock, userInput)
}

// BuildPreview returns only the editable portion of the prompt, which
// the UI shows before an override. The system rules are prepended
// again at send time.
func BuildPreview(state timeline.TimelineState, userInput string) string {
	return fmt.Sprintf("%s\nUser Instruction: %s", BuildContextBlock(state), userInput)
}

// BuildWithOverride prepends the system rules to caller-supplied
// context text. Preferences are deliberately not injected: an override
// means the user wants exactly what they wrote.
func BuildWithOverride(override string) string {
	return SystemPrompt + "\n" + override
}
