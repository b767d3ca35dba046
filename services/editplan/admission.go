// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package editplan

import (
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// DefaultConfidenceThreshold is the minimum self-reported confidence a
// plan needs to reach the engine. A plan scoring exactly the threshold
// is admitted.
const DefaultConfidenceThreshold = 0.6

// Admit decides whether a parsed plan may be handed to the engine.
//
// # Description
//
// Three gates run in order and the first failure wins: the plan must
// request at least one action, its confidence must meet the threshold,
// and every target clip must exist on the given snapshot. The clip
// check is whole-plan and fail-fast: one unknown target rejects the
// entire plan before any mutation is attempted.
//
// Admission reads a snapshot, so a clip can still vanish between here
// and the engine lock; the engine re-checks existence under the lock
// and this gate only exists to refuse obviously dead plans cheaply.
//
// # Inputs
//
//   - plan: a plan produced by Parse (or constructed programmatically).
//   - state: a timeline snapshot to resolve clip IDs against.
//   - threshold: minimum confidence, normally
//     DefaultConfidenceThreshold.
//
// # Outputs
//
//   - error: nil on admission, otherwise ErrEmptyPlan,
//     *LowConfidenceError, or timeline.ClipNotFoundError.
func Admit(plan *EditPlan, state timeline.TimelineState, threshold float64) error {
	if len(plan.Actions) == 0 {
		return ErrEmptyPlan
	}
	if score := plan.EffectiveConfidence(); score < threshold {
		return &LowConfidenceError{
			Score:     score,
			Threshold: threshold,
			Rationale: plan.Rationale(),
		}
	}
	for _, action := range plan.Actions {
		if !state.HasClip(action.TargetClipID) {
			return timeline.ClipNotFoundError{ClipID: action.TargetClipID}
		}
	}
	return nil
}
