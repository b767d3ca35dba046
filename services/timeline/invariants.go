// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package timeline

import (
	"fmt"
	"math"
	"sort"
)

const (
	// Epsilon is the tolerance for float comparisons on timing values,
	// in seconds. Adjacent clips whose boundary differs by less than
	// this are considered touching, not overlapping.
	Epsilon = 0.001

	// MinClipDuration is the floor a trim can shrink a clip to, in
	// seconds. Trims that would cut further are clamped here rather
	// than rejected.
	MinClipDuration = 0.1
)

// InvariantViolation is implemented by every timeline integrity
// violation. The set of implementations is closed: rollback handling
// and metrics switch on Code(), and new violations require a new
// validator check.
type InvariantViolation interface {
	error

	// Code returns a stable machine-readable identifier, used as a
	// metrics label and in structured logs.
	Code() string

	violation()
}

// NonPositiveDurationError reports a clip whose duration is zero or
// negative.
type NonPositiveDurationError struct {
	ClipID   string
	Duration float64
}

func (e NonPositiveDurationError) Error() string {
	return fmt.Sprintf("clip %q has invalid duration %.2fs (must be > 0)", e.ClipID, e.Duration)
}

func (e NonPositiveDurationError) Code() string { return "non_positive_duration" }
func (e NonPositiveDurationError) violation()   {}

// NegativeStartError reports a clip placed before the timeline origin.
type NegativeStartError struct {
	ClipID string
	Start  float64
}

func (e NegativeStartError) Error() string {
	return fmt.Sprintf("clip %q has negative start time %.2fs", e.ClipID, e.Start)
}

func (e NegativeStartError) Code() string { return "negative_start" }
func (e NegativeStartError) violation()   {}

// OverlapError reports two clips on the same track occupying
// overlapping time spans.
type OverlapError struct {
	TrackID   string
	PrevID    string
	NextID    string
	PrevEnd   float64
	NextStart float64
}

func (e OverlapError) Error() string {
	return fmt.Sprintf("overlapping clips on track %q: %q ends at %.2fs, %q starts at %.2fs",
		e.TrackID, e.PrevID, e.PrevEnd, e.NextID, e.NextStart)
}

func (e OverlapError) Code() string { return "overlap" }
func (e OverlapError) violation()   {}

// DurationMismatchError reports a stored timeline duration that
// drifted from the value derived from the clips.
type DurationMismatchError struct {
	Stored   float64
	Computed float64
}

func (e DurationMismatchError) Error() string {
	return fmt.Sprintf("timeline duration mismatch: stored %.2fs, computed %.2fs", e.Stored, e.Computed)
}

func (e DurationMismatchError) Code() string { return "duration_mismatch" }
func (e DurationMismatchError) violation()   {}

// PlayheadOutOfRangeError reports a playhead outside [0, duration].
type PlayheadOutOfRangeError struct {
	Playhead float64
	Duration float64
}

func (e PlayheadOutOfRangeError) Error() string {
	return fmt.Sprintf("playhead %.2fs is out of bounds (timeline duration %.2fs)", e.Playhead, e.Duration)
}

func (e PlayheadOutOfRangeError) Code() string { return "playhead_out_of_range" }
func (e PlayheadOutOfRangeError) violation()   {}

// ValidateState checks the five timeline integrity rules and returns
// the first violation found, or nil for a consistent state.
//
// # Description
//
//	Each rule runs as its own pass over the clips, in a fixed order:
//	positive duration, non-negative start, same-track overlap, derived
//	duration consistency, playhead bounds. A state breaking several
//	rules always reports the earliest rule, regardless of clip order.
//	Later checks can assume earlier ones passed, which is what makes
//	the overlap scan's sort meaningful.
//
// # Inputs
//
//	st - The state to check. Never mutated.
//
// # Outputs
//
//	error - nil, or the first InvariantViolation encountered.
//
// # Limitations
//
//	The function is a pure read and safe to call on any snapshot, but
//	callers validating the engine's live state must hold the engine
//	lock themselves.
func ValidateState(st *TimelineState) error {
	for _, c := range st.Clips {
		if c.Duration <= 0 {
			return NonPositiveDurationError{ClipID: c.ID, Duration: c.Duration}
		}
	}

	for _, c := range st.Clips {
		if c.Start < 0 {
			return NegativeStartError{ClipID: c.ID, Start: c.Start}
		}
	}

	if err := checkOverlaps(st.Clips); err != nil {
		return err
	}

	computed := computedDuration(st.Clips)
	if math.Abs(st.Duration-computed) > Epsilon {
		return DurationMismatchError{Stored: st.Duration, Computed: computed}
	}

	if st.PlayheadTime < 0 || st.PlayheadTime > st.Duration+Epsilon {
		return PlayheadOutOfRangeError{Playhead: st.PlayheadTime, Duration: st.Duration}
	}

	return nil
}

// checkOverlaps scans each track for clips whose spans intersect.
//
// Clips are grouped by track and sorted by start time; adjacent pairs
// overlap when the earlier clip ends more than Epsilon past the later
// clip's start. Exact adjacency (prev end == next start) passes.
// Tracks are visited in sorted id order so diagnostics are stable.
func checkOverlaps(clips []Clip) error {
	byTrack := make(map[string][]Clip)
	for _, c := range clips {
		byTrack[c.TrackID] = append(byTrack[c.TrackID], c)
	}

	trackIDs := make([]string, 0, len(byTrack))
	for id := range byTrack {
		trackIDs = append(trackIDs, id)
	}
	sort.Strings(trackIDs)

	for _, trackID := range trackIDs {
		track := byTrack[trackID]
		sort.Slice(track, func(i, j int) bool {
			return track[i].Start < track[j].Start
		})
		for i := 1; i < len(track); i++ {
			prev, next := track[i-1], track[i]
			if prev.End() > next.Start+Epsilon {
				return OverlapError{
					TrackID:   trackID,
					PrevID:    prev.ID,
					NextID:    next.ID,
					PrevEnd:   prev.End(),
					NextStart: next.Start,
				}
			}
		}
	}
	return nil
}
