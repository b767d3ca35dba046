// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package timeline holds the canonical editing state for a Ghost project
// and the single-writer mutation engine that changes it.
//
// All timing values are seconds expressed as float64. Comparisons use a
// fixed tolerance (Epsilon) to absorb floating point drift; see
// invariants.go for the integrity rules enforced on every commit.
package timeline

import (
	"math"
)

// DefaultTrackID is the track new clips land on when the caller does not
// specify one. Multi-track editing reuses the same invariants per track.
const DefaultTrackID = "video_track_1"

// Clip is one piece of media placed on the timeline.
//
// The zero value is not valid: a real clip always has a non-empty ID and
// a positive Duration. IDs are UUID strings, assigned once at creation
// (or at split time for the right-hand half) and never reused.
type Clip struct {
	// ID uniquely identifies the clip for the life of the timeline.
	ID string `json:"id"`

	// TrackID names the track the clip sits on. Clips on different
	// tracks may overlap in time; clips on the same track may not.
	TrackID string `json:"track_id"`

	// Start is the clip's position on the timeline, in seconds.
	Start float64 `json:"start"`

	// Duration is the clip's length in seconds. Always > 0 in a
	// committed state.
	Duration float64 `json:"duration"`

	// SourceFile is the path of the backing media. The engine treats
	// it as opaque; only the media service interprets it.
	SourceFile string `json:"source_file"`
}

// End returns the clip's end position on the timeline, in seconds.
func (c Clip) End() float64 {
	return c.Start + c.Duration
}

// Contains reports whether t falls inside the clip's span.
// The start edge is inclusive, the end edge exclusive.
func (c Clip) Contains(t float64) bool {
	return t >= c.Start && t < c.End()
}

// TimelineState is the complete editing state of a project.
//
// Duration is derived: it always equals the maximum clip end (or 0 for
// an empty timeline). The engine recomputes it after every mutation;
// ValidateState rejects states where the stored value drifted.
type TimelineState struct {
	// Clips in insertion order. Order within the slice carries no
	// temporal meaning; position on the timeline comes from Start.
	Clips []Clip `json:"clips"`

	// Duration is the total timeline length in seconds.
	Duration float64 `json:"duration"`

	// PlayheadTime is the current playback position in seconds,
	// always within [0, Duration].
	PlayheadTime float64 `json:"playhead_time"`

	// Version counts committed mutations. Readers compare versions
	// to detect stale snapshots; it never moves backwards and each
	// commit advances it by exactly one.
	Version uint64 `json:"version"`
}

// Clone returns a deep copy of the state.
//
// Clips contain only value fields, so copying the backing slice is a
// full deep copy. Snapshots taken for rollback and the states handed
// to readers both come from here, so no caller can alias the engine's
// internal slice.
func (s TimelineState) Clone() TimelineState {
	out := s
	out.Clips = make([]Clip, len(s.Clips))
	copy(out.Clips, s.Clips)
	return out
}

// HasClip reports whether a clip with the given id exists.
func (s *TimelineState) HasClip(id string) bool {
	return s.clipIndex(id) >= 0
}

// ClipByID returns a copy of the clip with the given id.
func (s *TimelineState) ClipByID(id string) (Clip, bool) {
	idx := s.clipIndex(id)
	if idx < 0 {
		return Clip{}, false
	}
	return s.Clips[idx], true
}

// ActiveClipAt returns the clip under the given time, if any.
// When clips on multiple tracks cover t, the first in slice order wins.
func (s *TimelineState) ActiveClipAt(t float64) (Clip, bool) {
	for _, c := range s.Clips {
		if c.Contains(t) {
			return c, true
		}
	}
	return Clip{}, false
}

// clipIndex returns the slice index of the clip with the given id,
// or -1 when absent.
func (s *TimelineState) clipIndex(id string) int {
	for i := range s.Clips {
		if s.Clips[i].ID == id {
			return i
		}
	}
	return -1
}

// computedDuration returns the derived timeline duration: the maximum
// clip end, or 0 when no clips remain.
func computedDuration(clips []Clip) float64 {
	total := 0.0
	for _, c := range clips {
		total = math.Max(total, c.End())
	}
	return total
}
