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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestDeleteOp(t *testing.T) {
	st := twoClipState()
	out := DeleteOp{ClipID: "clip-a"}.apply(&st)

	require.True(t, out.applied)
	require.Len(t, st.Clips, 1)
	assert.Equal(t, "clip-b", st.Clips[0].ID)
}

func TestDeleteOp_MissingTargetSkips(t *testing.T) {
	st := twoClipState()
	out := DeleteOp{ClipID: "gone"}.apply(&st)

	assert.False(t, out.applied)
	assert.NotEmpty(t, out.note)
	assert.Len(t, st.Clips, 2)
}

func TestMoveOp(t *testing.T) {
	st := twoClipState()
	out := MoveOp{ClipID: "clip-b", NewStart: 20}.apply(&st)

	require.True(t, out.applied)
	assert.InDelta(t, 20.0, st.Clips[1].Start, 1e-9)
	// Other fields untouched.
	assert.InDelta(t, 5.0, st.Clips[1].Duration, 1e-9)
	assert.InDelta(t, 0.0, st.Clips[0].Start, 1e-9)
}

// Test a negative move target clamps to the timeline origin
func TestMoveOp_ClampsNegativeStart(t *testing.T) {
	st := twoClipState()
	out := MoveOp{ClipID: "clip-b", NewStart: -3}.apply(&st)

	require.True(t, out.applied)
	assert.Equal(t, 0.0, st.Clips[1].Start)
}

func TestTrimOp_StartDelta(t *testing.T) {
	st := twoClipState()
	out := TrimOp{ClipID: "clip-a", StartDelta: f64(2)}.apply(&st)

	require.True(t, out.applied)
	assert.InDelta(t, 2.0, st.Clips[0].Start, 1e-9)
	assert.InDelta(t, 8.0, st.Clips[0].Duration, 1e-9)
}

func TestTrimOp_EndDelta(t *testing.T) {
	st := twoClipState()
	out := TrimOp{ClipID: "clip-a", EndDelta: f64(-4)}.apply(&st)

	require.True(t, out.applied)
	assert.InDelta(t, 0.0, st.Clips[0].Start, 1e-9)
	assert.InDelta(t, 6.0, st.Clips[0].Duration, 1e-9)
}

func TestTrimOp_BothDeltas(t *testing.T) {
	st := twoClipState()
	out := TrimOp{ClipID: "clip-a", StartDelta: f64(1), EndDelta: f64(-2)}.apply(&st)

	require.True(t, out.applied)
	assert.InDelta(t, 1.0, st.Clips[0].Start, 1e-9)
	// 10 - 1 (head cut) - 2 (tail cut) = 7
	assert.InDelta(t, 7.0, st.Clips[0].Duration, 1e-9)
}

// Test a trim can never shrink a clip below the minimum duration
func TestTrimOp_ClampsMinimumDuration(t *testing.T) {
	st := TimelineState{
		Clips:    []Clip{{ID: "c", TrackID: DefaultTrackID, Start: 0, Duration: 1}},
		Duration: 1,
	}
	out := TrimOp{ClipID: "c", EndDelta: f64(-5)}.apply(&st)

	require.True(t, out.applied)
	assert.InDelta(t, MinClipDuration, st.Clips[0].Duration, 1e-9)
}

// Test a negative start delta cannot push the clip before the origin
func TestTrimOp_ClampsNegativeStart(t *testing.T) {
	st := twoClipState()
	out := TrimOp{ClipID: "clip-a", StartDelta: f64(-3)}.apply(&st)

	require.True(t, out.applied)
	assert.Equal(t, 0.0, st.Clips[0].Start)
	// The head extension still lengthens the clip.
	assert.InDelta(t, 13.0, st.Clips[0].Duration, 1e-9)
}

func TestSplitOp_MidClip(t *testing.T) {
	st := TimelineState{
		Clips:    []Clip{{ID: "c", TrackID: DefaultTrackID, Start: 0, Duration: 10, SourceFile: "c.mp4"}},
		Duration: 10,
	}
	out := SplitOp{ClipID: "c", SplitTime: 4}.apply(&st)

	require.True(t, out.applied)
	require.Len(t, st.Clips, 2)

	left, right := st.Clips[0], st.Clips[1]
	assert.Equal(t, "c", left.ID)
	assert.InDelta(t, 0.0, left.Start, 1e-9)
	assert.InDelta(t, 4.0, left.Duration, 1e-9)

	assert.NotEqual(t, "c", right.ID)
	assert.NotEmpty(t, right.ID)
	assert.InDelta(t, 4.0, right.Start, 1e-9)
	assert.InDelta(t, 6.0, right.Duration, 1e-9)
	assert.Equal(t, left.TrackID, right.TrackID)
	assert.Equal(t, left.SourceFile, right.SourceFile)
}

// Test the right half is inserted directly after the original,
// not appended to the end
func TestSplitOp_InsertPosition(t *testing.T) {
	st := TimelineState{
		Clips: []Clip{
			{ID: "first", TrackID: DefaultTrackID, Start: 0, Duration: 10},
			{ID: "last", TrackID: DefaultTrackID, Start: 10, Duration: 5},
		},
		Duration: 15,
	}
	out := SplitOp{ClipID: "first", SplitTime: 4}.apply(&st)

	require.True(t, out.applied)
	require.Len(t, st.Clips, 3)
	assert.Equal(t, "first", st.Clips[0].ID)
	assert.Equal(t, "last", st.Clips[2].ID)
	assert.InDelta(t, 4.0, st.Clips[1].Start, 1e-9)
}

// Test splits at or outside the clip edges are no-ops
func TestSplitOp_OutOfRangeSkips(t *testing.T) {
	tests := []struct {
		name      string
		splitTime float64
	}{
		{"at start", 0},
		{"at end", 10},
		{"before clip", -2},
		{"past end", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := TimelineState{
				Clips:    []Clip{{ID: "c", TrackID: DefaultTrackID, Start: 0, Duration: 10}},
				Duration: 10,
			}
			out := SplitOp{ClipID: "c", SplitTime: tt.splitTime}.apply(&st)

			assert.False(t, out.applied)
			assert.NotEmpty(t, out.note)
			require.Len(t, st.Clips, 1)
			assert.InDelta(t, 10.0, st.Clips[0].Duration, 1e-9)
		})
	}
}

// Test two splits produce distinct generated ids
func TestSplitOp_FreshIDs(t *testing.T) {
	st := TimelineState{
		Clips:    []Clip{{ID: "c", TrackID: DefaultTrackID, Start: 0, Duration: 12}},
		Duration: 12,
	}
	require.True(t, SplitOp{ClipID: "c", SplitTime: 4}.apply(&st).applied)
	require.True(t, SplitOp{ClipID: "c", SplitTime: 2}.apply(&st).applied)

	seen := map[string]bool{}
	for _, c := range st.Clips {
		assert.False(t, seen[c.ID], "duplicate clip id %q", c.ID)
		seen[c.ID] = true
	}
}

func TestOpKinds(t *testing.T) {
	assert.Equal(t, "DELETE", DeleteOp{}.Kind())
	assert.Equal(t, "MOVE", MoveOp{}.Kind())
	assert.Equal(t, "TRIM", TrimOp{}.Kind())
	assert.Equal(t, "SPLIT", SplitOp{}.Kind())
}
