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
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureSink records every published state for assertions.
type captureSink struct {
	mu     sync.Mutex
	states []TimelineState
}

func (s *captureSink) PublishState(ctx context.Context, state TimelineState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, state)
}

func (s *captureSink) published() []TimelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TimelineState, len(s.states))
	copy(out, s.states)
	return out
}

func newTestEngine(t *testing.T, st TimelineState) *Engine {
	t.Helper()
	require.NoError(t, ValidateState(&st), "test fixture must start consistent")
	return NewEngine(WithInitialState(st))
}

// Test deleting the only clip empties the timeline and commits
func TestApplyOps_DeleteOnlyClip(t *testing.T) {
	eng := newTestEngine(t, TimelineState{
		Clips:    []Clip{{ID: "solo", TrackID: DefaultTrackID, Start: 0, Duration: 5}},
		Duration: 5,
		Version:  3,
	})

	got, err := eng.ApplyOps(context.Background(), []Op{DeleteOp{ClipID: "solo"}})
	require.NoError(t, err)

	assert.Empty(t, got.Clips)
	assert.Equal(t, 0.0, got.Duration)
	assert.Equal(t, uint64(4), got.Version)
	require.NoError(t, ValidateState(&got))
}

// Test a move that creates a same-track overlap rolls back wholesale
func TestApplyOps_OverlapRollsBack(t *testing.T) {
	before := twoClipState()
	before.Version = 1
	eng := newTestEngine(t, before)

	_, err := eng.ApplyOps(context.Background(), []Op{
		MoveOp{ClipID: "clip-b", NewStart: 5},
	})
	require.Error(t, err)

	var v OverlapError
	require.True(t, errors.As(err, &v), "want OverlapError, got %v", err)

	after := eng.Snapshot()
	assert.Equal(t, before, after, "rollback must restore the exact pre-batch state")
	assert.Equal(t, uint64(1), after.Version)
}

// Test splitting mid-clip produces two clips that partition the span
func TestApplyOps_SplitMidClip(t *testing.T) {
	eng := newTestEngine(t, TimelineState{
		Clips:    []Clip{{ID: "c", TrackID: DefaultTrackID, Start: 0, Duration: 10, SourceFile: "c.mp4"}},
		Duration: 10,
	})

	got, err := eng.ApplyOps(context.Background(), []Op{SplitOp{ClipID: "c", SplitTime: 4}})
	require.NoError(t, err)

	require.Len(t, got.Clips, 2)
	assert.InDelta(t, 0.0, got.Clips[0].Start, 1e-9)
	assert.InDelta(t, 4.0, got.Clips[0].Duration, 1e-9)
	assert.InDelta(t, 4.0, got.Clips[1].Start, 1e-9)
	assert.InDelta(t, 6.0, got.Clips[1].Duration, 1e-9)
	assert.NotEqual(t, got.Clips[0].ID, got.Clips[1].ID)
	assert.Equal(t, uint64(1), got.Version)
	assert.InDelta(t, 10.0, got.Duration, 1e-9)
}

// Test trimming harder than the clip's length clamps at the minimum
func TestApplyOps_TrimClampsToMinimum(t *testing.T) {
	eng := newTestEngine(t, TimelineState{
		Clips:    []Clip{{ID: "c", TrackID: DefaultTrackID, Start: 0, Duration: 1}},
		Duration: 1,
	})

	got, err := eng.ApplyOps(context.Background(), []Op{
		TrimOp{ClipID: "c", EndDelta: f64(-5)},
	})
	require.NoError(t, err)
	assert.InDelta(t, MinClipDuration, got.Clips[0].Duration, 1e-9)
	assert.InDelta(t, MinClipDuration, got.Duration, 1e-9)
}

// Test a batch referencing an unknown clip commits nothing
func TestApplyOps_UnknownTarget(t *testing.T) {
	before := twoClipState()
	eng := newTestEngine(t, before)

	_, err := eng.ApplyOps(context.Background(), []Op{
		DeleteOp{ClipID: "clip-a"},
		MoveOp{ClipID: "no-such-clip", NewStart: 1},
	})

	var notFound ClipNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "no-such-clip", notFound.ClipID)

	after := eng.Snapshot()
	assert.Equal(t, before, after, "pre-check failure must leave zero mutation")
}

func TestApplyOps_EmptyBatch(t *testing.T) {
	eng := newTestEngine(t, twoClipState())
	_, err := eng.ApplyOps(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoOps)
	assert.Equal(t, uint64(7), eng.Snapshot().Version)
}

// Test ops apply in list order; a later op may see an earlier op's effect
func TestApplyOps_OrderMatters(t *testing.T) {
	eng := newTestEngine(t, twoClipState())

	// Delete clip-a, then move clip-b into the space it vacated.
	got, err := eng.ApplyOps(context.Background(), []Op{
		DeleteOp{ClipID: "clip-a"},
		MoveOp{ClipID: "clip-b", NewStart: 0},
	})
	require.NoError(t, err)
	require.Len(t, got.Clips, 1)
	assert.Equal(t, "clip-b", got.Clips[0].ID)
	assert.InDelta(t, 0.0, got.Clips[0].Start, 1e-9)
	assert.InDelta(t, 5.0, got.Duration, 1e-9)
}

// Test an op whose target vanished earlier in the batch is skipped,
// not fatal
func TestApplyOps_SkipsVanishedTarget(t *testing.T) {
	eng := newTestEngine(t, twoClipState())

	got, err := eng.ApplyOps(context.Background(), []Op{
		DeleteOp{ClipID: "clip-a"},
		MoveOp{ClipID: "clip-a", NewStart: 3}, // existed at pre-check time
	})
	require.NoError(t, err)
	require.Len(t, got.Clips, 1)
	assert.Equal(t, "clip-b", got.Clips[0].ID)
}

// Test an out-of-range split is a no-op but the batch still commits
func TestApplyOps_OutOfRangeSplitStillCommits(t *testing.T) {
	eng := newTestEngine(t, TimelineState{
		Clips:    []Clip{{ID: "c", TrackID: DefaultTrackID, Start: 0, Duration: 10}},
		Duration: 10,
		Version:  5,
	})

	got, err := eng.ApplyOps(context.Background(), []Op{SplitOp{ClipID: "c", SplitTime: 10}})
	require.NoError(t, err)
	require.Len(t, got.Clips, 1)
	assert.Equal(t, uint64(6), got.Version)
}

// Test the playhead is pulled back when a batch shortens the timeline
func TestApplyOps_PlayheadClampedAfterShrink(t *testing.T) {
	st := twoClipState()
	st.PlayheadTime = 14
	eng := newTestEngine(t, st)

	got, err := eng.ApplyOps(context.Background(), []Op{DeleteOp{ClipID: "clip-b"}})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got.Duration, 1e-9)
	assert.InDelta(t, 10.0, got.PlayheadTime, 1e-9)
}

// Test every successful commit advances the version by exactly one
func TestCommitMonotonicity(t *testing.T) {
	eng := NewEngine()
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		got, err := eng.AppendClip(ctx, "clip.mp4", 2, "")
		require.NoError(t, err)
		assert.Equal(t, last+1, got.Version)
		last = got.Version
	}
}

// Test the duration law holds across a mixed sequence of commits
func TestDurationLawAcrossCommits(t *testing.T) {
	eng := NewEngine()
	ctx := context.Background()

	st, err := eng.AppendClip(ctx, "a.mp4", 4, "")
	require.NoError(t, err)
	st, err = eng.AppendClip(ctx, "b.mp4", 6, "")
	require.NoError(t, err)

	clipA := st.Clips[0].ID
	st, err = eng.ApplyOps(ctx, []Op{
		TrimOp{ClipID: clipA, EndDelta: f64(-1)},
		SplitOp{ClipID: st.Clips[1].ID, SplitTime: 7},
	})
	require.NoError(t, err)

	want := 0.0
	for _, c := range st.Clips {
		want = math.Max(want, c.End())
	}
	assert.InDelta(t, want, st.Duration, Epsilon)
	require.NoError(t, ValidateState(&st))
}

func TestAppendClip(t *testing.T) {
	eng := NewEngine()
	ctx := context.Background()

	st, err := eng.AppendClip(ctx, "a.mp4", 4, "")
	require.NoError(t, err)
	require.Len(t, st.Clips, 1)
	assert.Equal(t, DefaultTrackID, st.Clips[0].TrackID)
	assert.InDelta(t, 0.0, st.Clips[0].Start, 1e-9)

	st, err = eng.AppendClip(ctx, "b.mp4", 2.5, "")
	require.NoError(t, err)
	require.Len(t, st.Clips, 2)
	assert.InDelta(t, 4.0, st.Clips[1].Start, 1e-9, "appended clip starts at the previous end")
	assert.InDelta(t, 6.5, st.Duration, 1e-9)
}

// Test appending a non-positive duration commits nothing
func TestAppendClip_InvalidDuration(t *testing.T) {
	eng := NewEngine()

	_, err := eng.AppendClip(context.Background(), "bad.mp4", 0, "")
	var v NonPositiveDurationError
	require.True(t, errors.As(err, &v))

	st := eng.Snapshot()
	assert.Empty(t, st.Clips)
	assert.Equal(t, uint64(0), st.Version)
}

func TestSeek(t *testing.T) {
	eng := newTestEngine(t, twoClipState())
	ctx := context.Background()

	st, err := eng.Seek(ctx, 12)
	require.NoError(t, err)
	assert.InDelta(t, 12.0, st.PlayheadTime, 1e-9)

	st, err = eng.Seek(ctx, -5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.PlayheadTime)

	st, err = eng.Seek(ctx, 99)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, st.PlayheadTime, 1e-9)
}

// Test snapshots are isolated from the engine's internal state
func TestSnapshot_Isolated(t *testing.T) {
	eng := newTestEngine(t, twoClipState())

	snap := eng.Snapshot()
	snap.Clips[0].Start = 999
	snap.Clips = snap.Clips[:1]

	fresh := eng.Snapshot()
	require.Len(t, fresh.Clips, 2)
	assert.InDelta(t, 0.0, fresh.Clips[0].Start, 1e-9)
}

func TestActiveClipAt(t *testing.T) {
	eng := newTestEngine(t, twoClipState())

	clip, ok := eng.ActiveClipAt(3)
	require.True(t, ok)
	assert.Equal(t, "clip-a", clip.ID)

	clip, ok = eng.ActiveClipAt(10)
	require.True(t, ok, "start edge is inclusive")
	assert.Equal(t, "clip-b", clip.ID)

	_, ok = eng.ActiveClipAt(15)
	assert.False(t, ok, "end edge is exclusive")
}

// Test the sink receives exactly the committed states, in order
func TestStateSinkNotification(t *testing.T) {
	sink := &captureSink{}
	eng := NewEngine(WithStateSink(sink))
	ctx := context.Background()

	_, err := eng.AppendClip(ctx, "a.mp4", 3, "")
	require.NoError(t, err)

	// A failed mutation publishes nothing.
	_, err = eng.AppendClip(ctx, "bad.mp4", -1, "")
	require.Error(t, err)

	_, err = eng.Seek(ctx, 1)
	require.NoError(t, err)

	published := sink.published()
	require.Len(t, published, 2)
	assert.Equal(t, uint64(1), published[0].Version)
	assert.Equal(t, uint64(2), published[1].Version)
	assert.InDelta(t, 1.0, published[1].PlayheadTime, 1e-9)
}

// Test concurrent appenders serialize cleanly through the lock
func TestEngine_ConcurrentAppends(t *testing.T) {
	eng := NewEngine()
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.AppendClip(ctx, "c.mp4", 1, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st := eng.Snapshot()
	assert.Equal(t, uint64(n), st.Version)
	assert.Len(t, st.Clips, n)
	assert.InDelta(t, float64(n), st.Duration, Epsilon)
	require.NoError(t, ValidateState(&st))
}
