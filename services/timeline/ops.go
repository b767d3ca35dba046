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

	"github.com/google/uuid"
)

// Op is one mutation within an edit batch. Each kind carries exactly
// the parameters meaningful for it, so an op that decoded successfully
// can never hit a missing-parameter case during apply.
//
// The interface is sealed: only the op types in this package implement
// it, which keeps the apply switch in the engine exhaustive.
type Op interface {
	// TargetClipID returns the id of the clip the op mutates.
	TargetClipID() string

	// Kind returns the canonical action name (DELETE, MOVE, TRIM,
	// SPLIT) for logs and audit records.
	Kind() string

	// apply mutates st in place and reports whether anything changed.
	// Targets that vanished earlier in the same batch are skipped.
	apply(st *TimelineState) opOutcome
}

// opOutcome describes what a single op did.
type opOutcome struct {
	applied bool
	note    string // set when skipped, for the warn log
}

func opApplied() opOutcome {
	return opOutcome{applied: true}
}

func opSkipped(note string) opOutcome {
	return opOutcome{note: note}
}

// DeleteOp removes a clip from the timeline.
type DeleteOp struct {
	ClipID string
}

func (o DeleteOp) TargetClipID() string { return o.ClipID }
func (o DeleteOp) Kind() string         { return "DELETE" }

func (o DeleteOp) apply(st *TimelineState) opOutcome {
	idx := st.clipIndex(o.ClipID)
	if idx < 0 {
		return opSkipped("target clip no longer present")
	}
	st.Clips = append(st.Clips[:idx], st.Clips[idx+1:]...)
	return opApplied()
}

// MoveOp repositions a clip. Negative targets clamp to the timeline
// origin rather than failing, so the LLM can say "move to the start"
// imprecisely.
type MoveOp struct {
	ClipID   string
	NewStart float64
}

func (o MoveOp) TargetClipID() string { return o.ClipID }
func (o MoveOp) Kind() string         { return "MOVE" }

func (o MoveOp) apply(st *TimelineState) opOutcome {
	idx := st.clipIndex(o.ClipID)
	if idx < 0 {
		return opSkipped("target clip no longer present")
	}
	st.Clips[idx].Start = math.Max(o.NewStart, 0)
	return opApplied()
}

// TrimOp adjusts a clip's edges. StartDelta shifts the in-point:
// positive values cut material from the head (start moves later,
// duration shrinks). EndDelta adjusts the out-point: positive values
// extend the clip, negative values cut the tail. At least one delta is
// always set.
//
// Results are clamped rather than rejected: duration never drops below
// MinClipDuration and start never goes negative.
type TrimOp struct {
	ClipID     string
	StartDelta *float64
	EndDelta   *float64
}

func (o TrimOp) TargetClipID() string { return o.ClipID }
func (o TrimOp) Kind() string         { return "TRIM" }

func (o TrimOp) apply(st *TimelineState) opOutcome {
	idx := st.clipIndex(o.ClipID)
	if idx < 0 {
		return opSkipped("target clip no longer present")
	}
	clip := &st.Clips[idx]
	if o.StartDelta != nil {
		clip.Start += *o.StartDelta
		clip.Duration -= *o.StartDelta
	}
	if o.EndDelta != nil {
		clip.Duration += *o.EndDelta
	}
	if clip.Duration < MinClipDuration {
		clip.Duration = MinClipDuration
	}
	if clip.Start < 0 {
		clip.Start = 0
	}
	return opApplied()
}

// SplitOp cuts a clip in two at an absolute timeline position. The
// left half keeps the original id; the right half gets a fresh UUID
// and is inserted immediately after it. A split point on or outside
// the clip's edges is a no-op: there is nothing meaningful to cut.
type SplitOp struct {
	ClipID    string
	SplitTime float64
}

func (o SplitOp) TargetClipID() string { return o.ClipID }
func (o SplitOp) Kind() string         { return "SPLIT" }

func (o SplitOp) apply(st *TimelineState) opOutcome {
	idx := st.clipIndex(o.ClipID)
	if idx < 0 {
		return opSkipped("target clip no longer present")
	}
	clip := &st.Clips[idx]
	relative := o.SplitTime - clip.Start
	if relative <= 0 || relative >= clip.Duration {
		return opSkipped(fmt.Sprintf("split time %.2fs outside clip span [%.2fs, %.2fs]",
			o.SplitTime, clip.Start, clip.End()))
	}

	second := *clip
	second.ID = uuid.NewString()
	second.Start = o.SplitTime
	second.Duration = clip.Duration - relative
	clip.Duration = relative

	// Insert the right half directly after the original.
	st.Clips = append(st.Clips, Clip{})
	copy(st.Clips[idx+2:], st.Clips[idx+1:])
	st.Clips[idx+1] = second
	return opApplied()
}
