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
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("ghostcut.timeline")

// ErrNoOps is returned when an empty batch reaches the engine. The
// admission gate rejects empty plans before they get here; this guard
// keeps a bug in a caller from burning a version number on nothing.
var ErrNoOps = errors.New("edit batch contains no operations")

// ClipNotFoundError reports an operation that targets a clip id not
// present on the timeline. It is returned both by plan admission
// (checked against a snapshot) and by the engine itself, which re-runs
// the check under the lock because the timeline may have changed in
// between.
type ClipNotFoundError struct {
	ClipID string
}

func (e ClipNotFoundError) Error() string {
	return fmt.Sprintf("clip %q does not exist on the timeline", e.ClipID)
}

// Engine is the single writer for a project's timeline.
//
// # Description
//
// All mutations pass through one mutex: whoever holds it runs the full
// mutate -> recompute -> validate -> commit-or-rollback sequence before
// anyone else can observe the state. A mutation either commits in full
// (version advances by exactly one) or leaves the stored state
// untouched. Readers get deep-copied snapshots and can never alias
// engine internals.
//
// Long-latency work (LLM generation, probing media, rendering) must
// happen before calling into the engine; nothing inside the critical
// section blocks on I/O and there is no cancellation point once the
// lock is held.
//
// # Thread Safety
//
// Safe for concurrent use. The zero value is not usable; construct
// with NewEngine.
type Engine struct {
	mu    sync.Mutex
	state TimelineState
	sink  StateSink
	log   *slog.Logger
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithStateSink wires an observer that receives every committed state.
func WithStateSink(sink StateSink) EngineOption {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithInitialState seeds the engine with an existing state, for
// example one restored from a project file. The state is cloned and
// used verbatim, version included.
func WithInitialState(st TimelineState) EngineOption {
	return func(e *Engine) {
		e.state = st.Clone()
	}
}

// WithLogger overrides the logger used for commit and rollback events.
func WithLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates an engine with an empty timeline.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		sink: DefaultStateSink,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a deep copy of the current state.
//
// The snapshot is consistent (taken under the lock) but immediately
// stale: compare Version against a later snapshot to detect missed
// commits.
func (e *Engine) Snapshot() TimelineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// ActiveClipAt returns the clip under the given time, if any.
func (e *Engine) ActiveClipAt(t float64) (Clip, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ActiveClipAt(t)
}

// ApplyOps applies an edit batch transactionally.
//
// # Description
//
//	The batch is all-or-nothing. Before any op runs, every target id is
//	re-checked against the locked state: admission ran against a
//	snapshot and the timeline may have changed since. Ops then apply in
//	order; an op whose target was removed by an earlier op in the same
//	batch is skipped with a warning rather than failing the batch.
//
//	After the last op the derived duration is recomputed, the playhead
//	clamped, and the full invariant set validated. Any violation rolls
//	the state back to the pre-batch snapshot.
//
// # Inputs
//
//	ctx - Carries the request trace span. Not a cancellation point:
//	      once the lock is held the batch runs to completion.
//	ops - The operations to apply, in order.
//
// # Outputs
//
//	TimelineState - A clone of the committed state.
//	error - ErrNoOps, ClipNotFoundError, or an InvariantViolation.
//	        On error the stored state is unchanged.
func (e *Engine) ApplyOps(ctx context.Context, ops []Op) (TimelineState, error) {
	if len(ops) == 0 {
		return TimelineState{}, ErrNoOps
	}
	return e.commit(ctx, "apply_ops", func(st *TimelineState) error {
		for _, op := range ops {
			if !st.HasClip(op.TargetClipID()) {
				return ClipNotFoundError{ClipID: op.TargetClipID()}
			}
		}
		for _, op := range ops {
			if out := op.apply(st); !out.applied {
				e.log.Warn("op skipped",
					"kind", op.Kind(),
					"clip_id", op.TargetClipID(),
					"reason", out.note,
				)
			}
		}
		return nil
	})
}

// AppendClip places a new clip at the current end of a track.
//
// The clip starts where the timeline currently ends, so appends never
// overlap existing material. An empty trackID selects DefaultTrackID.
// A non-positive duration fails validation and commits nothing.
func (e *Engine) AppendClip(ctx context.Context, sourceFile string, duration float64, trackID string) (TimelineState, error) {
	if trackID == "" {
		trackID = DefaultTrackID
	}
	return e.commit(ctx, "append_clip", func(st *TimelineState) error {
		st.Clips = append(st.Clips, Clip{
			ID:         uuid.NewString(),
			TrackID:    trackID,
			Start:      st.Duration,
			Duration:   duration,
			SourceFile: sourceFile,
		})
		return nil
	})
}

// Seek moves the playhead, clamped into [0, duration].
func (e *Engine) Seek(ctx context.Context, t float64) (TimelineState, error) {
	return e.commit(ctx, "seek", func(st *TimelineState) error {
		st.PlayheadTime = math.Min(math.Max(t, 0), st.Duration)
		return nil
	})
}

// commit runs one mutation through the engine's transaction sequence:
//
//	lock -> snapshot -> mutate -> recompute duration -> clamp playhead
//	     -> validate -> commit (version+1) | rollback
//
// The committed clone is published to the sink after the lock is
// released so a slow observer cannot extend the critical section.
func (e *Engine) commit(ctx context.Context, op string, mutate func(*TimelineState) error) (TimelineState, error) {
	ctx, span := tracer.Start(ctx, "timeline.commit")
	defer span.End()
	span.SetAttributes(attribute.String("timeline.op", op))

	e.mu.Lock()
	snapshot := e.state.Clone()

	err := mutate(&e.state)
	if err == nil {
		e.state.Duration = computedDuration(e.state.Clips)
		if e.state.PlayheadTime > e.state.Duration {
			e.state.PlayheadTime = e.state.Duration
		}
		if e.state.PlayheadTime < 0 {
			e.state.PlayheadTime = 0
		}
		err = ValidateState(&e.state)
	}
	if err != nil {
		e.state = snapshot
		e.mu.Unlock()

		span.RecordError(err)
		var violation InvariantViolation
		if errors.As(err, &violation) {
			span.SetStatus(codes.Error, "rolled back")
			e.log.Error("mutation rolled back",
				"op", op,
				"violation", violation.Code(),
				"error", err.Error(),
			)
		} else {
			span.SetStatus(codes.Error, "rejected")
			e.log.Warn("mutation rejected", "op", op, "error", err.Error())
		}
		return TimelineState{}, err
	}

	e.state.Version++
	committed := e.state.Clone()
	e.mu.Unlock()

	span.SetAttributes(
		attribute.Int64("timeline.version", int64(committed.Version)),
		attribute.Float64("timeline.duration_s", committed.Duration),
	)
	e.log.Info("mutation committed",
		"op", op,
		"version", committed.Version,
		"clips", len(committed.Clips),
		"duration_s", committed.Duration,
	)
	e.sink.PublishState(ctx, committed)
	return committed, nil
}
