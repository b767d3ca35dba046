// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
	"github.com/GhostCutAI/GhostLocal/services/media"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/datatypes"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/observability"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

var timelineTracer = otel.Tracer("ghostcut.orchestrator.handlers")

// manualMoveDetails is the audit payload for a manual reposition.
type manualMoveDetails struct {
	ClipID       string  `json:"clip_id"`
	NewStartTime float64 `json:"new_start_time"`
}

// manualTrimDetails is the audit payload for a manual edge adjustment.
type manualTrimDetails struct {
	ClipID         string   `json:"clip_id"`
	TrimStartDelta *float64 `json:"trim_start_delta,omitempty"`
	TrimEndDelta   *float64 `json:"trim_end_delta,omitempty"`
}

// GetTimeline returns the committed timeline state.
func GetTimeline(engine *timeline.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.Snapshot())
	}
}

// AddClip appends a clip with a caller-declared duration. Used by the
// UI for generated or pre-probed media; external files go through
// ImportMedia instead.
func AddClip(engine *timeline.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AddClipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		state, err := engine.AppendClip(c.Request.Context(), req.SourceFile, req.Duration, req.TrackID)
		if err != nil {
			respondMutationError(c, err)
			return
		}
		publishClipCount(state)
		c.JSON(http.StatusOK, state)
	}
}

// ImportMedia brings an external video into the project: probe for
// duration, transcode into the uploads directory, append to the
// timeline. The probe runs first so a bad path fails before the
// expensive transcode.
func ImportMedia(engine *timeline.Engine, mediaEngine *media.Engine, uploadsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := timelineTracer.Start(c.Request.Context(), "ImportMedia")
		defer span.End()

		var req datatypes.ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		duration, err := mediaEngine.ProbeDuration(ctx, req.Path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "probe failed")
			slog.Error("media probe failed", "path", req.Path, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "cannot probe media file: " + err.Error()})
			return
		}

		imported, err := mediaEngine.TranscodeToH264(ctx, req.Path, uploadsDir)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "transcode failed")
			slog.Error("media transcode failed", "path", req.Path, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transcode failed: " + err.Error()})
			return
		}

		state, err := engine.AppendClip(ctx, imported, duration, req.TrackID)
		if err != nil {
			respondMutationError(c, err)
			return
		}
		publishClipCount(state)
		c.JSON(http.StatusOK, state)
	}
}

// SeekTimeline moves the playhead. The engine clamps the target into
// the valid range, so this never fails on an out-of-bounds time.
func SeekTimeline(engine *timeline.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.SeekRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		state, err := engine.Seek(c.Request.Context(), req.Time)
		if err != nil {
			respondMutationError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

// MoveClip repositions a single clip through the transactional engine
// and records the edit as a MANUAL_MOVE interaction so the assistant's
// prompt context reflects hand edits.
func MoveClip(engine *timeline.Engine, prefs *preferences.Manager, auditor extensions.InteractionAuditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.MoveClipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		op := timeline.MoveOp{ClipID: req.ClipID, NewStart: req.NewStartTime}
		state, err := engine.ApplyOps(ctx, []timeline.Op{op})
		if err != nil {
			respondMutationError(c, err)
			return
		}

		recordManualEdit(ctx, prefs, auditor, preferences.EventManualMove,
			manualMoveDetails{ClipID: req.ClipID, NewStartTime: req.NewStartTime})
		if m := observability.DefaultMetrics; m != nil {
			m.RecordManualEdit("move")
		}
		publishClipCount(state)
		c.JSON(http.StatusOK, state)
	}
}

// TrimClip adjusts a clip's edges through the transactional engine and
// records the edit as a MANUAL_TRIM interaction.
func TrimClip(engine *timeline.Engine, prefs *preferences.Manager, auditor extensions.InteractionAuditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.TrimClipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		op := timeline.TrimOp{ClipID: req.ClipID, StartDelta: req.TrimStartDelta, EndDelta: req.TrimEndDelta}
		state, err := engine.ApplyOps(ctx, []timeline.Op{op})
		if err != nil {
			respondMutationError(c, err)
			return
		}

		recordManualEdit(ctx, prefs, auditor, preferences.EventManualTrim,
			manualTrimDetails{ClipID: req.ClipID, TrimStartDelta: req.TrimStartDelta, TrimEndDelta: req.TrimEndDelta})
		if m := observability.DefaultMetrics; m != nil {
			m.RecordManualEdit("trim")
		}
		publishClipCount(state)
		c.JSON(http.StatusOK, state)
	}
}

// RenderTimeline renders the committed timeline to a preview file in
// the exports directory. An empty request body renders with defaults.
func RenderTimeline(engine *timeline.Engine, mediaEngine *media.Engine, exportsDir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := timelineTracer.Start(c.Request.Context(), "RenderTimeline")
		defer span.End()

		var req datatypes.RenderRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.EnsureDefaults()

		state := engine.Snapshot()
		outputPath := filepath.Join(exportsDir, req.OutputName)
		if err := mediaEngine.RenderTimeline(ctx, state, outputPath); err != nil {
			if errors.Is(err, media.ErrEmptyTimeline) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "render failed")
			slog.Error("timeline render failed", "output", outputPath, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "render failed: " + err.Error()})
			return
		}

		c.JSON(http.StatusOK, datatypes.RenderResponse{
			OutputPath: outputPath,
			Duration:   state.Duration,
			ClipCount:  len(state.Clips),
		})
	}
}

// genericRejection is what clients see when an invariant rollback
// rejects an edit. The violation detail names internal clip ids and
// derived values; it goes to the log and the metric label, not the
// response.
const genericRejection = "edit could not be applied"

// respondMutationError maps engine failures onto HTTP statuses: a
// missing target is the client's stale view (404), an invariant
// rollback is a state conflict (409), anything else is internal.
func respondMutationError(c *gin.Context, err error) {
	var notFound timeline.ClipNotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var violation timeline.InvariantViolation
	if errors.As(err, &violation) {
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRollback(violation.Code())
		}
		c.JSON(http.StatusConflict, gin.H{"error": genericRejection, "code": violation.Code()})
		return
	}
	slog.Error("timeline mutation failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// recordManualEdit logs a hand edit to both interaction stores. The
// mutation already committed; logging failures degrade to warnings.
func recordManualEdit(ctx context.Context, prefs *preferences.Manager, auditor extensions.InteractionAuditor, eventType string, details any) {
	if err := prefs.LogInteraction(eventType, details); err != nil {
		slog.Warn("failed to log manual edit to preferences", "event", eventType, "error", err)
	}
	if auditor == nil {
		return
	}
	if err := auditor.Record(ctx, eventType, details); err != nil {
		slog.Warn("failed to record manual edit in audit trail", "event", eventType, "error", err)
	}
}

// publishClipCount refreshes the clip gauge after a commit.
func publishClipCount(state timeline.TimelineState) {
	if m := observability.DefaultMetrics; m != nil {
		m.SetClipCount(len(state.Clips))
	}
}
