// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides request and response types for the
// orchestrator service.
//
// This file contains the timeline mutation endpoints (append, import,
// seek, move, trim, render). For assistant types, see assistant.go.
package datatypes

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// timelineValidate is the validator instance for timeline datatypes.
// Initialized in init() with custom validators.
var timelineValidate *validator.Validate

func init() {
	timelineValidate = validator.New()

	// Reject output names that escape the exports directory.
	_ = timelineValidate.RegisterValidation("basename", validateBasename)
}

// validateBasename validates that a string field is a bare filename
// with no path separators or parent references, so rendered output
// cannot be steered outside the exports directory.
func validateBasename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}

// =============================================================================
// Timeline Mutation Request Types
// =============================================================================

// AddClipRequest appends a clip to the end of a track.
//
// # Fields
//
//   - SourceFile: Required. Path of the media file the clip plays.
//   - Duration: Required. Clip length in seconds, must be positive.
//   - TrackID: Optional. Defaults to the engine's single video track.
type AddClipRequest struct {
	SourceFile string  `json:"source_file" validate:"required"`
	Duration   float64 `json:"duration" validate:"gt=0"`
	TrackID    string  `json:"track_id"`
}

// Validate validates the AddClipRequest fields.
func (r *AddClipRequest) Validate() error {
	return timelineValidate.Struct(r)
}

// ImportRequest brings an external video into the project: the file is
// probed for duration, transcoded into the uploads directory, and
// appended to the timeline.
type ImportRequest struct {
	Path    string `json:"path" validate:"required"`
	TrackID string `json:"track_id"`
}

// Validate validates the ImportRequest fields.
func (r *ImportRequest) Validate() error {
	return timelineValidate.Struct(r)
}

// SeekRequest moves the playhead. Zero is a valid target, so the field
// carries no required tag; out-of-range values clamp inside the engine.
type SeekRequest struct {
	Time float64 `json:"time" validate:"gte=0"`
}

// Validate validates the SeekRequest fields.
func (r *SeekRequest) Validate() error {
	return timelineValidate.Struct(r)
}

// MoveClipRequest repositions a single clip. Unlike assistant plans,
// which clamp sloppy positions, the manual surface rejects negative
// starts outright.
type MoveClipRequest struct {
	ClipID       string  `json:"clip_id" validate:"required"`
	NewStartTime float64 `json:"new_start_time" validate:"gte=0"`
}

// Validate validates the MoveClipRequest fields.
func (r *MoveClipRequest) Validate() error {
	return timelineValidate.Struct(r)
}

// TrimClipRequest adjusts a clip's edges. At least one delta must be
// present; both follow the engine's trim semantics (positive start
// delta cuts the head, positive end delta extends the tail).
type TrimClipRequest struct {
	ClipID         string   `json:"clip_id" validate:"required"`
	TrimStartDelta *float64 `json:"trim_start_delta" validate:"required_without=TrimEndDelta"`
	TrimEndDelta   *float64 `json:"trim_end_delta"`
}

// Validate validates the TrimClipRequest fields.
func (r *TrimClipRequest) Validate() error {
	return timelineValidate.Struct(r)
}

// =============================================================================
// Render Types
// =============================================================================

// RenderRequest renders the committed timeline to a preview file in
// the exports directory.
//
// # Fields
//
//   - OutputName: Optional. Bare filename for the rendered preview.
//     Path separators and parent references are rejected. Defaults to
//     a timestamped name.
type RenderRequest struct {
	OutputName string `json:"output_name" validate:"omitempty,basename"`
}

// Validate validates the RenderRequest fields.
func (r *RenderRequest) Validate() error {
	return timelineValidate.Struct(r)
}

// EnsureDefaults populates a timestamped output name when the client
// did not pick one.
func (r *RenderRequest) EnsureDefaults() {
	if r.OutputName == "" {
		r.OutputName = fmt.Sprintf("preview_%d.mp4", time.Now().UnixMilli())
	}
}

// RenderResponse reports where the rendered preview landed.
type RenderResponse struct {
	OutputPath string  `json:"output_path"`
	Duration   float64 `json:"duration"`
	ClipCount  int     `json:"clip_count"`
}
