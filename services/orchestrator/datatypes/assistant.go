// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request types for the assistant endpoints
// (prompt generation and plan application).
package datatypes

import (
	"github.com/go-playground/validator/v10"

	"github.com/GhostCutAI/GhostLocal/services/llm"
)

// =============================================================================
// Size Limits
// =============================================================================

const (
	// MaxInstructionBytes is the maximum size of a user instruction.
	// Instructions are short imperative sentences; anything beyond this
	// is either an accident or an attack on the prompt budget.
	MaxInstructionBytes = 8 * 1024 // 8KB

	// MaxContextOverrideBytes is the maximum size of a caller-edited
	// context block. A full 50-clip context renders well under this.
	MaxContextOverrideBytes = 32 * 1024 // 32KB

	// MaxRawResponseBytes is the maximum size of a raw LLM reply
	// submitted for plan application.
	MaxRawResponseBytes = 128 * 1024 // 128KB
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// assistantValidate is the validator instance for assistant datatypes.
// Initialized in init() with custom validators.
var assistantValidate *validator.Validate

func init() {
	assistantValidate = validator.New()

	// Byte-length validators. Byte length (not rune count) is checked
	// to bound memory, matching how the limits are enforced downstream.
	_ = assistantValidate.RegisterValidation("maxinstruction", validateMaxInstruction)
	_ = assistantValidate.RegisterValidation("maxoverride", validateMaxOverride)
	_ = assistantValidate.RegisterValidation("maxrawresponse", validateMaxRawResponse)
}

func validateMaxInstruction(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxInstructionBytes
}

func validateMaxOverride(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxContextOverrideBytes
}

func validateMaxRawResponse(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxRawResponseBytes
}

// =============================================================================
// Prompt Request Types
// =============================================================================

// GenerationOverrides carries optional per-request sampling parameters.
// Nil fields fall through to the backend's defaults.
type GenerationOverrides struct {
	Temperature *float32 `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	TopK        *int     `json:"top_k" validate:"omitempty,gte=1"`
	TopP        *float32 `json:"top_p" validate:"omitempty,gt=0,lte=1"`
	MaxTokens   *int     `json:"max_tokens" validate:"omitempty,gt=0"`
}

// PromptRequest asks the assistant to turn a user instruction into an
// LLM response.
//
// # Fields
//
//   - RequestID: Optional. UUID v4 used for cancellation. Generated
//     server-side when absent.
//   - Instruction: Required. The user's natural-language edit request,
//     limited to 8KB.
//   - ContextOverride: Optional. Replaces the generated timeline
//     context verbatim (the system prompt is still prepended). Used by
//     the prompt preview round trip.
//   - Params: Optional sampling overrides.
//
// # Validation
//
// Uses go-playground/validator:
//   - RequestID: valid UUID v4 when present
//   - Instruction: required, max 8192 bytes
//   - ContextOverride: max 32768 bytes
type PromptRequest struct {
	RequestID       string               `json:"request_id" validate:"omitempty,uuid4"`
	Instruction     string               `json:"instruction" validate:"required,maxinstruction"`
	ContextOverride string               `json:"context_override" validate:"omitempty,maxoverride"`
	Params          *GenerationOverrides `json:"params,omitempty"`
}

// Validate validates the PromptRequest fields.
func (r *PromptRequest) Validate() error {
	return assistantValidate.Struct(r)
}

// GenerationParams maps the request overrides onto the LLM client's
// parameter struct. A nil Params block yields all-default parameters.
func (r *PromptRequest) GenerationParams() llm.GenerationParams {
	if r.Params == nil {
		return llm.GenerationParams{}
	}
	return llm.GenerationParams{
		Temperature: r.Params.Temperature,
		TopK:        r.Params.TopK,
		TopP:        r.Params.TopP,
		MaxTokens:   r.Params.MaxTokens,
	}
}

// =============================================================================
// Apply Request Types
// =============================================================================

// ApplyPlanRequest submits a raw LLM reply for parsing, admission, and
// execution against the timeline.
type ApplyPlanRequest struct {
	RawResponse string `json:"raw_response" validate:"required,maxrawresponse"`
}

// Validate validates the ApplyPlanRequest fields.
func (r *ApplyPlanRequest) Validate() error {
	return assistantValidate.Struct(r)
}
