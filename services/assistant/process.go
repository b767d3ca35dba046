// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
	"github.com/GhostCutAI/GhostLocal/services/artifacts"
	"github.com/GhostCutAI/GhostLocal/services/llm"
	"github.com/GhostCutAI/GhostLocal/services/policy_engine"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/prompt"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// auditOverlayWindow is how many audited events feed the prompt's
// recent-activity summary when the durable trail has records.
const auditOverlayWindow = 10

// PromptRequest carries one generation request.
type PromptRequest struct {
	// RequestID keys the cancellation registry. Assigned when empty.
	RequestID string

	// Instruction is the user's edit request. Required.
	Instruction string

	// ContextOverride, when set, replaces everything after the system
	// prompt: the caller has hand-edited the context block and the
	// instruction embedding. Preference context is deliberately not
	// injected in override mode.
	ContextOverride string

	// Params tunes sampling. Zero value uses backend defaults.
	Params llm.GenerationParams
}

// ResponseMetadata is what a prompt request returns to the UI.
type ResponseMetadata struct {
	// Text is the model output shown to the user, possibly truncated.
	Text string `json:"text"`

	// LatencyMs is the generation round-trip time.
	LatencyMs int64 `json:"latency_ms"`

	// CharCount counts the characters the model produced, before any
	// truncation.
	CharCount int `json:"char_count"`

	// Truncated reports whether Text was cut at MaxResponseChars.
	Truncated bool `json:"truncated"`

	// ArtifactFilename names the artifact holding the full response.
	// Empty when no response artifact exists (guardrail replies,
	// artifact write failures).
	ArtifactFilename string `json:"artifact_filename,omitempty"`
}

// ProcessPrompt runs one instruction through the generation pipeline.
//
// # Description
//
//	Stages, in order:
//	 1. Empty-timeline guardrail: with no clips there is nothing any
//	    plan could edit, so a canned reply comes back without touching
//	    the model.
//	 2. Instruction filter (extension seam) and policy screening.
//	    High-confidence injection findings reject the request;
//	    unsupported-capability findings answer the user directly and
//	    save the round trip.
//	 3. Prompt assembly. Normal mode injects timeline context and the
//	    preference summary; override mode appends the caller's edited
//	    context verbatim after the system prompt.
//	 4. Generation, bounded by the configured timeout and cancellable
//	    via CancelRequest.
//	 5. Truncation at MaxResponseChars and artifact logging. The
//	    artifact always holds the complete text.
//
// # Inputs
//
//	ctx - Cancels the whole pipeline. The generation stage also
//	      respects CancelRequest(req.RequestID).
//	req - The instruction plus optional override, id, and sampling.
//
// # Outputs
//
//	ResponseMetadata - Model text plus timing, size, and artifact info.
//	error - ErrEmptyInstruction, *InstructionRejectedError, a filter
//	        rejection, or a generation failure.
func (a *Assistant) ProcessPrompt(ctx context.Context, req PromptRequest) (ResponseMetadata, error) {
	ctx, span := tracer.Start(ctx, "assistant.ProcessPrompt")
	defer span.End()

	instruction := strings.TrimSpace(req.Instruction)
	if instruction == "" {
		return ResponseMetadata{}, ErrEmptyInstruction
	}

	// Guardrail before any model work: an empty timeline cannot be
	// edited, and the model reliably hallucinates clip ids if asked.
	state := a.engine.Snapshot()
	if len(state.Clips) == 0 {
		a.logger.Info("prompt refused: timeline is empty")
		span.SetAttributes(attribute.Bool("assistant.guardrail_empty_timeline", true))
		return cannedResponse(emptyTimelineMessage), nil
	}

	// The filter sees the text that will reach the model. In override
	// mode it can veto but not rewrite: the instruction is already
	// embedded somewhere inside the caller's edited context.
	screened := instruction
	if req.ContextOverride != "" {
		screened = req.ContextOverride
	}
	filtered, err := a.filter.FilterInstruction(ctx, screened)
	if err != nil {
		span.SetStatus(codes.Error, "instruction filtered")
		return ResponseMetadata{}, fmt.Errorf("instruction filter: %w", err)
	}
	if req.ContextOverride == "" {
		instruction = filtered
		screened = filtered
	}

	if a.policy != nil {
		findings := a.policy.ScanInstruction(screened)
		if policy_engine.HasHighConfidenceInjection(findings) {
			rejection := &InstructionRejectedError{Findings: findings}
			a.writeErrorArtifact("Instruction Rejected: " + rejection.Error())
			a.errors.PublishError(ctx, "screening", rejection.Error())
			span.SetStatus(codes.Error, "injection screening")
			return ResponseMetadata{}, rejection
		}
		if caps := policy_engine.UnsupportedCapabilities(findings); len(caps) > 0 {
			a.logger.Info("prompt answered by capability screening", "capabilities", caps)
			span.SetAttributes(attribute.Int("assistant.unsupported_capabilities", len(caps)))
			return cannedResponse(unsupportedCapabilityMessage(caps)), nil
		}
	}

	fullPrompt := a.buildPrompt(ctx, state, instruction, req.ContextOverride)

	if _, err := a.artifacts.Write(artifacts.KindPrompt, fullPrompt); err != nil {
		a.logger.Warn("failed to write prompt artifact", "error", err)
	}

	requestID, genCtx, release := a.register(ctx, req.RequestID)
	defer release()
	span.SetAttributes(attribute.String("assistant.request_id", requestID))

	start := time.Now()
	text, genErr := a.llm.Generate(genCtx, fullPrompt, req.Params)
	latency := time.Since(start)

	if genErr != nil {
		msg := generationFailureMessage(genErr, a.timeout)
		a.writeErrorArtifact("LLM Error: " + msg)
		a.errors.PublishError(ctx, "generation", msg)
		span.RecordError(genErr)
		span.SetStatus(codes.Error, "generation failed")
		a.logger.Error("generation failed",
			"request_id", requestID,
			"latency_ms", latency.Milliseconds(),
			"error", genErr,
		)
		return ResponseMetadata{}, errors.New(msg)
	}

	meta := ResponseMetadata{
		Text:      text,
		LatencyMs: latency.Milliseconds(),
		CharCount: utf8.RuneCountInString(text),
	}
	if meta.CharCount > MaxResponseChars {
		meta.Text = string([]rune(text)[:MaxResponseChars]) + truncationNotice
		meta.Truncated = true
	}

	name, err := a.artifacts.Write(artifacts.KindLLMResponse, text)
	if err != nil {
		a.logger.Warn("failed to write response artifact", "error", err)
	} else {
		meta.ArtifactFilename = name
	}

	span.SetAttributes(
		attribute.Int64("assistant.latency_ms", meta.LatencyMs),
		attribute.Int("assistant.char_count", meta.CharCount),
		attribute.Bool("assistant.truncated", meta.Truncated),
	)
	a.logger.Info("generation completed",
		"request_id", requestID,
		"latency_ms", meta.LatencyMs,
		"char_count", meta.CharCount,
		"truncated", meta.Truncated,
	)
	return meta, nil
}

// PromptPreview returns the context block plus instruction, without the
// persona. The UI shows this so users can hand-edit the context before
// submitting an override.
func (a *Assistant) PromptPreview(instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", ErrEmptyInstruction
	}
	return prompt.BuildPreview(a.engine.Snapshot(), instruction), nil
}

// buildPrompt assembles the final model prompt. The preference snapshot
// prefers the durable audit trail over the bounded list in
// preferences.json when the trail has records: the file is
// human-editable, the trail is not.
func (a *Assistant) buildPrompt(ctx context.Context, state timeline.TimelineState, instruction, override string) string {
	if override != "" {
		return prompt.BuildWithOverride(override)
	}

	prefs := a.prefs.Preferences()
	if records, err := a.auditor.Recent(ctx, auditOverlayWindow); err == nil && len(records) > 0 {
		prefs.Interactions = auditEventsOldestFirst(records)
	} else if err != nil {
		a.logger.Debug("audit trail unavailable for prompt context", "error", err)
	}
	return prompt.Build(state, prefs, instruction)
}

// auditEventsOldestFirst converts newest-first audit records into the
// oldest-first event list the prompt builder expects.
func auditEventsOldestFirst(records []extensions.InteractionRecord) []preferences.InteractionEvent {
	events := make([]preferences.InteractionEvent, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		events = append(events, preferences.InteractionEvent{
			Timestamp: records[i].Timestamp,
			EventType: records[i].EventType,
			Details:   records[i].Details,
		})
	}
	return events
}

func cannedResponse(message string) ResponseMetadata {
	return ResponseMetadata{
		Text:      message,
		CharCount: utf8.RuneCountInString(message),
	}
}

func unsupportedCapabilityMessage(capabilities []string) string {
	return fmt.Sprintf(
		"This instruction asks for operations GhostCut cannot perform: %s. Supported edits are DELETE, MOVE, TRIM, and SPLIT.",
		strings.Join(capabilities, "; "),
	)
}

// generationFailureMessage maps a generation error to the user-facing
// message. Timeout and cancellation get stable wordings the UI keys on.
func generationFailureMessage(err error, timeout time.Duration) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Global request timeout reached (%ds)", int(timeout.Seconds()))
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	default:
		return err.Error()
	}
}
