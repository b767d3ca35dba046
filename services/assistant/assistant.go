// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package assistant runs the AI editing pipeline.
//
// Two operations make up the pipeline. ProcessPrompt turns a user
// instruction into raw model output: guardrails, instruction screening,
// prompt assembly, a bounded generation call, truncation, and artifact
// logging. ApplyEditPlan turns raw model output into a committed
// timeline mutation: parse, admission, transactional apply, then
// artifact and audit fan-out.
//
// The split is deliberate. The UI shows the model's proposal to the
// user between the two calls, so generation and application never share
// a transaction and the engine re-validates everything at apply time.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
	"github.com/GhostCutAI/GhostLocal/services/artifacts"
	"github.com/GhostCutAI/GhostLocal/services/editplan"
	"github.com/GhostCutAI/GhostLocal/services/llm"
	"github.com/GhostCutAI/GhostLocal/services/policy_engine"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

var tracer = otel.Tracer("ghostcut.assistant")

const (
	// DefaultGenerationTimeout bounds one model call end to end.
	DefaultGenerationTimeout = 60 * time.Second

	// MaxResponseChars is the longest model response returned inline.
	// Longer responses are truncated; the artifact keeps the full text.
	MaxResponseChars = 16000

	truncationNotice = "\n\n[RESPONSE TRUNCATED DUE TO LENGTH - SEE ARTIFACT FOR FULL TEXT]"

	emptyTimelineMessage = "No clips in timeline. Cannot perform edit operations."

	applySuccessMessage = "Plan applied successfully"
)

// ErrorSink receives pipeline failures for UI broadcast.
//
// The websocket hub implements this next to timeline.StateSink so the
// frontend learns about rejected plans the same way it learns about
// state changes. Implementations must not block.
type ErrorSink interface {
	PublishError(ctx context.Context, stage string, message string)
}

type nopErrorSink struct{}

func (nopErrorSink) PublishError(context.Context, string, string) {}

// Config wires the assistant's collaborators.
type Config struct {
	// Engine is the timeline mutation engine. Required.
	Engine *timeline.Engine

	// LLM generates edit plans. Required.
	LLM llm.LLMClient

	// Preferences supplies prompt context and records interactions.
	// Required.
	Preferences *preferences.Manager

	// Artifacts persists prompts, responses, and errors. Required.
	Artifacts *artifacts.Store

	// Policy screens instructions before generation. Optional; nil
	// disables screening.
	Policy *policy_engine.PolicyEngine

	// Extensions carries the auditor and instruction filter seams.
	// Nil fields fall back to no-op implementations.
	Extensions extensions.ServiceOptions

	// Errors receives pipeline failures for broadcast. Optional.
	Errors ErrorSink

	// GenerationTimeout bounds one model call.
	// Defaults to DefaultGenerationTimeout.
	GenerationTimeout time.Duration

	// ConfidenceThreshold is the admission gate cutoff.
	// Defaults to editplan.DefaultConfidenceThreshold.
	ConfidenceThreshold float64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Assistant executes the prompt and apply pipelines.
//
// Thread Safety: Safe for concurrent use. Generation calls run
// concurrently; applies serialize inside the timeline engine.
type Assistant struct {
	engine    *timeline.Engine
	llm       llm.LLMClient
	prefs     *preferences.Manager
	artifacts *artifacts.Store
	policy    *policy_engine.PolicyEngine
	auditor   extensions.InteractionAuditor
	filter    extensions.InstructionFilter
	errors    ErrorSink
	logger    *slog.Logger
	timeout   time.Duration
	threshold float64

	// mu guards active, the in-flight generation registry.
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New validates the config and builds an Assistant.
func New(cfg Config) (*Assistant, error) {
	if cfg.Engine == nil {
		return nil, errors.New("assistant requires a timeline engine")
	}
	if cfg.LLM == nil {
		return nil, errors.New("assistant requires an LLM client")
	}
	if cfg.Preferences == nil {
		return nil, errors.New("assistant requires a preferences manager")
	}
	if cfg.Artifacts == nil {
		return nil, errors.New("assistant requires an artifact store")
	}

	a := &Assistant{
		engine:    cfg.Engine,
		llm:       cfg.LLM,
		prefs:     cfg.Preferences,
		artifacts: cfg.Artifacts,
		policy:    cfg.Policy,
		auditor:   cfg.Extensions.Auditor,
		filter:    cfg.Extensions.InstructionFilter,
		errors:    cfg.Errors,
		logger:    cfg.Logger,
		timeout:   cfg.GenerationTimeout,
		threshold: cfg.ConfidenceThreshold,
		active:    make(map[string]context.CancelFunc),
	}
	if a.auditor == nil {
		a.auditor = &extensions.NopInteractionAuditor{}
	}
	if a.filter == nil {
		a.filter = &extensions.NopInstructionFilter{}
	}
	if a.errors == nil {
		a.errors = nopErrorSink{}
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.timeout <= 0 {
		a.timeout = DefaultGenerationTimeout
	}
	if a.threshold == 0 {
		a.threshold = editplan.DefaultConfidenceThreshold
	}
	return a, nil
}

// writeErrorArtifact persists a pipeline failure, never failing the
// caller: an artifact write problem is logged and swallowed.
func (a *Assistant) writeErrorArtifact(content string) string {
	name, err := a.artifacts.Write(artifacts.KindError, content)
	if err != nil {
		a.logger.Warn("failed to write error artifact", "error", err)
		return ""
	}
	return name
}
