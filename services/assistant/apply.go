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
	"encoding/json"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/GhostCutAI/GhostLocal/services/editplan"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// ApplyResult reports a committed edit plan.
type ApplyResult struct {
	// Message is the stable success text the UI displays.
	Message string `json:"message"`

	// State is the timeline after the commit.
	State timeline.TimelineState `json:"state"`

	// ArtifactFilename names the apply artifact, when it was written.
	ArtifactFilename string `json:"artifact_filename,omitempty"`
}

// appliedPlanDetails is the payload logged to the preference file and
// the audit trail when a plan commits.
type appliedPlanDetails struct {
	Plan              json.RawMessage `json:"plan"`
	ResultingDuration float64         `json:"resulting_duration"`
}

// ApplyEditPlan runs raw plan text through parse, admission, and the
// timeline engine.
//
// # Description
//
//	The three stages fail independently and each failure is tagged
//	with its stage, so callers can distinguish garbage text from a
//	rejected plan from an execution conflict. The engine applies the
//	whole plan or none of it; a returned state is always committed.
//
//	Success fans out to the apply artifact, the preference interaction
//	list, and the audit trail. None of those failing undoes the
//	commit; they degrade to warnings.
//
// # Inputs
//
//	ctx - Cancels execution between stages.
//	raw - Plan text, usually the verbatim model response. JSON is
//	      extracted from surrounding prose.
//
// # Outputs
//
//	ApplyResult - Success message, committed state, artifact name.
//	error - *PlanError tagged with the failing stage.
func (a *Assistant) ApplyEditPlan(ctx context.Context, raw string) (ApplyResult, error) {
	ctx, span := tracer.Start(ctx, "assistant.ApplyEditPlan")
	defer span.End()

	plan, err := editplan.Parse(raw)
	if err != nil {
		return ApplyResult{}, a.stageFailure(ctx, span, StageParse, err)
	}
	span.SetAttributes(
		attribute.Int("assistant.plan_actions", len(plan.Actions)),
		attribute.Float64("assistant.plan_confidence", plan.EffectiveConfidence()),
	)

	if err := editplan.Admit(plan, a.engine.Snapshot(), a.threshold); err != nil {
		return ApplyResult{}, a.stageFailure(ctx, span, StageAdmission, err)
	}

	// Parse already proved the actions convert, so this cannot fail
	// on a plan it returned. Kept on the parse stage regardless: a
	// conversion failure is a plan-shape defect, not an engine one.
	ops, err := plan.Ops()
	if err != nil {
		return ApplyResult{}, a.stageFailure(ctx, span, StageParse, err)
	}

	newState, err := a.engine.ApplyOps(ctx, ops)
	if err != nil {
		return ApplyResult{}, a.stageFailure(ctx, span, StageExecution, err)
	}

	result := ApplyResult{Message: applySuccessMessage, State: newState}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		a.logger.Warn("failed to encode applied plan", "error", err)
	} else {
		if name, err := a.artifacts.WriteApplyPlan(planJSON, applySuccessMessage, raw); err != nil {
			a.logger.Warn("failed to write apply artifact", "error", err)
		} else {
			result.ArtifactFilename = name
		}
		a.recordAppliedPlan(ctx, planJSON, newState.Duration)
	}

	span.SetAttributes(attribute.Int64("assistant.timeline_version", int64(newState.Version)))
	a.logger.Info("edit plan applied",
		"actions", len(plan.Actions),
		"version", newState.Version,
		"duration", newState.Duration,
	)
	return result, nil
}

// stageFailure persists, publishes, and wraps one stage's failure.
func (a *Assistant) stageFailure(ctx context.Context, span trace.Span, stage Stage, err error) *PlanError {
	a.writeErrorArtifact(stage.artifactPrefix() + err.Error())
	a.errors.PublishError(ctx, string(stage), err.Error())
	span.RecordError(err)
	span.SetStatus(codes.Error, string(stage)+" failed")
	a.logger.Warn("edit plan rejected", "stage", stage, "error", err)
	return &PlanError{Stage: stage, Err: err}
}

// recordAppliedPlan writes the commit to both interaction logs. The
// preference file feeds prompt context for setups without a history
// store; the audit trail is the durable record.
func (a *Assistant) recordAppliedPlan(ctx context.Context, planJSON json.RawMessage, duration float64) {
	details := appliedPlanDetails{Plan: planJSON, ResultingDuration: duration}
	if err := a.prefs.LogInteraction(preferences.EventAIEditApplied, details); err != nil {
		a.logger.Warn("failed to log applied plan to preferences", "error", err)
	}
	if err := a.auditor.Record(ctx, preferences.EventAIEditApplied, details); err != nil {
		a.logger.Warn("failed to record applied plan in audit trail", "error", err)
	}
}
