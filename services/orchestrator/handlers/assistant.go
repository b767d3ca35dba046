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
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/GhostCutAI/GhostLocal/services/assistant"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/datatypes"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/observability"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

var assistantTracer = otel.Tracer("ghostcut.orchestrator.handlers")

// HandlePrompt runs a user instruction through the generation pipeline
// and returns the model's response with timing and artifact metadata.
func HandlePrompt(svc *assistant.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := assistantTracer.Start(c.Request.Context(), "HandlePrompt")
		defer span.End()

		var req datatypes.PromptRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			recordPromptError(observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			recordPromptError(observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.GenerationStarted()
			defer m.GenerationEnded()
		}

		start := time.Now()
		meta, err := svc.ProcessPrompt(ctx, assistant.PromptRequest{
			RequestID:       req.RequestID,
			Instruction:     req.Instruction,
			ContextOverride: req.ContextOverride,
			Params:          req.GenerationParams(),
		})
		elapsed := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "prompt pipeline failed")
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(observability.EndpointPrompt, false)
				m.RecordGeneration(elapsed, false)
			}

			if errors.Is(err, assistant.ErrEmptyInstruction) {
				recordPromptError(observability.ErrorCodeValidation)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var rejected *assistant.InstructionRejectedError
			if errors.As(err, &rejected) {
				recordPromptError(observability.ErrorCodeScreening)
				slog.Warn("instruction rejected by screening", "findings", len(rejected.Findings))
				c.JSON(http.StatusForbidden, gin.H{
					"error":    err.Error(),
					"findings": rejected.Findings,
				})
				return
			}
			// Generation and filter failures carry user-facing messages.
			recordPromptError(observability.ErrorCodeGeneration)
			slog.Error("prompt pipeline failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointPrompt, true)
			m.RecordGeneration(elapsed, true)
		}
		c.JSON(http.StatusOK, meta)
	}
}

// HandlePromptPreview returns the timeline context block the assistant
// would build for an instruction, so the UI can offer it for hand
// editing before submission.
func HandlePromptPreview(svc *assistant.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		instruction := c.Query("instruction")
		preview, err := svc.PromptPreview(instruction)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"preview": preview})
	}
}

// HandleApplyPlan submits raw model output for parse, admission, and
// transactional execution. Each pipeline stage maps to its own status:
// unparseable text is the client's problem (400), a rejected plan is
// semantically invalid (422), an execution failure is a conflict with
// the committed timeline (409).
func HandleApplyPlan(svc *assistant.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := assistantTracer.Start(c.Request.Context(), "HandleApplyPlan")
		defer span.End()

		var req datatypes.ApplyPlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			recordApplyError(observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			recordApplyError(observability.ErrorCodeValidation)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		start := time.Now()
		result, err := svc.ApplyEditPlan(ctx, req.RawResponse)
		elapsed := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "apply pipeline failed")
			if m := observability.DefaultMetrics; m != nil {
				m.RecordRequest(observability.EndpointApply, false)
			}
			respondPlanError(c, err, elapsed)
			return
		}

		if m := observability.DefaultMetrics; m != nil {
			m.RecordRequest(observability.EndpointApply, true)
			m.RecordPlan(observability.OutcomeApplied, elapsed)
			m.SetClipCount(len(result.State.Clips))
		}
		c.JSON(http.StatusOK, result)
	}
}

// ListActiveRequests reports the ids of in-flight generations, so the
// UI can offer cancellation after a reconnect.
func ListActiveRequests(svc *assistant.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_ids": svc.ActiveRequestIDs()})
	}
}

// HandleCancelRequest aborts an in-flight generation by id. A miss is
// reported as 404: the request most likely already finished.
func HandleCancelRequest(svc *assistant.Assistant) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if !svc.CancelRequest(id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no in-flight request with that id"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cancelled", "request_id": id})
	}
}

// respondPlanError maps a staged apply failure onto status, outcome
// metric, and response body.
func respondPlanError(c *gin.Context, err error, elapsed float64) {
	var planErr *assistant.PlanError
	if !errors.As(err, &planErr) {
		recordApplyError(observability.ErrorCodeInternal)
		slog.Error("apply pipeline failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch planErr.Stage {
	case assistant.StageParse:
		recordApplyError(observability.ErrorCodeParse)
		recordPlanOutcome(observability.OutcomeParseError, elapsed)
		c.JSON(http.StatusBadRequest, gin.H{"error": planErr.Err.Error(), "stage": string(planErr.Stage)})
	case assistant.StageAdmission:
		recordApplyError(observability.ErrorCodeAdmission)
		recordPlanOutcome(observability.OutcomeAdmissionRejected, elapsed)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": planErr.Err.Error(), "stage": string(planErr.Stage)})
	case assistant.StageExecution:
		recordApplyError(observability.ErrorCodeExecution)
		recordPlanOutcome(observability.OutcomeExecutionConflict, elapsed)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordRollback(observability.ViolationLabel(planErr.Err))
		}
		// Invariant violations surface as a generic rejection: the
		// detail names internal ids and belongs in the log, which the
		// engine already wrote on rollback.
		var violation timeline.InvariantViolation
		if errors.As(planErr.Err, &violation) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "edit could not be applied",
				"code":  violation.Code(),
				"stage": string(planErr.Stage),
			})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": planErr.Err.Error(), "stage": string(planErr.Stage)})
	default:
		recordApplyError(observability.ErrorCodeInternal)
		c.JSON(http.StatusInternalServerError, gin.H{"error": planErr.Error()})
	}
}

func recordPromptError(code observability.ErrorCode) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(observability.EndpointPrompt, code)
	}
}

func recordApplyError(code observability.ErrorCode) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordError(observability.EndpointApply, code)
	}
}

func recordPlanOutcome(outcome observability.Outcome, elapsed float64) {
	if m := observability.DefaultMetrics; m != nil {
		m.RecordPlan(outcome, elapsed)
	}
}
