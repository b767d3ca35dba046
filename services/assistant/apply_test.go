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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GhostCutAI/GhostLocal/services/editplan"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// deletePlanText is a realistic model response: the plan JSON wrapped
// in conversational prose.
const deletePlanText = "Here is the plan:\n" +
	`{"actions": [{"type": "DELETE", "target_clip_id": "clip_2"}], "thought_process": "remove the outro", "confidence": 0.9}` +
	"\nLet me know if you want changes."

func TestApplyEditPlanSuccess(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	result, err := f.assistant.ApplyEditPlan(context.Background(), deletePlanText)
	require.NoError(t, err)

	assert.Equal(t, "Plan applied successfully", result.Message)
	require.Len(t, result.State.Clips, 1)
	assert.Equal(t, "clip_1", result.State.Clips[0].ID)
	assert.Equal(t, 5.0, result.State.Duration)
	assert.Equal(t, uint64(2), result.State.Version)
	assert.True(t, strings.HasPrefix(result.ArtifactFilename, "artifact_apply_plan_"), "got %q", result.ArtifactFilename)

	content := artifactWithPrefix(t, f.store, "artifact_apply_plan_")
	var record struct {
		Plan     json.RawMessage `json:"plan"`
		Result   string          `json:"result"`
		RawInput string          `json:"raw_input"`
	}
	require.NoError(t, json.Unmarshal([]byte(content), &record))
	assert.Equal(t, "Plan applied successfully", record.Result)
	assert.Equal(t, deletePlanText, record.RawInput)
	assert.Contains(t, string(record.Plan), `"DELETE"`)

	prefs := f.prefs.Preferences()
	require.Len(t, prefs.Interactions, 1)
	assert.Equal(t, preferences.EventAIEditApplied, prefs.Interactions[0].EventType)

	records := f.auditor.recorded()
	require.Len(t, records, 1)
	assert.Equal(t, preferences.EventAIEditApplied, records[0].EventType)
	var details struct {
		ResultingDuration float64 `json:"resulting_duration"`
	}
	require.NoError(t, json.Unmarshal(records[0].Details, &details))
	assert.Equal(t, 5.0, details.ResultingDuration)
}

func TestApplyEditPlanParseFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.assistant.ApplyEditPlan(context.Background(), "the model rambled with no JSON at all")
	require.Error(t, err)

	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, StageParse, planErr.Stage)
	require.ErrorIs(t, err, editplan.ErrNoJSONFound)

	content := artifactWithPrefix(t, f.store, "artifact_error_")
	assert.True(t, strings.HasPrefix(content, "LLM Parse Error: "), "got %q", content)

	events := f.errors.published()
	require.Len(t, events, 1)
	assert.Equal(t, "parse", events[0].Stage)

	assert.Equal(t, uint64(1), f.engine.Snapshot().Version, "failed apply must not touch the timeline")
}

func TestApplyEditPlanLowConfidence(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	raw := `{"actions": [{"type": "DELETE", "target_clip_id": "clip_2"}], "thought_process": "not sure which clip", "confidence": 0.4}`
	_, err := f.assistant.ApplyEditPlan(context.Background(), raw)
	require.Error(t, err)

	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, StageAdmission, planErr.Stage)

	var low *editplan.LowConfidenceError
	require.ErrorAs(t, err, &low)
	assert.Equal(t, 0.4, low.Score)
	assert.Equal(t, editplan.DefaultConfidenceThreshold, low.Threshold)
	assert.Equal(t, "not sure which clip", low.Rationale)

	content := artifactWithPrefix(t, f.store, "artifact_error_")
	assert.True(t, strings.HasPrefix(content, "Plan Validation Rejected: "), "got %q", content)

	assert.Equal(t, uint64(1), f.engine.Snapshot().Version)
}

func TestApplyEditPlanEmptyActions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.assistant.ApplyEditPlan(context.Background(), `{"actions": [], "confidence": 0.95}`)
	require.Error(t, err)

	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, StageAdmission, planErr.Stage)
	require.ErrorIs(t, err, editplan.ErrEmptyPlan)
}

func TestApplyEditPlanUnknownClip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	raw := `{"actions": [{"type": "DELETE", "target_clip_id": "ghost"}], "confidence": 0.9}`
	_, err := f.assistant.ApplyEditPlan(context.Background(), raw)
	require.Error(t, err)

	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, StageAdmission, planErr.Stage)

	var notFound timeline.ClipNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.ClipID)
}

func TestApplyEditPlanExecutionConflict(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// Moving clip_2 onto clip_1 passes admission (the clip exists, the
	// confidence is fine) and fails only under the engine lock.
	raw := `{"actions": [{"type": "MOVE", "target_clip_id": "clip_2", "parameters": {"new_start_time": 2.0}}], "confidence": 0.9}`
	_, err := f.assistant.ApplyEditPlan(context.Background(), raw)
	require.Error(t, err)

	var planErr *PlanError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, StageExecution, planErr.Stage)

	content := artifactWithPrefix(t, f.store, "artifact_error_")
	assert.True(t, strings.HasPrefix(content, "Router Execution Error: "), "got %q", content)

	events := f.errors.published()
	require.Len(t, events, 1)
	assert.Equal(t, "execution", events[0].Stage)

	state := f.engine.Snapshot()
	assert.Equal(t, uint64(1), state.Version, "conflict must roll back")
	assert.Len(t, state.Clips, 2)

	assert.Empty(t, f.prefs.Preferences().Interactions, "rejected plans are not logged as applied")
	assert.Empty(t, f.auditor.recorded())
}
