// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package editplan defines the edit plan wire format the LLM speaks,
// the parser that digs a plan out of raw generation text, and the
// admission gate that decides whether a plan may reach the timeline
// engine.
//
// A plan travels through three stages, each with its own closed error
// set: Parse (text -> typed plan), Admit (plan + snapshot -> verdict),
// and finally the engine's transactional apply. Parsing and admission
// are read-only; nothing in this package mutates timeline state.
package editplan

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// fallbackConfidence is assumed when the model omits the confidence
// field: unknown certainty is treated as a coin flip, which sits below
// the admission threshold on purpose.
const fallbackConfidence = 0.5

// ActionType is the closed set of edit operations the model may
// request. Unknown values fail decoding, exactly like an unknown enum
// variant would.
type ActionType string

const (
	ActionDelete ActionType = "DELETE"
	ActionMove   ActionType = "MOVE"
	ActionTrim   ActionType = "TRIM"
	ActionSplit  ActionType = "SPLIT"
)

// UnmarshalJSON enforces enum membership at decode time.
func (t *ActionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch ActionType(s) {
	case ActionDelete, ActionMove, ActionTrim, ActionSplit:
		*t = ActionType(s)
		return nil
	default:
		return fmt.Errorf("unknown action type %q", s)
	}
}

// ActionParameters is the optional parameter bag on the wire. Which
// fields are meaningful depends on the action type; the conversion to
// a typed op rejects missing or irrelevant combinations.
type ActionParameters struct {
	NewStartTime   *float64 `json:"new_start_time,omitempty"`
	TrimStartDelta *float64 `json:"trim_start_delta,omitempty"`
	TrimEndDelta   *float64 `json:"trim_end_delta,omitempty"`
	SplitTime      *float64 `json:"split_time,omitempty"`
}

// EditAction is one requested operation as it appears on the wire.
type EditAction struct {
	Type         ActionType        `json:"type"`
	TargetClipID string            `json:"target_clip_id"`
	Parameters   *ActionParameters `json:"parameters,omitempty"`
}

// EditPlan is the model's full response payload: an ordered action
// list plus optional self-reported reasoning and confidence.
type EditPlan struct {
	Actions        []EditAction `json:"actions"`
	ThoughtProcess *string      `json:"thought_process,omitempty"`
	Confidence     *float64     `json:"confidence,omitempty"`
}

// EffectiveConfidence returns the model's confidence score, or
// fallbackConfidence when the field was omitted.
func (p *EditPlan) EffectiveConfidence() float64 {
	if p.Confidence == nil {
		return fallbackConfidence
	}
	return *p.Confidence
}

// Rationale returns the model's thought process, or "" when omitted.
func (p *EditPlan) Rationale() string {
	if p.ThoughtProcess == nil {
		return ""
	}
	return *p.ThoughtProcess
}

// Ops converts the wire actions into typed timeline operations.
//
// Each action kind must carry exactly the parameters meaningful for
// it: MOVE a target time, TRIM at least one delta, SPLIT a split time,
// DELETE nothing. Anything else is a structural defect in the plan and
// fails the conversion; Parse surfaces such failures as MalformedJSON.
func (p *EditPlan) Ops() ([]timeline.Op, error) {
	ops := make([]timeline.Op, 0, len(p.Actions))
	for i, a := range p.Actions {
		op, err := a.op()
		if err != nil {
			return nil, fmt.Errorf("action %d (%s): %w", i, a.Type, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// op maps one wire action onto its typed counterpart.
func (a EditAction) op() (timeline.Op, error) {
	if a.TargetClipID == "" {
		return nil, errors.New("missing target_clip_id")
	}

	switch a.Type {
	case ActionDelete:
		if err := allowParams(a.Parameters); err != nil {
			return nil, err
		}
		return timeline.DeleteOp{ClipID: a.TargetClipID}, nil

	case ActionMove:
		if err := allowParams(a.Parameters, "new_start_time"); err != nil {
			return nil, err
		}
		if a.Parameters == nil || a.Parameters.NewStartTime == nil {
			return nil, errors.New("missing required parameter new_start_time")
		}
		return timeline.MoveOp{
			ClipID:   a.TargetClipID,
			NewStart: *a.Parameters.NewStartTime,
		}, nil

	case ActionTrim:
		if err := allowParams(a.Parameters, "trim_start_delta", "trim_end_delta"); err != nil {
			return nil, err
		}
		if a.Parameters == nil || (a.Parameters.TrimStartDelta == nil && a.Parameters.TrimEndDelta == nil) {
			return nil, errors.New("requires at least one of trim_start_delta, trim_end_delta")
		}
		return timeline.TrimOp{
			ClipID:     a.TargetClipID,
			StartDelta: a.Parameters.TrimStartDelta,
			EndDelta:   a.Parameters.TrimEndDelta,
		}, nil

	case ActionSplit:
		if err := allowParams(a.Parameters, "split_time"); err != nil {
			return nil, err
		}
		if a.Parameters == nil || a.Parameters.SplitTime == nil {
			return nil, errors.New("missing required parameter split_time")
		}
		return timeline.SplitOp{
			ClipID:    a.TargetClipID,
			SplitTime: *a.Parameters.SplitTime,
		}, nil

	default:
		return nil, errors.New("missing or unknown action type")
	}
}

// allowParams rejects any set parameter field outside the allowed
// list, so a MOVE carrying a split_time fails loudly instead of being
// half-interpreted.
func allowParams(p *ActionParameters, allowed ...string) error {
	if p == nil {
		return nil
	}
	set := map[string]*float64{
		"new_start_time":   p.NewStartTime,
		"trim_start_delta": p.TrimStartDelta,
		"trim_end_delta":   p.TrimEndDelta,
		"split_time":       p.SplitTime,
	}
	for _, name := range allowed {
		delete(set, name)
	}
	// Stable check order for deterministic diagnostics.
	for _, name := range []string{"new_start_time", "trim_start_delta", "trim_end_delta", "split_time"} {
		if v, stray := set[name]; stray && v != nil {
			return fmt.Errorf("unexpected parameter %s", name)
		}
	}
	return nil
}
