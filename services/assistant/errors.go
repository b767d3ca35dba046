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
	"errors"
	"fmt"
	"strings"

	"github.com/GhostCutAI/GhostLocal/services/policy_engine"
)

// ErrEmptyInstruction is returned when a prompt request has no text.
var ErrEmptyInstruction = errors.New("instruction must not be empty")

// Stage identifies where in the apply pipeline a plan failed.
type Stage string

const (
	StageParse     Stage = "parse"
	StageAdmission Stage = "admission"
	StageExecution Stage = "execution"
)

// artifactPrefix is the message prefix written to error artifacts for
// each stage. The prefixes are part of the artifact format the UI
// pattern-matches on.
func (s Stage) artifactPrefix() string {
	switch s {
	case StageParse:
		return "LLM Parse Error: "
	case StageAdmission:
		return "Plan Validation Rejected: "
	case StageExecution:
		return "Router Execution Error: "
	}
	return "Error: "
}

// PlanError wraps a failure in one stage of the apply pipeline so
// callers can map stages to responses without inspecting error text.
type PlanError struct {
	Stage Stage
	Err   error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// InstructionRejectedError is returned when screening flags an
// instruction as a likely prompt-injection attempt. The request never
// reaches the model.
type InstructionRejectedError struct {
	Findings []policy_engine.Finding
}

func (e *InstructionRejectedError) Error() string {
	ids := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		if f.ClassificationName == policy_engine.ClassPromptInjection {
			ids = append(ids, f.PatternId)
		}
	}
	return fmt.Sprintf("instruction rejected by screening: %s", strings.Join(ids, ", "))
}
