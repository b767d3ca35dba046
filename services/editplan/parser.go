// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package editplan

import (
	"encoding/json"
	"errors"
	"strings"
)

var errMissingActions = errors.New("missing required field: actions")

// Parse extracts a typed edit plan from raw model output.
//
// # Description
//
// Models wrap their JSON in markdown fences, preambles, and trailing
// commentary. Parse tolerates all of that by slicing from the first
// '{' to the last '}' and decoding only that region. The scan is not
// nesting-aware: a response containing two top-level JSON objects
// yields the region spanning both, which then fails to decode. In
// practice models emit a single object and this trade keeps the parser
// trivial.
//
// # Inputs
//
//   - raw: the complete generation text, untrusted and unsanitized.
//
// # Outputs
//
//   - *EditPlan: the decoded plan. Every action has been checked to
//     convert cleanly into a typed timeline operation.
//   - error: ErrEmptyInput, ErrNoJSONFound, or *MalformedJSONError.
//     Nothing else escapes this function.
func Parse(raw string) (*EditPlan, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrEmptyInput
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrNoJSONFound
	}
	payload := trimmed[start : end+1]

	var plan EditPlan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, &MalformedJSONError{Cause: err}
	}
	// Absent and null both decode to a nil slice. The original schema
	// treats a plan without an actions field as undecodable, while an
	// explicitly empty list survives to the admission gate.
	if plan.Actions == nil {
		return nil, &MalformedJSONError{Cause: errMissingActions}
	}
	if _, err := plan.Ops(); err != nil {
		return nil, &MalformedJSONError{Cause: err}
	}
	return &plan, nil
}
