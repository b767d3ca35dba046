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
	"errors"
	"fmt"
)

// Parse stage errors.
var (
	// ErrEmptyInput means the generation text was empty or whitespace.
	ErrEmptyInput = errors.New("empty input: no text to parse")

	// ErrNoJSONFound means no '{' ... '}' region could be located.
	ErrNoJSONFound = errors.New("no JSON object found in text")
)

// MalformedJSONError wraps a decode or normalization failure for the
// candidate JSON region. The cause carries the field-level detail.
type MalformedJSONError struct {
	Cause error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed edit plan JSON: %v", e.Cause)
}

func (e *MalformedJSONError) Unwrap() error { return e.Cause }

// Admission stage errors. A missing target clip is reported with
// timeline.ClipNotFoundError so callers see one type at admission and
// under the engine lock alike.
var (
	// ErrEmptyPlan means the plan parsed cleanly but requests nothing.
	ErrEmptyPlan = errors.New("edit plan contains no actions")
)

// LowConfidenceError rejects a plan whose self-reported confidence
// falls below the admission threshold. The model's rationale rides
// along so the caller can show the user why the model was unsure.
type LowConfidenceError struct {
	Score     float64
	Threshold float64
	Rationale string
}

func (e *LowConfidenceError) Error() string {
	msg := fmt.Sprintf("plan confidence %.2f is below the %.2f threshold", e.Score, e.Threshold)
	if e.Rationale != "" {
		msg += ": " + e.Rationale
	}
	return msg
}
