// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"errors"
)

// ErrInstructionBlocked is returned when an instruction is rejected by
// the filter. Enterprise implementations should wrap this error with
// the reason.
//
// Example:
//
//	if containsPII(instruction) {
//	    return "", fmt.Errorf("instruction contains PII: %w", ErrInstructionBlocked)
//	}
var ErrInstructionBlocked = errors.New("instruction blocked by filter")

// InstructionFilter transforms user instructions before they are
// embedded in a model prompt.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
//
// # Filter Pipeline
//
// The assistant runs every incoming instruction through the filter
// before prompt assembly. That is the last point where the text can be
// redacted or rejected while the model call can still be refused
// cheaply. Capability and injection screening is separate (see
// services/policy_engine); this seam exists for content policy:
// PII redaction, secret scrubbing, org-specific blocklists.
//
// # Open Source Behavior
//
// The default NopInstructionFilter passes instructions through
// unchanged. Local-only deployments have no exfiltration boundary to
// protect when the model also runs locally.
type InstructionFilter interface {
	// FilterInstruction returns the transformed instruction, or an
	// error wrapping ErrInstructionBlocked if it must not be sent.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout control.
	//   - instruction: Raw user text. Never empty (callers validate).
	//
	// Outputs:
	//   - string: The instruction to embed in the prompt.
	//   - error: Non-nil if the instruction is rejected.
	FilterInstruction(ctx context.Context, instruction string) (string, error)
}

// NopInstructionFilter passes instructions through unchanged.
type NopInstructionFilter struct{}

// FilterInstruction returns the instruction as-is.
func (f *NopInstructionFilter) FilterInstruction(_ context.Context, instruction string) (string, error) {
	return instruction, nil
}
