// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"encoding/json"
)

// InteractionRecord is one durable entry in the edit audit trail.
//
// Records capture what happened to the timeline and when, both for
// compliance review and for the assistant's own behavioral context
// (recent-activity summaries in the prompt).
//
// # Event Types
//
// Event types are free-form strings owned by the producer. The core
// daemon emits:
//   - "AI_EDIT_APPLIED": a model-proposed plan was committed
//   - "MANUAL_MOVE": the user repositioned a clip by hand
//   - "MANUAL_TRIM": the user trimmed a clip by hand
//
// Example:
//
//	record := InteractionRecord{
//	    Seq:       42,
//	    Timestamp: time.Now().UnixMilli(),
//	    EventType: "AI_EDIT_APPLIED",
//	    Details:   json.RawMessage(`{"resulting_duration": 32.5}`),
//	}
type InteractionRecord struct {
	// Seq is the store-assigned sequence number, strictly increasing
	// per store. Zero for records that were never persisted.
	Seq uint64 `json:"seq"`

	// Timestamp is when the event occurred, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// EventType categorizes the event (see package docs for core types).
	EventType string `json:"event_type"`

	// Details holds event-specific payload as raw JSON. May be nil.
	Details json.RawMessage `json:"details,omitempty"`
}

// InteractionAuditor records and retrieves durable edit interactions.
//
// Implementations must be safe for concurrent use by multiple
// goroutines. Record should be fast enough to sit on the mutation
// commit path; implementations that cannot guarantee that should
// buffer internally.
//
// # Open Source Behavior
//
// services/history implements this interface on embedded local storage
// so the audit trail never leaves the machine. When history is
// disabled, the NopInteractionAuditor discards all records.
//
// # Enterprise Implementation
//
// Enterprise versions forward records to centralized audit stores
// (SIEM pipelines, compliance databases) in addition to or instead of
// local storage.
type InteractionAuditor interface {
	// Record persists one event. Implementations assign Seq and
	// Timestamp; callers provide only the type and payload.
	//
	// Inputs:
	//   - ctx: Context for cancellation. Must not be nil.
	//   - eventType: Category of the event. Must not be empty.
	//   - details: JSON-marshalable payload. May be nil.
	//
	// Outputs:
	//   - error: Non-nil if the event could not be persisted.
	Record(ctx context.Context, eventType string, details any) error

	// Recent returns up to n records, newest first.
	//
	// Inputs:
	//   - ctx: Context for cancellation. Must not be nil.
	//   - n: Maximum number of records. Non-positive returns empty.
	//
	// Outputs:
	//   - []InteractionRecord: Newest-first slice, possibly empty.
	//   - error: Non-nil if the read fails.
	Recent(ctx context.Context, n int) ([]InteractionRecord, error)
}

// NopInteractionAuditor discards all records.
//
// This is the open source default when no history store is configured.
// Record always succeeds and Recent always returns an empty slice.
type NopInteractionAuditor struct{}

// Record discards the event and returns nil.
func (a *NopInteractionAuditor) Record(_ context.Context, _ string, _ any) error {
	return nil
}

// Recent returns an empty slice.
func (a *NopInteractionAuditor) Recent(_ context.Context, _ int) ([]InteractionRecord, error) {
	return []InteractionRecord{}, nil
}
