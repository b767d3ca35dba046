// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package timeline

import (
	"context"
)

// =============================================================================
// StateSink Interface (Engine Integration Point)
// =============================================================================

// StateSink receives the committed state after every successful
// mutation.
//
// # Description
//
// The engine publishes a clone of the committed state to its sink once
// the lock is released. The daemon injects a websocket broadcast hub so
// connected UIs can re-render; headless and test configurations use the
// no-op default.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple
// goroutines.
//
// # Error Handling
//
// Publication is fire-and-forget from the engine's perspective. A sink
// that falls behind or fails must not block or fail the commit;
// implementations handle their own buffering and drop policy.
type StateSink interface {
	// PublishState delivers the committed state to observers.
	//
	// The state is a private clone; implementations may retain it
	// without copying. ctx carries the trace span of the commit.
	PublishState(ctx context.Context, state TimelineState)
}

// noopStateSink is the default sink used when no observer is wired in.
//
// Safe for concurrent use (stateless).
type noopStateSink struct{}

// PublishState discards the state.
func (n *noopStateSink) PublishState(ctx context.Context, state TimelineState) {}

// DefaultStateSink is the no-op publication sink.
//
// Use this as the default when the engine runs without a UI attached.
var DefaultStateSink StateSink = &noopStateSink{}

// NewNoopStateSink returns a fresh no-op sink instance.
//
// Useful for tests that need a distinct instance rather than the
// package-level DefaultStateSink.
func NewNoopStateSink() StateSink {
	return &noopStateSink{}
}
