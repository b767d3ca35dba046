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
	"sort"

	"github.com/google/uuid"
)

// register enters a generation request into the in-flight registry and
// derives its bounded context. The returned release func cancels the
// context and removes the entry; callers must defer it. An empty id
// gets a fresh UUID so every in-flight request is cancellable.
func (a *Assistant) register(parent context.Context, id string) (string, context.Context, context.CancelFunc) {
	if id == "" {
		id = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(parent, a.timeout)

	a.mu.Lock()
	// A duplicate id would strand the earlier entry's cancel func, so
	// the earlier request loses.
	if prev, ok := a.active[id]; ok {
		prev()
		a.logger.Warn("duplicate request id, cancelling earlier request", "request_id", id)
	}
	a.active[id] = cancel
	a.mu.Unlock()

	release := func() {
		a.mu.Lock()
		delete(a.active, id)
		a.mu.Unlock()
		cancel()
	}
	return id, ctx, release
}

// CancelRequest aborts an in-flight generation.
//
// # Inputs
//
//	id - The request id returned to, or supplied by, the caller.
//
// # Outputs
//
//	bool - True when the id was in flight and its context was
//	       cancelled. False when nothing was in flight under that id,
//	       which usually means the request already finished.
func (a *Assistant) CancelRequest(id string) bool {
	a.mu.Lock()
	cancel, ok := a.active[id]
	a.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	a.logger.Info("request cancelled", "request_id", id)
	return true
}

// ActiveRequestIDs lists in-flight generation requests, sorted for
// stable output.
func (a *Assistant) ActiveRequestIDs() []string {
	a.mu.Lock()
	ids := make([]string, 0, len(a.active))
	for id := range a.active {
		ids = append(ids, id)
	}
	a.mu.Unlock()
	sort.Strings(ids)
	return ids
}
