// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{InMemory: false, Path: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "MANUAL_MOVE", map[string]any{"clip_id": "clip-a", "new_start": 4.5}))
	require.NoError(t, store.Record(ctx, "MANUAL_TRIM", map[string]any{"clip_id": "clip-a"}))
	require.NoError(t, store.Record(ctx, "AI_EDIT_APPLIED", map[string]any{"resulting_duration": 12.0}))

	records, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first.
	assert.Equal(t, "AI_EDIT_APPLIED", records[0].EventType)
	assert.Equal(t, "MANUAL_TRIM", records[1].EventType)
	assert.Equal(t, "MANUAL_MOVE", records[2].EventType)
	assert.Equal(t, uint64(3), records[0].Seq)
	assert.Equal(t, uint64(1), records[2].Seq)
	assert.Greater(t, records[0].Timestamp, int64(0))

	var details struct {
		ResultingDuration float64 `json:"resulting_duration"`
	}
	require.NoError(t, json.Unmarshal(records[0].Details, &details))
	assert.Equal(t, 12.0, details.ResultingDuration)
}

func TestRecentLimits(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, store.Record(ctx, "MANUAL_MOVE", map[string]int{"i": i}))
	}

	records, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(7), records[0].Seq)
	assert.Equal(t, uint64(5), records[2].Seq)

	empty, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	negative, err := store.Recent(ctx, -1)
	require.NoError(t, err)
	assert.Empty(t, negative)
}

func TestRecordNilDetails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "AI_EDIT_APPLIED", nil))

	records, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Details)
}

func TestRecordValidation(t *testing.T) {
	store := openTestStore(t)

	err := store.Record(context.Background(), "", map[string]string{"k": "v"})
	assert.ErrorIs(t, err, ErrEmptyEventType)

	var nilCtx context.Context
	err = store.Record(nilCtx, "MANUAL_MOVE", nil)
	assert.ErrorIs(t, err, ErrNilContext)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.Record(cancelled, "MANUAL_MOVE", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSequencePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig(dir)
	cfg.SyncWrites = false // keep the test fast

	store, err := Open(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Record(ctx, "MANUAL_MOVE", nil))
	require.NoError(t, store.Record(ctx, "MANUAL_TRIM", nil))
	require.NoError(t, store.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	// Sequence numbers continue rather than restarting at 1.
	assert.Equal(t, uint64(2), reopened.Count())
	require.NoError(t, reopened.Record(ctx, "AI_EDIT_APPLIED", nil))

	records, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(3), records[0].Seq)
	assert.Equal(t, "AI_EDIT_APPLIED", records[0].EventType)
	assert.Equal(t, "MANUAL_MOVE", records[2].EventType)
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "Close must be idempotent")

	ctx := context.Background()
	assert.ErrorIs(t, store.Record(ctx, "MANUAL_MOVE", nil), ErrStoreClosed)
	_, err = store.Recent(ctx, 5)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestConcurrentRecords(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := store.Record(ctx, "MANUAL_MOVE", map[string]string{
					"writer": fmt.Sprintf("w%d", w),
				})
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, uint64(writers*perWriter), store.Count())

	records, err := store.Recent(ctx, writers*perWriter)
	require.NoError(t, err)
	require.Len(t, records, writers*perWriter)

	// Every sequence number appears exactly once.
	seen := make(map[uint64]bool, len(records))
	for _, r := range records {
		assert.False(t, seen[r.Seq], "duplicate seq %d", r.Seq)
		seen[r.Seq] = true
	}
}

// Compile-time check that Store satisfies the auditor seam.
var _ extensions.InteractionAuditor = (*Store)(nil)
