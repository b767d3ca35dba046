// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifacts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SweeperConfig controls the retention loop.
type SweeperConfig struct {
	// Interval between sweeps.
	Interval time.Duration
	// MaxAge after which an artifact is deleted.
	MaxAge time.Duration
}

// DefaultSweeperConfig keeps a week of artifacts and checks hourly.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: 1 * time.Hour,
		MaxAge:   7 * 24 * time.Hour,
	}
}

// SweepResult summarizes one retention pass.
type SweepResult struct {
	Scanned  int
	Deleted  int
	Duration time.Duration
}

// Sweeper deletes expired artifacts in the background.
//
// # Description
//
// Artifacts accumulate with every prompt; without retention a busy
// editing session fills the disk with stale model output. The sweeper
// runs a pass at start and then on every interval tick, deleting
// artifact files older than MaxAge. Uses the ticker + done channel
// pattern for graceful shutdown.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Sweeper struct {
	store   *Store
	config  SweeperConfig
	logger  *slog.Logger
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper over the given store.
func NewSweeper(store *Store, config SweeperConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  store,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start launches the background loop. Returns an error if the sweeper
// is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("artifact sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("Artifact sweeper starting",
		"interval", s.config.Interval.String(),
		"max_age", s.config.MaxAge.String(),
	)
	go s.runLoop(ctx)
	return nil
}

// Stop signals the loop to exit. Safe to call multiple times.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.logger.Info("Artifact sweeper stopping")
	close(s.done)
	s.running = false
	return nil
}

// RunNow performs a single retention pass immediately.
func (s *Sweeper) RunNow(ctx context.Context) (SweepResult, error) {
	return s.sweep(ctx)
}

func (s *Sweeper) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.executeSweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Artifact sweeper stopped (context cancelled)")
			return
		case <-s.done:
			s.logger.Info("Artifact sweeper stopped (stop requested)")
			return
		case <-ticker.C:
			s.executeSweep(ctx)
		}
	}
}

// executeSweep wraps sweep so a failing pass never kills the loop.
func (s *Sweeper) executeSweep(ctx context.Context) {
	result, err := s.sweep(ctx)
	if err != nil {
		s.logger.Error("Artifact sweep failed", "error", err)
		return
	}
	if result.Deleted > 0 {
		s.logger.Info("Artifact sweep completed",
			"scanned", result.Scanned,
			"deleted", result.Deleted,
			"duration_ms", result.Duration.Milliseconds(),
		)
	} else {
		s.logger.Debug("Artifact sweep completed (nothing expired)")
	}
}

func (s *Sweeper) sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	cutoff := start.Add(-s.config.MaxAge)

	entries, err := os.ReadDir(s.store.Dir())
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list artifacts dir: %w", err)
	}

	result := SweepResult{}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "artifact_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		result.Scanned++

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.store.Dir(), name)); err != nil {
			s.logger.Warn("Failed to delete expired artifact", "filename", name, "error", err)
			continue
		}
		result.Deleted++
	}

	result.Duration = time.Since(start)
	return result, nil
}
