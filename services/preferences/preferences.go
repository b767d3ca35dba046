// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package preferences stores the user's editing preferences and a
// rolling interaction log in ~/.ghostcut/preferences.json. The prompt
// builder reads both to personalize plan generation.
package preferences

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the preferences file inside the config directory.
const FileName = "preferences.json"

// Interaction event types the prompt builder understands.
const (
	EventAIEditApplied = "AI_EDIT_APPLIED"
	EventManualMove    = "MANUAL_MOVE"
	EventManualTrim    = "MANUAL_TRIM"
)

type GeneralPreferences struct {
	DefaultTransitionDuration float64 `json:"default_transition_duration"`
	AutoRippleEdits           bool    `json:"auto_ripple_edits"`
}

type InteractionEvent struct {
	Timestamp int64           `json:"timestamp"`
	EventType string          `json:"event_type"`
	Details   json.RawMessage `json:"details"`
}

type UserPreferences struct {
	General      GeneralPreferences `json:"general"`
	Interactions []InteractionEvent `json:"interactions"`
}

// DefaultPreferences returns the out-of-box settings.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		General: GeneralPreferences{
			DefaultTransitionDuration: 0.5,
			AutoRippleEdits:           true,
		},
		Interactions: []InteractionEvent{},
	}
}

// clone deep-copies the preferences so callers can't alias the
// manager's internal state.
func (p UserPreferences) clone() UserPreferences {
	out := p
	out.Interactions = make([]InteractionEvent, len(p.Interactions))
	copy(out.Interactions, p.Interactions)
	return out
}

// DefaultDir returns ~/.ghostcut, the config directory shared by all
// GhostCut services.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ghostcut"), nil
}

// Manager owns the preferences file. All methods are safe for
// concurrent use; file writes happen outside the lock.
type Manager struct {
	mu       sync.Mutex
	prefs    UserPreferences
	filePath string
	log      *slog.Logger
}

// NewManager loads (or initializes) dir/preferences.json. A missing or
// corrupt file falls back to defaults rather than failing startup; the
// corrupt content is overwritten on the next save.
func NewManager(dir string, log *slog.Logger) (*Manager, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preferences dir %s: %w", dir, err)
	}

	m := &Manager{
		prefs:    DefaultPreferences(),
		filePath: filepath.Join(dir, FileName),
		log:      log,
	}
	if err := m.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("preferences file unreadable, using defaults",
			"path", m.filePath, "error", err)
	}
	return m, nil
}

// NewInMemory returns a manager with no backing file, for tests and
// for running the daemon in stateless mode.
func NewInMemory() *Manager {
	return &Manager{
		prefs: DefaultPreferences(),
		log:   slog.Default(),
	}
}

// Reload re-reads the backing file. Called at startup and by the
// change watcher when another process rewrites the file.
func (m *Manager) Reload() error {
	if m.filePath == "" {
		return nil
	}
	content, err := os.ReadFile(m.filePath)
	if err != nil {
		return err
	}
	loaded := DefaultPreferences()
	if err := json.Unmarshal(content, &loaded); err != nil {
		return fmt.Errorf("failed to decode %s: %w", m.filePath, err)
	}
	if loaded.Interactions == nil {
		loaded.Interactions = []InteractionEvent{}
	}

	m.mu.Lock()
	m.prefs = loaded
	m.mu.Unlock()
	return nil
}

// Preferences returns a deep copy of the current preferences.
func (m *Manager) Preferences() UserPreferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs.clone()
}

// UpdateGeneral replaces the general settings and persists the file.
func (m *Manager) UpdateGeneral(general GeneralPreferences) error {
	m.mu.Lock()
	m.prefs.General = general
	snapshot := m.prefs.clone()
	m.mu.Unlock()
	return m.save(snapshot)
}

// LogInteraction appends an event to the interaction history and
// persists the file. details must be JSON-marshalable.
func (m *Manager) LogInteraction(eventType string, details any) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode interaction details: %w", err)
	}

	m.mu.Lock()
	m.prefs.Interactions = append(m.prefs.Interactions, InteractionEvent{
		Timestamp: time.Now().UnixMilli(),
		EventType: eventType,
		Details:   raw,
	})
	snapshot := m.prefs.clone()
	m.mu.Unlock()
	return m.save(snapshot)
}

// save writes a snapshot to disk. Holding the lock during I/O would
// stall the prompt path, so callers snapshot first.
func (m *Manager) save(snapshot UserPreferences) error {
	if m.filePath == "" {
		return nil
	}
	content, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := os.WriteFile(m.filePath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", m.filePath, err)
	}
	return nil
}
