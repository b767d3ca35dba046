// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package artifacts persists the raw texts of every assistant
// round trip: the prompt sent, the response received, errors, and
// applied plans. Artifacts are the debugging record when a generated
// plan goes wrong, and the place the full text lives when the UI only
// got a truncated response.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind prefixes the artifact filename so a directory listing reads as
// a session log.
type Kind string

const (
	KindPrompt      Kind = "prompt"
	KindLLMResponse Kind = "llm_response"
	KindError       Kind = "error"
	KindApplyPlan   Kind = "apply_plan"
)

// ErrInvalidFilename rejects artifact reads outside the store: path
// traversal attempts and non-artifact extensions.
var ErrInvalidFilename = errors.New("invalid artifact filename")

// Store owns one artifacts directory.
//
// Thread Safety: Safe for concurrent use; each write creates a new
// exclusively-opened file.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the directory if needed and returns a store.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Dir returns the artifacts directory path.
func (s *Store) Dir() string { return s.dir }

// Write saves content as artifact_{kind}_{unixms}.txt with owner-only
// permissions, since prompts can embed personal media paths. Returns
// the bare filename for later Read calls.
func (s *Store) Write(kind Kind, content string) (string, error) {
	// Millisecond timestamps can collide under concurrent requests;
	// bump until the exclusive create succeeds.
	ms := time.Now().UnixMilli()
	for attempt := 0; attempt < 1000; attempt++ {
		filename := fmt.Sprintf("artifact_%s_%d.txt", kind, ms+int64(attempt))
		path := filepath.Join(s.dir, filename)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create artifact file: %w", err)
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write artifact file: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close artifact file: %w", err)
		}

		s.logger.Debug("Artifact logged", "filename", filename, "bytes", len(content))
		return filename, nil
	}
	return "", errors.New("could not find a free artifact filename")
}

// WriteApplyPlan records an applied (or failed) plan together with the
// raw model output it was parsed from.
func (s *Store) WriteApplyPlan(planJSON json.RawMessage, result, rawInput string) (string, error) {
	payload := struct {
		Plan     json.RawMessage `json:"plan"`
		Result   string          `json:"result"`
		RawInput string          `json:"raw_input"`
	}{
		Plan:     planJSON,
		Result:   result,
		RawInput: rawInput,
	}
	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode apply-plan artifact: %w", err)
	}
	return s.Write(KindApplyPlan, string(content))
}

// Read returns an artifact's content by bare filename. Filenames
// containing path separators or traversal, or without the .txt
// extension, are rejected before touching the filesystem.
func (s *Store) Read(filename string) (string, error) {
	if strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\`) ||
		!strings.HasSuffix(filename, ".txt") {
		return "", ErrInvalidFilename
	}

	content, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		return "", fmt.Errorf("failed to read artifact %s: %w", filename, err)
	}
	return string(content), nil
}
