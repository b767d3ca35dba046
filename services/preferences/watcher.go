// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package preferences

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the preferences when another process rewrites the
// file, so edits made through the CLI show up in a running daemon
// without a restart.
//
// The watch is on the directory rather than the file because editors
// and atomic writers replace the file, which would orphan a file-level
// watch. Watch returns after the watcher goroutine is running; the
// goroutine exits when ctx is cancelled. The manager's own saves also
// trigger events; reloading what was just written is harmless.
func (m *Manager) Watch(ctx context.Context) error {
	if m.filePath == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create preferences watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(m.filePath)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch preferences dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != m.filePath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := m.Reload(); err != nil {
					m.log.Warn("preferences reload failed", "error", err)
					continue
				}
				m.log.Debug("preferences reloaded", "path", m.filePath)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.log.Warn("preferences watcher error", "error", err)
			}
		}
	}()
	return nil
}
