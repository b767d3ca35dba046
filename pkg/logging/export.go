// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// LogExporter ships log records to a destination outside the process,
// such as a managed-deployment collector. Export is called from the
// Logger's export worker with a one second deadline per entry; slow
// destinations should buffer internally and do real sends in Flush.
type LogExporter interface {
	Export(ctx context.Context, entry LogEntry) error
	Flush(ctx context.Context) error
	Close() error
}

// LogEntry is the exporter-facing form of a log record.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Service   string         `json:"service,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// NopExporter discards everything. Useful as a placeholder where a
// LogExporter is required but nothing should leave the machine.
type NopExporter struct{}

func (e *NopExporter) Export(ctx context.Context, entry LogEntry) error { return nil }
func (e *NopExporter) Flush(ctx context.Context) error                  { return nil }
func (e *NopExporter) Close() error                                     { return nil }

// BufferedExporter accumulates entries in memory. Tests use it to
// observe what a Logger exported.
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{}
}

func (e *BufferedExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

func (e *BufferedExporter) Flush(ctx context.Context) error { return nil }
func (e *BufferedExporter) Close() error                    { return nil }

// Entries returns a copy of everything exported so far.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.entries))
	copy(out, e.entries)
	return out
}

// WriterExporter writes one formatted line per entry to w. It exists
// for ad hoc debugging, not production export.
type WriterExporter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterExporter(w io.Writer) *WriterExporter {
	return &WriterExporter{w: w}
}

func (e *WriterExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	line := fmt.Sprintf("[%s] %s: %s", entry.Timestamp.Format(time.RFC3339), entry.Level, entry.Message)
	if len(entry.Attrs) > 0 {
		line = fmt.Sprintf("%s %v", line, entry.Attrs)
	}
	_, err := fmt.Fprintln(e.w, line)
	return err
}

func (e *WriterExporter) Flush(ctx context.Context) error { return nil }
func (e *WriterExporter) Close() error                    { return nil }
