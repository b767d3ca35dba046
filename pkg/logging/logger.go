// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging is the shared log front end for the Ghost binaries.
//
// It wraps log/slog with the destinations the product needs: stderr for
// interactive use, an optional per-day JSON file under the data dir for
// the daemon, and a LogExporter seam that managed builds use to ship
// logs off the machine. Services receive a *slog.Logger and stay
// ignorant of destinations; only the entry points build a Logger.
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelInfo,
//	    LogDir:  "~/.ghostcut/logs",
//	    Service: "ghostd",
//	    JSON:    true,
//	})
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
//
// Nothing here redacts. Callers log prompt sizes and artifact names,
// never prompt bodies or media paths a user might consider private.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// Levels
// =============================================================================

// Level is the minimum-severity filter. Ordering matches slog:
// Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config selects destinations and format. The zero value logs Info and
// above to stderr as text, which is what one-shot CLI commands want.
type Config struct {
	// Level is the minimum severity; lower records are dropped.
	Level Level

	// LogDir, when set, adds a JSON file sink named
	// {Service}_{YYYY-MM-DD}.log under the directory. Supports a
	// leading ~ and creates the directory 0750 when missing. A sink
	// that cannot be opened is skipped rather than fatal: losing the
	// file copy must not take the daemon down.
	LogDir string

	// Service tags every record with a "service" attribute and names
	// the log file.
	Service string

	// JSON switches the stderr sink from text to JSON. File sinks are
	// always JSON.
	JSON bool

	// Quiet drops the stderr sink, leaving file and exporter only.
	Quiet bool

	// Exporter, when set, receives every record at or above Level,
	// asynchronously. Managed-deployment seam; open source builds
	// leave it nil.
	Exporter LogExporter
}

// exportBuffer bounds the queue between log calls and the export
// worker. Records past the bound are dropped, never blocked on.
const exportBuffer = 256

// =============================================================================
// Logger
// =============================================================================

// Logger fans records out to stderr, the log file, and the exporter.
// Safe for concurrent use. Close releases the file and exporter and
// must be the last call; loggers created by With share both resources
// with their parent, so only the parent's Close releases them.
type Logger struct {
	slog     *slog.Logger
	config   Config
	file     *os.File
	exporter LogExporter
	exportCh chan LogEntry
	drained  chan struct{}
	mu       sync.Mutex
	closed   bool
}

// New builds a Logger from cfg. Callers that configure a LogDir or an
// Exporter own the result and must Close it.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	logger := &Logger{
		config:   config,
		exporter: config.Exporter,
	}

	if config.LogDir != "" {
		if file := openLogFile(config); file != nil {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		// Quiet with no usable file still needs a live handler.
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)

	if logger.exporter != nil {
		logger.exportCh = make(chan LogEntry, exportBuffer)
		logger.drained = make(chan struct{})
		go logger.runExportWorker()
	}

	return logger
}

// openLogFile opens today's log file for append, or nil when the
// directory or file cannot be created.
func openLogFile(config Config) *os.File {
	dir := expandPath(config.LogDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil
	}
	service := config.Service
	if service == "" {
		service = "ghost"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	file, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil
	}
	return file
}

// Default returns a stderr-only Info logger tagged "ghost".
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "ghost"})
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }

// Info logs at Info level.
func (l *Logger) Info(msg string, args ...any) { l.log(LevelInfo, msg, args...) }

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, args ...any) { l.log(LevelWarn, msg, args...) }

// Error logs at Error level.
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// With returns a child logger carrying extra attributes. File, export
// queue, and exporter are shared with the parent.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(args...),
		config:   l.config,
		file:     l.file,
		exporter: l.exporter,
		exportCh: l.exportCh,
		drained:  l.drained,
	}
}

// Slog exposes the underlying slog.Logger, for slog.SetDefault and for
// collaborators that take *slog.Logger directly.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close drains the export queue, flushes and closes the exporter, then
// syncs and closes the log file. The first failure is returned; later
// steps still run. Closing twice is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if l.exporter != nil {
		if l.exportCh != nil {
			close(l.exportCh)
			<-l.drained
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.exporter.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush exporter: %w", err))
		}
		if err := l.exporter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close exporter: %w", err))
		}
	}
	if l.file != nil {
		if err := l.file.Sync(); err != nil {
			errs = append(errs, fmt.Errorf("sync log file: %w", err))
		}
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (l *Logger) log(level Level, msg string, args ...any) {
	switch level {
	case LevelDebug:
		l.slog.Debug(msg, args...)
	case LevelInfo:
		l.slog.Info(msg, args...)
	case LevelWarn:
		l.slog.Warn(msg, args...)
	case LevelError:
		l.slog.Error(msg, args...)
	}

	if l.exportCh == nil || level < l.config.Level {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Service:   l.config.Service,
		Attrs:     argsToMap(args),
	}
	// Hand off to the worker without blocking. A full queue means the
	// exporter is not keeping up; dropping beats stalling the caller.
	select {
	case l.exportCh <- entry:
	default:
	}
}

// runExportWorker forwards queued entries to the exporter one at a
// time, preserving log order. A single slow Export only delays later
// exports, never the log calls that produced them.
func (l *Logger) runExportWorker() {
	defer close(l.drained)
	for entry := range l.exportCh {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = l.exporter.Export(ctx, entry)
		cancel()
	}
}

// =============================================================================
// Fan-out Handler
// =============================================================================

// multiHandler delivers each record to every enabled handler, so the
// stderr and file sinks can use different formats.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// =============================================================================
// Helpers
// =============================================================================

// expandPath resolves a leading ~ against the home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// argsToMap folds slog-style alternating key/value args into a map for
// LogEntry.Attrs. Non-string keys and a dangling trailing value are
// dropped.
func argsToMap(args []any) map[string]any {
	result := make(map[string]any)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			result[key] = args[i+1]
		}
	}
	return result
}
