// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history persists the edit interaction audit trail.
//
// Every applied AI plan and every manual edit is recorded as an
// InteractionRecord in an embedded BadgerDB instance. Unlike the
// bounded interaction list inside preferences.json (which exists for
// prompt context), this store is durable and unbounded: it survives
// restarts, is safe under concurrent writers, and backs the
// /v1/history endpoint.
//
// Key format: "event:{seq_num:016d}". Values are JSON-encoded
// extensions.InteractionRecord.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
)

var (
	// ErrStoreClosed is returned when operations are called on a closed store.
	ErrStoreClosed = errors.New("history store is closed")

	// ErrNilContext is returned when a nil context is passed.
	ErrNilContext = errors.New("context must not be nil")

	// ErrEmptyEventType is returned when Record is called without a type.
	ErrEmptyEventType = errors.New("event type must not be empty")
)

const eventKeyPrefix = "event:"

// Config holds configuration for the history store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// GCInterval is how often to run value log garbage collection.
	// Set to 0 to disable.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64

	// Logger for store operations. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns production defaults rooted at path.
//
// Audit records are small and infrequent (one per edit), so sync
// writes cost nothing noticeable and guarantee the trail survives a
// crash mid-commit.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration for tests: no disk IO, no GC.
func InMemoryConfig() Config {
	return Config{
		InMemory:   true,
		SyncWrites: false,
		GCInterval: 0,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is the BadgerDB-backed audit trail.
//
// Implements extensions.InteractionAuditor.
//
// Thread Safety: Safe for concurrent use from multiple goroutines.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	seqNum atomic.Uint64
	closed atomic.Bool

	gcStop chan struct{}
	gcDone chan struct{}
}

// Open creates or reopens a history store.
//
// # Description
//
// Opens BadgerDB at cfg.Path (creating the directory), scans for the
// highest existing sequence number so appends continue where the last
// run stopped, and starts the value-log GC loop when configured.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory.
//
// # Outputs
//
//   - *Store: Ready-to-use store. Caller must Close() when done.
//   - error: Non-nil if the path is invalid or the database cannot open.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent history store")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts = opts.WithNumVersionsToKeep(1)
	opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: cfg.Logger.With(slog.String("component", "history")),
	}

	if err := s.initSeqNum(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sequence number: %w", err)
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gcStop = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}

	s.logger.Info("history store opened",
		slog.String("path", cfg.Path),
		slog.Uint64("last_seq", s.seqNum.Load()))

	return s, nil
}

// initSeqNum scans for the highest existing sequence number.
func (s *Store) initSeqNum() error {
	prefix := []byte(eventKeyPrefix)
	var maxSeq uint64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible key with our prefix.
		seekKey := append(append([]byte{}, prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekKey)

		if it.ValidForPrefix(prefix) {
			key := it.Item().Key()
			seqStr := string(key[len(prefix):])
			var seq uint64
			if _, err := fmt.Sscanf(seqStr, "%016d", &seq); err == nil {
				maxSeq = seq
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.seqNum.Store(maxSeq)
	return nil
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", eventKeyPrefix, seq))
}

// Record persists one interaction event.
//
// Implements extensions.InteractionAuditor. The store assigns the
// sequence number and timestamp; details are marshaled to JSON.
func (s *Store) Record(ctx context.Context, eventType string, details any) error {
	if ctx == nil {
		return ErrNilContext
	}
	if eventType == "" {
		return ErrEmptyEventType
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrStoreClosed
	}

	record := extensions.InteractionRecord{
		Seq:       s.seqNum.Add(1),
		Timestamp: time.Now().UnixMilli(),
		EventType: eventType,
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		record.Details = raw
	}

	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal event record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(record.Seq), value)
	})
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	s.logger.Debug("interaction recorded",
		slog.Uint64("seq", record.Seq),
		slog.String("event_type", eventType))
	return nil
}

// Recent returns up to n records, newest first.
//
// Implements extensions.InteractionAuditor.
func (s *Store) Recent(ctx context.Context, n int) ([]extensions.InteractionRecord, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	if n <= 0 {
		return []extensions.InteractionRecord{}, nil
	}

	prefix := []byte(eventKeyPrefix)
	records := make([]extensions.InteractionRecord, 0, n)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix) && len(records) < n; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				var record extensions.InteractionRecord
				if err := json.Unmarshal(val, &record); err != nil {
					// A record we cannot decode is logged and skipped;
					// one bad entry must not hide the rest of the trail.
					s.logger.Warn("skipping undecodable history record",
						slog.String("key", string(it.Item().Key())),
						slog.String("error", err.Error()))
					return nil
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read recent events: %w", err)
	}

	return records, nil
}

// Count returns the total number of events ever recorded.
func (s *Store) Count() uint64 {
	return s.seqNum.Load()
}

// Close stops GC and closes the database. Safe to call multiple times.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
	}
	s.logger.Info("history store closing")
	return s.db.Close()
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(ratio)
			if err == nil {
				s.logger.Debug("history value log GC completed")
			} else if !errors.Is(err, badger.ErrNoRewrite) {
				// ErrNoRewrite means nothing to collect, not a failure.
				s.logger.Warn("history value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}
