// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store implements the durable journal + snapshot persistence
// layer of spec.md §4.2: a single BadgerDB instance holding the
// mutations journal, the traversal/dissolved cold archives, and the
// automatic + named snapshot keyspaces, all encrypted at rest via
// internal/store's codec. Grounded on
// services/trace/agent/mcts/crs/journal.go's WAL-over-Badger design.
package store

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

// Config configures a Store (spec.md §9 "Config objects": enumerate
// recognized options explicitly).
type Config struct {
	DataDir             string
	InMemory            bool
	Keychain            Keychain
	AllowDegradedKey     bool
	SkipCorruptedEntries bool
	Logger              *slog.Logger
	Diag                Diag
}

// Store is the persistence layer described by spec.md §4.2.
type Store struct {
	db  *DB
	kr  *keyring
	cfg Config
	log *slog.Logger
	diag Diag

	seq      atomic.Uint64
	readOnly atomic.Bool
	closed   atomic.Bool

	mu sync.Mutex
}

// Open opens or creates the store's keyspaces at cfg.DataDir (spec.md
// §4.2 "open(data_dir) -> Store"). If the encryption key cannot be
// loaded, Open returns the ErrKeyUnavailable error unless
// cfg.AllowDegradedKey is set, in which case the store opens in
// read-only mode (spec.md §4.2 "Key unavailable on open -> store enters
// read-only mode").
func Open(cfg Config) (*Store, error) {
	registerMutationTypes()
	gob.Register(graph.Point{})

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Diag == nil {
		cfg.Diag = noopDiag{}
	}
	if cfg.Keychain == nil {
		cfg.Keychain = &MemKeychain{}
	}

	var dbCfg DBConfig
	if cfg.InMemory {
		dbCfg = InMemoryDBConfig()
	} else {
		dbCfg = DefaultDBConfig(cfg.DataDir)
	}
	dbCfg.Logger = cfg.Logger

	db, err := OpenDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	s := &Store{
		db:  db,
		cfg: cfg,
		log: cfg.Logger.With(slog.String("component", "store")),
		diag: cfg.Diag,
	}

	kr, err := openKeyring(cfg.Keychain)
	if err != nil {
		s.readOnly.Store(true)
		s.diag.Emit("persistence.keychain", Error, "encryption key unavailable, entering read-only mode", map[string]any{"error": err.Error()})
		if !cfg.AllowDegradedKey {
			db.Close()
			return nil, err
		}
	} else {
		s.kr = kr
	}

	if err := s.initSeq(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init sequence: %w", err)
	}

	if s.kr != nil {
		if err := s.migrateLegacyPayloads(context.Background()); err != nil {
			s.log.Warn("legacy migration incomplete", slog.String("error", err.Error()))
		}
	}

	return s, nil
}

// ReadOnly reports whether the store has degraded to read-only mode
// (spec.md §7 "Read-only mode").
func (s *Store) ReadOnly() bool {
	return s.readOnly.Load()
}

// Close releases the underlying database and keyring.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		if s.kr != nil {
			s.kr.close()
		}
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSeq() error {
	var maxSeq uint64
	err := s.db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := journalPrefix()
		seekKey := append(append([]byte{}, prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekKey)
		if it.ValidForPrefix(prefix) {
			seq, err := parseJournalSeq(it.Item().Key())
			if err == nil {
				maxSeq = seq
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.seq.Store(maxSeq)
	return nil
}

// LogMutation appends entry.Payload to the journal and returns the
// assigned sequence number (spec.md §4.2 "log_mutation(entry)").
// Sequence numbers are dense and strictly increasing (Invariant 7).
func (s *Store) LogMutation(ctx context.Context, payload Mutation, timestamp int64) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	if s.readOnly.Load() {
		return 0, ErrReadOnly
	}
	if s.kr == nil {
		return 0, ErrKeyUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq.Add(1)
	entry := LogEntry{Sequence: seq, Timestamp: timestamp, Payload: payload}

	data, err := encodePayload(s.kr, entry)
	if err != nil {
		s.seq.Add(^uint64(0)) // roll back the reservation on encode failure
		return 0, fmt.Errorf("store: encode entry: %w", err)
	}

	if err := s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(journalKey(seq), data)
	}); err != nil {
		s.readOnly.Store(true)
		s.diag.Emit("persistence.journal", Error, "journal write failed, entering read-only mode", map[string]any{"error": err.Error()})
		return 0, fmt.Errorf("store: write entry: %w", err)
	}

	return seq, nil
}

// Recover implements spec.md §4.2's recovery algorithm: load the latest
// snapshot (if any), then replay journal entries with sequence greater
// than the snapshot watermark. Corrupted entries are skipped with an
// Error diagnostic (if SkipCorruptedEntries) rather than halting recovery
// (spec.md §4.2 step 3, Open Questions).
func (s *Store) Recover(ctx context.Context) (*graph.Graph, uint64, error) {
	g := graph.New()
	watermark, err := s.loadSnapshotInto(g)
	if err != nil && err != ErrNoSnapshot {
		return nil, 0, fmt.Errorf("store: load snapshot: %w", err)
	}

	lastSeq := watermark
	var gapDetected bool

	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := journalPrefix()
		var expected uint64
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			seq, perr := parseJournalSeq(item.Key())
			if perr != nil {
				continue
			}
			if seq <= watermark {
				continue
			}
			if expected != 0 && seq != expected {
				gapDetected = true
				s.diag.Emit("persistence.journal", Warn, "sequence gap detected", map[string]any{"expected": expected, "got": seq})
			}
			expected = seq + 1

			var entry LogEntry
			verr := item.Value(func(val []byte) error {
				_, derr := decodePayload(s.kr, val, &entry)
				return derr
			})
			if verr != nil {
				s.diag.Emit("persistence.corruption", Error, "corrupt journal entry skipped", map[string]any{"sequence": seq, "error": verr.Error()})
				if !s.cfg.SkipCorruptedEntries {
					return fmt.Errorf("store: corrupt entry at seq %d: %w", seq, verr)
				}
				continue
			}

			if aerr := applyMutationToGraph(g, entry); aerr != nil {
				s.diag.Emit("reducer.invariant", Warn, "skipped invalid replayed mutation", map[string]any{"sequence": seq, "error": aerr.Error()})
			}
			lastSeq = seq
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if gapDetected {
		s.diag.Emit("diagnostics.selfcheck", Warn, "journal replay completed with sequence divergence", nil)
	}

	s.seq.Store(lastSeq)
	return g, lastSeq, nil
}

func nowMillis() int64 { return time.Now().UnixMilli() }
