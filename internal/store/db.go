// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// DBConfig configures the underlying BadgerDB instance. Grounded on
// services/trace/storage/badger's Config/DefaultConfig/InMemoryConfig
// shape (reconstructed here since that package's implementation file was
// not part of the retrieved pack, only its test).
type DBConfig struct {
	Path              string
	InMemory          bool
	SyncWrites        bool
	NumVersionsToKeep int
	GCInterval        time.Duration
	GCDiscardRatio    float64
	Logger            *slog.Logger
}

// DefaultDBConfig returns a production-durability configuration.
func DefaultDBConfig(path string) DBConfig {
	return DBConfig{
		Path:              path,
		SyncWrites:        true,
		NumVersionsToKeep: 1,
		GCInterval:        5 * time.Minute,
		GCDiscardRatio:    0.5,
		Logger:            slog.Default(),
	}
}

// InMemoryDBConfig returns a configuration for tests: no durability, no
// background GC.
func InMemoryDBConfig() DBConfig {
	return DBConfig{
		InMemory:          true,
		SyncWrites:        false,
		NumVersionsToKeep: 1,
	}
}

// DB wraps *badger.DB with context-aware transaction helpers.
type DB struct {
	bdb    *badger.DB
	logger *slog.Logger
	stopGC chan struct{}
}

// OpenDB opens or creates a BadgerDB instance per cfg.
func OpenDB(cfg DBConfig) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("db: path is required for persistent store")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.InMemory = cfg.InMemory
	opts.SyncWrites = cfg.SyncWrites
	opts.NumVersionsToKeep = int64(cfg.NumVersionsToKeep)
	opts.Logger = nil // badger's internal logger interface differs from slog; silenced here.

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}

	db := &DB{bdb: bdb, logger: cfg.Logger, stopGC: make(chan struct{})}
	if cfg.GCInterval > 0 {
		go db.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return db, nil
}

func (db *DB) runGC(interval time.Duration, discardRatio float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-db.stopGC:
			return
		case <-ticker.C:
		again:
			if err := db.bdb.RunValueLogGC(discardRatio); err == nil {
				goto again
			}
		}
	}
}

// WithTxn runs fn inside a read-write transaction, committing on success
// and discarding on error or context cancellation.
func (db *DB) WithTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}
	return db.bdb.Update(fn)
}

// WithReadTxn runs fn inside a read-only transaction.
func (db *DB) WithReadTxn(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if ctx == nil {
		return ErrNilContext
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}
	return db.bdb.View(fn)
}

// Close stops background GC and closes the underlying database.
func (db *DB) Close() error {
	close(db.stopGC)
	return db.bdb.Close()
}
