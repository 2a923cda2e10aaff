// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

// snapshotPayload is the serialized unit written to the "current" and
// named snapshot keys: a full node/edge listing plus the sequence
// watermark. Traversal slices are included so hot-tier history survives a
// snapshot+reload without waiting for a journal replay.
type snapshotPayload struct {
	Watermark uint64
	Nodes     []graph.Node
	Edges     []graph.Edge
}

func snapshotFromGraph(g *graph.Graph, watermark uint64) snapshotPayload {
	sp := snapshotPayload{Watermark: watermark}
	g.AllNodes(func(n *graph.Node) { sp.Nodes = append(sp.Nodes, *n.Clone()) })
	g.AllEdges(func(e *graph.Edge) { sp.Edges = append(sp.Edges, *e) })
	return sp
}

func graphFromSnapshot(sp snapshotPayload) *graph.Graph {
	g := graph.New()
	for i := range sp.Nodes {
		g.Restore(&sp.Nodes[i])
	}
	for i := range sp.Edges {
		g.RestoreEdge(&sp.Edges[i])
	}
	return g
}

// TakeSnapshot atomically writes a new automatic snapshot and bumps the
// watermark so that Recover only replays journal entries after it
// (spec.md §4.2 "take_snapshot(graph, workspace_meta) -> sequence
// watermark"). The watermark is the highest sequence number logged at
// call time.
func (s *Store) TakeSnapshot(ctx context.Context, g *graph.Graph) (uint64, error) {
	if s.readOnly.Load() {
		return 0, ErrReadOnly
	}
	if s.kr == nil {
		return 0, ErrKeyUnavailable
	}

	watermark := s.seq.Load()
	sp := snapshotFromGraph(g, watermark)
	data, err := encodePayload(s.kr, sp)
	if err != nil {
		return 0, fmt.Errorf("store: encode snapshot: %w", err)
	}

	wmBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(wmBytes, watermark)

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keySnapshotCurrent), data); err != nil {
			return err
		}
		return txn.Set([]byte(keySnapshotMark), wmBytes)
	})
	if err != nil {
		return 0, fmt.Errorf("store: write snapshot: %w", err)
	}
	return watermark, nil
}

// loadSnapshotInto loads the latest automatic snapshot into g and returns
// its watermark. Returns ErrNoSnapshot if none exists yet.
func (s *Store) loadSnapshotInto(g *graph.Graph) (uint64, error) {
	if s.kr == nil {
		return 0, ErrKeyUnavailable
	}
	var sp snapshotPayload
	found := false
	err := s.db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySnapshotCurrent))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, derr := decodePayload(s.kr, val, &sp)
			if derr == nil {
				found = true
			}
			return derr
		})
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNoSnapshot
	}
	loaded := graphFromSnapshot(sp)
	*g = *loaded
	return sp.Watermark, nil
}

// SaveNamedSnapshot writes an independent, user-named snapshot; named
// snapshots do not affect journal sequence or the automatic watermark
// (spec.md §4.2).
func (s *Store) SaveNamedSnapshot(ctx context.Context, name string, g *graph.Graph) error {
	if s.readOnly.Load() {
		return ErrReadOnly
	}
	if s.kr == nil {
		return ErrKeyUnavailable
	}
	sp := snapshotFromGraph(g, s.seq.Load())
	data, err := encodePayload(s.kr, sp)
	if err != nil {
		return fmt.Errorf("store: encode named snapshot: %w", err)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(namedSnapshotKey(name), data)
	})
}

// LoadNamedSnapshot loads a previously saved named snapshot.
func (s *Store) LoadNamedSnapshot(ctx context.Context, name string) (*graph.Graph, error) {
	if s.kr == nil {
		return nil, ErrKeyUnavailable
	}
	var sp snapshotPayload
	found := false
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(namedSnapshotKey(name))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, derr := decodePayload(s.kr, val, &sp)
			if derr == nil {
				found = true
			}
			return derr
		})
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNamedNotFound
	}
	return graphFromSnapshot(sp), nil
}

// ListNamedSnapshots returns the names of all saved named snapshots.
func (s *Store) ListNamedSnapshots(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := namedSnapshotPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	return names, err
}

// DeleteNamedSnapshot removes a named snapshot.
func (s *Store) DeleteNamedSnapshot(ctx context.Context, name string) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Delete(namedSnapshotKey(name))
	})
}

// ArchiveAppendTraversal writes a cold-tier traversal record (spec.md
// §4.2 "archive_append_traversal"); append-only, never rewritten.
func (s *Store) ArchiveAppendTraversal(ctx context.Context, from, to graph.NodeID, t graph.Traversal) error {
	if s.kr == nil {
		return ErrKeyUnavailable
	}
	data, err := encodePayload(s.kr, t)
	if err != nil {
		return fmt.Errorf("store: encode archived traversal: %w", err)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(archiveTraversalKey(from, to, t.Timestamp), data)
	})
}

// DissolvedRecord is an append-only record of a node/edge that left the
// live graph permanently (permanent delete, retracted assertion with no
// remaining liveness) — the keyspace named in spec.md §6.1.
type DissolvedRecord struct {
	RecordID    graph.NodeID
	DissolvedAt int64
	Kind        string
	Detail      string
}

// ArchiveDissolvedRecord appends to the dissolved-records keyspace.
func (s *Store) ArchiveDissolvedRecord(ctx context.Context, rec DissolvedRecord) error {
	if s.kr == nil {
		return ErrKeyUnavailable
	}
	data, err := encodePayload(s.kr, rec)
	if err != nil {
		return fmt.Errorf("store: encode dissolved record: %w", err)
	}
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(archiveDissolvedKey(rec.DissolvedAt, rec.RecordID), data)
	})
}

// migrateLegacyPayloads re-encodes any payload lacking the format magic
// in place (spec.md §4.2 "Legacy compatibility": "a one-shot migration
// re-encodes all such payloads on open").
func (s *Store) migrateLegacyPayloads(ctx context.Context) error {
	return s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		type pending struct {
			key  []byte
			data []byte
		}
		var toMigrate []pending

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := append([]byte{}, item.Key()...)
			var raw []byte
			if err := item.Value(func(val []byte) error {
				raw = append([]byte{}, val...)
				return nil
			}); err != nil {
				continue
			}
			if !hasFormatMagic(raw) {
				toMigrate = append(toMigrate, pending{key: key, data: raw})
			}
		}

		for _, p := range toMigrate {
			var generic any
			if _, err := decodePayload(s.kr, p.data, &generic); err != nil {
				s.diag.Emit("persistence.migration", Warn, "legacy payload could not be migrated", map[string]any{"key": string(p.key)})
				continue
			}
			reencoded, err := encodePayload(s.kr, generic)
			if err != nil {
				continue
			}
			if err := txn.Set(p.key, reencoded); err != nil {
				return err
			}
		}
		return nil
	})
}
