// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true, SkipCorruptedEntries: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLogMutationSequenceMonotonic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var last uint64
	for i := 0; i < 5; i++ {
		seq, err := s.LogMutation(ctx, AddNodePayload{ID: graph.NewNodeID(), Address: "https://a"}, time.Now().UnixMilli())
		require.NoError(t, err)
		assert.Greater(t, seq, last)
		last = seq
	}
}

func TestRecoverReplaysAllMutations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := graph.NewNodeID()
	_, err := s.LogMutation(ctx, AddNodePayload{ID: id, Address: "https://a", AddressKind: graph.AddressWeb}, time.Now().UnixMilli())
	require.NoError(t, err)
	_, err = s.LogMutation(ctx, UpdateNodeTitlePayload{ID: id, Title: "hello"}, time.Now().UnixMilli())
	require.NoError(t, err)

	g, lastSeq, err := s.Recover(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, lastSeq)

	_, n := g.GetNodeByAddress("https://a")
	require.NotNil(t, n)
	assert.Equal(t, "hello", n.Title)
}

func TestSnapshotThenRecoverOnlyReplaysAfterWatermark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := graph.New()
	id := graph.NewNodeID()
	n, _, _ := g.AddNode(id, "https://a", graph.AddressWeb, "", time.Now())
	id = n.ID

	_, err := s.LogMutation(ctx, AddNodePayload{ID: id, Address: "https://a"}, time.Now().UnixMilli())
	require.NoError(t, err)

	watermark, err := s.TakeSnapshot(ctx, g)
	require.NoError(t, err)
	assert.EqualValues(t, 1, watermark)

	_, err = s.LogMutation(ctx, UpdateNodeTitlePayload{ID: id, Title: "after-snapshot"}, time.Now().UnixMilli())
	require.NoError(t, err)

	recovered, lastSeq, err := s.Recover(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, lastSeq)
	_, rn := recovered.GetNodeByAddress("https://a")
	require.NotNil(t, rn)
	assert.Equal(t, "after-snapshot", rn.Title)
}

func TestNamedSnapshotsIndependentOfWatermark(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g := graph.New()
	g.AddNode(graph.NewNodeID(), "https://a", graph.AddressWeb, "", time.Now())

	require.NoError(t, s.SaveNamedSnapshot(ctx, "checkpoint-1", g))

	names, err := s.ListNamedSnapshots(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "checkpoint-1")

	loaded, err := s.LoadNamedSnapshot(ctx, "checkpoint-1")
	require.NoError(t, err)
	_, n := loaded.GetNodeByAddress("https://a")
	assert.NotNil(t, n)

	require.NoError(t, s.DeleteNamedSnapshot(ctx, "checkpoint-1"))
	_, err = s.LoadNamedSnapshot(ctx, "checkpoint-1")
	assert.ErrorIs(t, err, ErrNamedNotFound)
}

func TestEveryWrittenPayloadCarriesFormatMagic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LogMutation(ctx, AddNodePayload{ID: graph.NewNodeID(), Address: "https://a"}, time.Now().UnixMilli())
	require.NoError(t, err)

	err = s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := journalPrefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			return it.Item().Value(func(val []byte) error {
				assert.True(t, hasFormatMagic(val))
				return nil
			})
		}
		return nil
	})
	require.NoError(t, err)
}

func TestCorruptedEntrySkippedNotHalting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id1 := graph.NewNodeID()
	_, err := s.LogMutation(ctx, AddNodePayload{ID: id1, Address: "https://a"}, time.Now().UnixMilli())
	require.NoError(t, err)

	// Corrupt a manually injected bad entry between two good ones.
	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		return txn.Set(journalKey(s.seq.Add(1)), []byte("not-a-valid-payload"))
	})
	require.NoError(t, err)

	id2 := graph.NewNodeID()
	_, err = s.LogMutation(ctx, AddNodePayload{ID: id2, Address: "https://b"}, time.Now().UnixMilli())
	require.NoError(t, err)

	g, _, err := s.Recover(ctx)
	require.NoError(t, err)

	_, a := g.GetNodeByAddress("https://a")
	_, b := g.GetNodeByAddress("https://b")
	assert.NotNil(t, a, "entries before corruption are applied")
	assert.NotNil(t, b, "entries after corruption are still applied in order")
}

func TestReadOnlyWhenKeyUnavailable(t *testing.T) {
	_, err := Open(Config{InMemory: true, Keychain: failingKeychain{}})
	require.Error(t, err)

	s, err := Open(Config{InMemory: true, Keychain: failingKeychain{}, AllowDegradedKey: true})
	require.NoError(t, err)
	defer s.Close()
	assert.True(t, s.ReadOnly())

	_, err = s.LogMutation(context.Background(), AddNodePayload{}, time.Now().UnixMilli())
	assert.ErrorIs(t, err, ErrReadOnly)
}

type failingKeychain struct{}

func (failingKeychain) Load() ([]byte, error) { return nil, assertAnError }
func (failingKeychain) Save([]byte) error     { return nil }

var assertAnError = assertError("keychain backend unreachable")

type assertError string

func (e assertError) Error() string { return string(e) }
