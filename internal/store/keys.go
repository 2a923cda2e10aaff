// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"encoding/binary"
	"fmt"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

// Key layout (spec.md §6.1). All keyspaces live in one BadgerDB instance,
// partitioned by prefix — grounded on the teacher's
// "delta:{session_id}:{seq_num:016d}" scheme in
// services/trace/agent/mcts/crs/journal.go, generalized to graphshell's
// four logical keyspaces.
const (
	prefixJournal      = "jrnl:"
	prefixArchiveTrav  = "arch:trav:"
	prefixArchiveDiss  = "arch:diss:"
	keySnapshotCurrent = "snap:current"
	keySnapshotMark    = "snap:watermark"
	prefixSnapshotName = "snap:named:"
)

// journalKey formats a dense monotonic sequence number for lexicographic
// ordering (seq 1 sorts before seq 2 ... before seq 10).
func journalKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefixJournal, seq))
}

func journalPrefix() []byte { return []byte(prefixJournal) }

func parseJournalSeq(key []byte) (uint64, error) {
	if len(key) <= len(prefixJournal) {
		return 0, fmt.Errorf("short journal key")
	}
	var seq uint64
	if _, err := fmt.Sscanf(string(key[len(prefixJournal):]), "%020d", &seq); err != nil {
		return 0, err
	}
	return seq, nil
}

// archiveTraversalKey implements spec.md §6.1:
// "<from_id_bytes><to_id_bytes><timestamp_be>".
func archiveTraversalKey(from, to graph.NodeID, timestampMillis int64) []byte {
	key := make([]byte, 0, len(prefixArchiveTrav)+16+16+8)
	key = append(key, prefixArchiveTrav...)
	key = append(key, from[:]...)
	key = append(key, to[:]...)
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(timestampMillis))
	return append(key, ts...)
}

func archiveTraversalPrefix() []byte { return []byte(prefixArchiveTrav) }

// archiveDissolvedKey implements spec.md §6.1:
// "<dissolved_at_be><record_id>".
func archiveDissolvedKey(dissolvedAtMillis int64, recordID graph.NodeID) []byte {
	key := make([]byte, 0, len(prefixArchiveDiss)+8+16)
	key = append(key, prefixArchiveDiss...)
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(dissolvedAtMillis))
	key = append(key, ts...)
	return append(key, recordID[:]...)
}

func archiveDissolvedPrefix() []byte { return []byte(prefixArchiveDiss) }

func namedSnapshotKey(name string) []byte {
	return []byte(prefixSnapshotName + name)
}

func namedSnapshotPrefix() []byte { return []byte(prefixSnapshotName) }
