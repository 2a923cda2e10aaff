// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package graph owns the in-memory node/edge model: identity, lifecycle
// state, traversal accumulation and tombstone semantics. Mutation is
// exported only to the reducer package by convention (see the note at the
// top of mutate.go); every other consumer uses the read-only accessors.
package graph

import (
	"time"

	"github.com/google/uuid"
)

// NodeID is a stable 128-bit node identifier, minted fresh on create and
// released only by PermanentDelete.
type NodeID uuid.UUID

// NewNodeID mints a fresh identifier.
func NewNodeID() NodeID {
	return NodeID(uuid.New())
}

// String implements fmt.Stringer.
func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value (never assigned).
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// AddressKind hints which viewer family should handle a node's address.
type AddressKind int

const (
	AddressUnknown AddressKind = iota
	AddressWeb
	AddressFile
	AddressInternal
	AddressOther
)

func (k AddressKind) String() string {
	switch k {
	case AddressWeb:
		return "web"
	case AddressFile:
		return "file"
	case AddressInternal:
		return "internal"
	case AddressOther:
		return "other"
	default:
		return "unknown"
	}
}

// LifecycleState is one of Active/Warm/Cold/Tombstone (spec.md §3.1).
type LifecycleState int

const (
	LifecycleCold LifecycleState = iota
	LifecycleWarm
	LifecycleActive
	LifecycleTombstone
)

func (s LifecycleState) String() string {
	switch s {
	case LifecycleWarm:
		return "warm"
	case LifecycleActive:
		return "active"
	case LifecycleTombstone:
		return "tombstone"
	default:
		return "cold"
	}
}

// Trigger classifies how a Traversal was recorded.
type Trigger int

const (
	TriggerUnknown Trigger = iota
	TriggerClickedLink
	TriggerTypedAddress
	TriggerGraphOpen
	TriggerHistoryBack
	TriggerHistoryForward
	TriggerDraggedLink
)

func (t Trigger) String() string {
	switch t {
	case TriggerClickedLink:
		return "clicked_link"
	case TriggerTypedAddress:
		return "typed_address"
	case TriggerGraphOpen:
		return "graph_open"
	case TriggerHistoryBack:
		return "history_back"
	case TriggerHistoryForward:
		return "history_forward"
	case TriggerDraggedLink:
		return "dragged_link"
	default:
		return "unknown"
	}
}

// Point is a 2D coordinate in the canonical spatial layout.
type Point struct {
	X, Y float64
}

// Node is a persistent, addressable content container (spec.md §3.1).
type Node struct {
	ID             NodeID
	Address        string
	AddressKind    AddressKind
	MimeHint       string
	Title          string
	Position       Point
	Pinned         bool
	LifecycleState LifecycleState
	Tags           map[string]struct{}
	ViewerOverride string

	// LastActiveAt records the most recent transition into LifecycleActive;
	// the reconciler's LRU demotion policy reads it (SPEC_FULL.md §3.4).
	LastActiveAt time.Time

	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Clone returns a deep copy, used by the reducer when building undo
// snapshots and by temporal preview forking.
func (n *Node) Clone() *Node {
	cp := *n
	cp.Tags = make(map[string]struct{}, len(n.Tags))
	for t := range n.Tags {
		cp.Tags[t] = struct{}{}
	}
	return &cp
}

// HasTag reports whether n carries tag t.
func (n *Node) HasTag(tag string) bool {
	_, ok := n.Tags[tag]
	return ok
}

// Reserved system-managed tag prefixes (spec.md §3.1).
const (
	TagClip    = "#clip"
	TagPin     = "#pin"
	TagArchive = "#archive"
)

// IsReservedTag reports whether tag is system-managed (prefixed '#').
func IsReservedTag(tag string) bool {
	return len(tag) > 0 && tag[0] == '#'
}

// Traversal is one recorded navigation event between two nodes.
type Traversal struct {
	FromAddress string
	ToAddress   string
	Timestamp   int64 // monotonic wall time, milliseconds
	Trigger     Trigger
}

// EdgeKey identifies an edge's unordered storage slot; edges are stored
// directed but keyed by the unordered pair so both directions share one
// record (spec.md §3.1 Workspace.graph).
type EdgeKey struct {
	A, B NodeID
}

// edgeKey builds the canonical (sorted) key for a directed pair.
func edgeKey(from, to NodeID) EdgeKey {
	if lessNodeID(to, from) {
		return EdgeKey{A: to, B: from}
	}
	return EdgeKey{A: from, B: to}
}

func lessNodeID(a, b NodeID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Edge carries both assertion state and accumulated traversal history for
// one unordered pair of nodes, tracked separately per direction.
type Edge struct {
	A, B NodeID

	UserAsserted bool

	// TraversalsAB / TraversalsBA are the hot-tier traversal logs for each
	// direction (A->B and B->A respectively).
	TraversalsAB []Traversal
	TraversalsBA []Traversal

	ArchivedCountAB int64
	ArchivedCountBA int64
}

// Live reports whether e satisfies the liveness predicate (spec.md
// Invariant 9): user_asserted OR traversals != empty OR any archived count > 0.
func (e *Edge) Live() bool {
	return e.UserAsserted ||
		len(e.TraversalsAB) > 0 || len(e.TraversalsBA) > 0 ||
		e.ArchivedCountAB > 0 || e.ArchivedCountBA > 0
}

// TotalTraversalCount sums hot and cold traversal counts across both
// directions, used by the display layer for stroke width (spec.md §4.1).
func (e *Edge) TotalTraversalCount() int64 {
	return int64(len(e.TraversalsAB)) + int64(len(e.TraversalsBA)) + e.ArchivedCountAB + e.ArchivedCountBA
}

// DirectionCounts returns the total traversal count in each direction
// relative to (from, to); from/to need not match e.A/e.B ordering.
func (e *Edge) DirectionCounts(from, to NodeID) (forward, reverse int64) {
	if from == e.A && to == e.B {
		return int64(len(e.TraversalsAB)) + e.ArchivedCountAB, int64(len(e.TraversalsBA)) + e.ArchivedCountBA
	}
	return int64(len(e.TraversalsBA)) + e.ArchivedCountBA, int64(len(e.TraversalsAB)) + e.ArchivedCountAB
}
