// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"encoding/gob"
	"sync"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

// MutationType enumerates the LogEntry variants of spec.md §3.1.
type MutationType int

const (
	MutationAddNode MutationType = iota
	MutationRemoveNode
	MutationUpdateNodeAddress
	MutationUpdateNodeTitle
	MutationUpdateNodeMimeHint
	MutationPinNode
	MutationUnpinNode
	MutationAppendTraversal
	MutationAssertEdge
	MutationRetractEdge
	MutationTagNode
	MutationUntagNode
	MutationClearGraph
	MutationMoveTombstone
	MutationPermanentDelete
	MutationSetPosition
)

func (m MutationType) String() string {
	names := [...]string{
		"AddNode", "RemoveNode", "UpdateNodeAddress", "UpdateNodeTitle",
		"UpdateNodeMimeHint", "PinNode", "UnpinNode", "AppendTraversal",
		"AssertEdge", "RetractEdge", "TagNode", "UntagNode", "ClearGraph",
		"MoveTombstone", "PermanentDelete", "SetPosition",
	}
	if int(m) < len(names) {
		return names[m]
	}
	return "Unknown"
}

// Mutation is the payload carried by a LogEntry. It is a tagged union
// over the variants in spec.md §3.1; gob.Register makes every concrete
// type decodable from the interface field (grounded on
// services/trace/agent/mcts/crs's Delta registration pattern).
type Mutation interface {
	Type() MutationType
}

type AddNodePayload struct {
	ID          graph.NodeID
	Address     string
	AddressKind graph.AddressKind
	MimeHint    string
}

func (AddNodePayload) Type() MutationType { return MutationAddNode }

type RemoveNodePayload struct {
	ID graph.NodeID
}

func (RemoveNodePayload) Type() MutationType { return MutationRemoveNode }

type UpdateNodeAddressPayload struct {
	ID      graph.NodeID
	Address string
}

func (UpdateNodeAddressPayload) Type() MutationType { return MutationUpdateNodeAddress }

type UpdateNodeTitlePayload struct {
	ID    graph.NodeID
	Title string
}

func (UpdateNodeTitlePayload) Type() MutationType { return MutationUpdateNodeTitle }

type UpdateNodeMimeHintPayload struct {
	ID       graph.NodeID
	MimeHint string
}

func (UpdateNodeMimeHintPayload) Type() MutationType { return MutationUpdateNodeMimeHint }

type PinNodePayload struct{ ID graph.NodeID }

func (PinNodePayload) Type() MutationType { return MutationPinNode }

type UnpinNodePayload struct{ ID graph.NodeID }

func (UnpinNodePayload) Type() MutationType { return MutationUnpinNode }

type AppendTraversalPayload struct {
	FromAddress string
	ToAddress   string
	Trigger     graph.Trigger
	Timestamp   int64
}

func (AppendTraversalPayload) Type() MutationType { return MutationAppendTraversal }

type AssertEdgePayload struct{ A, B graph.NodeID }

func (AssertEdgePayload) Type() MutationType { return MutationAssertEdge }

type RetractEdgePayload struct{ A, B graph.NodeID }

func (RetractEdgePayload) Type() MutationType { return MutationRetractEdge }

type TagNodePayload struct {
	ID  graph.NodeID
	Tag string
}

func (TagNodePayload) Type() MutationType { return MutationTagNode }

type UntagNodePayload struct {
	ID  graph.NodeID
	Tag string
}

func (UntagNodePayload) Type() MutationType { return MutationUntagNode }

type ClearGraphPayload struct{}

func (ClearGraphPayload) Type() MutationType { return MutationClearGraph }

type MoveTombstonePayload struct {
	ID          graph.NodeID
	Address     string
	AddressKind graph.AddressKind
}

func (MoveTombstonePayload) Type() MutationType { return MutationMoveTombstone }

type PermanentDeletePayload struct{ ID graph.NodeID }

func (PermanentDeletePayload) Type() MutationType { return MutationPermanentDelete }

// SetPositionPayload journals an external position set, including a
// Divergent-layout Commit writing shadow positions back to the shared
// graph (spec.md §3.3 "on explicit Commit, writes them back through the
// reducer").
type SetPositionPayload struct {
	ID       graph.NodeID
	Position graph.Point
}

func (SetPositionPayload) Type() MutationType { return MutationSetPosition }

// LogEntry is a journaled mutation (spec.md §3.1, §6.6): sequence,
// timestamp, variant, payload. Sequence is dense monotonic starting at 1.
type LogEntry struct {
	Sequence  uint64
	Timestamp int64 // milliseconds since a fixed epoch
	Payload   Mutation
}

var registerMutationsOnce sync.Once

// registerMutationTypes makes every concrete Mutation type decodable from
// the Mutation interface field via gob.
func registerMutationTypes() {
	registerMutationsOnce.Do(func() {
		gob.Register(AddNodePayload{})
		gob.Register(RemoveNodePayload{})
		gob.Register(UpdateNodeAddressPayload{})
		gob.Register(UpdateNodeTitlePayload{})
		gob.Register(UpdateNodeMimeHintPayload{})
		gob.Register(PinNodePayload{})
		gob.Register(UnpinNodePayload{})
		gob.Register(AppendTraversalPayload{})
		gob.Register(AssertEdgePayload{})
		gob.Register(RetractEdgePayload{})
		gob.Register(TagNodePayload{})
		gob.Register(UntagNodePayload{})
		gob.Register(ClearGraphPayload{})
		gob.Register(MoveTombstonePayload{})
		gob.Register(PermanentDeletePayload{})
		gob.Register(SetPositionPayload{})
	})
}
