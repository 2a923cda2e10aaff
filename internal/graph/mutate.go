// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "time"

// Mutation methods below are the graph's only write surface (spec.md §4.1
// "Mutation (visible only to the reducer crate boundary)"). Go has no
// crate-visibility equivalent, so the boundary is enforced by convention:
// only internal/reducer imports this file's methods from the frame loop's
// single apply step (Invariant 5, "single write path").

// AddNode inserts a node under id. If an existing node is already bound
// to addr, that node is returned instead (Invariant 3, "creating a node
// with a duplicate identity-keyed policy reuses the existing node") and
// created is false — id is then unused, since the caller (the reducer)
// must mint id before deciding whether this call will dedup; replay
// passes back the id recorded in the original journal entry so recovered
// state keeps stable identifiers (Invariant 1).
func (g *Graph) AddNode(id NodeID, addr string, kind AddressKind, mimeHint string, now time.Time) (*Node, bool, error) {
	addr = normalizeAddress(addr)
	if _, existing := g.GetNodeByAddress(addr); existing != nil {
		return existing, false, nil
	}
	n := &Node{
		ID:             id,
		Address:        addr,
		AddressKind:    kind,
		MimeHint:       mimeHint,
		LifecycleState: LifecycleCold,
		Tags:           make(map[string]struct{}),
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	if kind == AddressInternal {
		n.Pinned = true
	}
	g.nodes[n.ID] = n
	g.addressIndex[addr] = n.ID
	return n, true, nil
}

// RemoveNodeSoft tombstones a node: it keeps id and position but drops
// content fields, and its incident edges become ghosts (non-traversable,
// still structurally present) (spec.md §3.1 Tombstone, §4.6 scenario S4).
func (g *Graph) RemoveNodeSoft(id NodeID, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	if n.LifecycleState == LifecycleTombstone {
		return ErrAlreadyTombstone
	}
	delete(g.addressIndex, n.Address)
	n.Title = lastTitleOrEmpty(n)
	n.MimeHint = ""
	n.ViewerOverride = ""
	n.LifecycleState = LifecycleTombstone
	n.ModifiedAt = now
	return nil
}

// lastTitleOrEmpty keeps the last known title for ghost rendering
// (spec.md §3.1 Tombstone "optional last title").
func lastTitleOrEmpty(n *Node) string {
	return n.Title
}

// RestoreTombstone returns a tombstoned node to Cold with the same id and
// position; content fields (address, mime hint, viewer override) are not
// restored (spec.md §8.2 S4).
func (g *Graph) RestoreTombstone(id NodeID, addr string, kind AddressKind, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	if n.LifecycleState != LifecycleTombstone {
		return ErrNotTombstone
	}
	addr = normalizeAddress(addr)
	if existingID, existing := g.GetNodeByAddress(addr); existing != nil && existingID != id {
		return ErrDuplicateAddress
	}
	n.Address = addr
	n.AddressKind = kind
	n.LifecycleState = LifecycleCold
	n.ModifiedAt = now
	g.addressIndex[addr] = id
	return nil
}

// RemoveNodeHard permanently deletes a tombstoned node and its incident
// edges, releasing the id (spec.md Invariant 1, §8.2 S4
// PermanentDeleteTombstone).
func (g *Graph) RemoveNodeHard(id NodeID) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	if n.LifecycleState != LifecycleTombstone {
		return ErrNotTombstone
	}
	for key := range g.edges {
		if key.A == id || key.B == id {
			delete(g.edges, key)
		}
	}
	delete(g.nodes, id)
	delete(g.addressIndex, n.Address)
	return nil
}

// UpdateNodeAddress rebinds a node's address. Callers (the reducer) must
// capture the prior address *before* calling this, since traversal
// recording depends on the pre-update value (spec.md §4.1 "Critical
// ordering").
func (g *Graph) UpdateNodeAddress(id NodeID, addr string, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	addr = normalizeAddress(addr)
	delete(g.addressIndex, n.Address)
	n.Address = addr
	n.ModifiedAt = now
	g.addressIndex[addr] = id
	return nil
}

func (g *Graph) UpdateNodeTitle(id NodeID, title string, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	n.Title = title
	n.ModifiedAt = now
	return nil
}

func (g *Graph) UpdateNodeMimeHint(id NodeID, mimeHint string, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	n.MimeHint = mimeHint
	n.ModifiedAt = now
	return nil
}

func (g *Graph) Pin(id NodeID, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	n.Pinned = true
	n.ModifiedAt = now
	return nil
}

func (g *Graph) Unpin(id NodeID, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	n.Pinned = false
	n.ModifiedAt = now
	return nil
}

func (g *Graph) Tag(id NodeID, tag string, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	n.Tags[tag] = struct{}{}
	n.ModifiedAt = now
	return nil
}

func (g *Graph) Untag(id NodeID, tag string, now time.Time) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	delete(n.Tags, tag)
	n.ModifiedAt = now
	return nil
}

// SetPosition assigns the canonical position, used by external position
// sets and Divergent-layout commits (spec.md §3.3 GraphViewState).
func (g *Graph) SetPosition(id NodeID, p Point) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	n.Position = p
	return nil
}

// MarkActive stamps LastActiveAt, read by the reconciler's LRU demotion
// policy (SPEC_FULL.md §3.4).
func (g *Graph) MarkActive(id NodeID, now time.Time) {
	if n := g.nodes[id]; n != nil {
		n.LastActiveAt = now
		n.LifecycleState = LifecycleActive
	}
}

// SetLifecycleState sets a node's lifecycle state without journaling;
// automatic promotions/demotions are ephemeral (spec.md §4.5).
func (g *Graph) SetLifecycleState(id NodeID, state LifecycleState) error {
	n := g.nodes[id]
	if n == nil {
		return ErrUnknownNode
	}
	n.LifecycleState = state
	return nil
}

// --- Edge mutation ---------------------------------------------------------

// AssertEdge declares a user-asserted relation between a and b. Idempotent
// per Invariant 3: asserting an already-asserted edge is a no-op.
// Self-edges are forbidden for user-asserted edges (Invariant 2).
func (g *Graph) AssertEdge(a, b NodeID) (*Edge, error) {
	if a == b {
		return nil, ErrSelfEdge
	}
	if g.nodes[a] == nil || g.nodes[b] == nil {
		return nil, ErrUnknownNode
	}
	key := edgeKey(a, b)
	e := g.edges[key]
	if e == nil {
		e = &Edge{A: key.A, B: key.B}
		g.edges[key] = e
	}
	e.UserAsserted = true
	return e, nil
}

// RetractEdge clears the user-asserted flag. If the edge loses liveness
// as a result, it is removed in this same call (Invariant 9).
func (g *Graph) RetractEdge(a, b NodeID) error {
	key := edgeKey(a, b)
	e := g.edges[key]
	if e == nil {
		return nil
	}
	e.UserAsserted = false
	if !e.Live() {
		delete(g.edges, key)
	}
	return nil
}

// AppendTraversalOnEdge implements spec.md §4.1 "Key algorithm — traversal
// append". priorAddr/newAddr are resolved to node ids by the caller (the
// reducer, which must capture priorAddr before applying any address
// update — see UpdateNodeAddress doc comment).
func (g *Graph) AppendTraversalOnEdge(priorAddr, newAddr string, trigger Trigger, now int64) (*Edge, error) {
	priorID, priorNode := g.GetNodeByAddress(normalizeAddress(priorAddr))
	if priorNode == nil {
		return nil, ErrUnknownAddress
	}
	newID, newNode := g.GetNodeByAddress(normalizeAddress(newAddr))
	if newNode == nil {
		return nil, ErrUnknownAddress
	}
	if priorID == newID {
		return nil, ErrSelfLoop
	}
	if priorNode.AddressKind == AddressInternal || newNode.AddressKind == AddressInternal {
		return nil, ErrInternalAddress
	}

	key := edgeKey(priorID, newID)
	e := g.edges[key]
	if e == nil {
		e = &Edge{A: key.A, B: key.B}
		g.edges[key] = e
	}
	t := Traversal{FromAddress: priorAddr, ToAddress: newAddr, Timestamp: now, Trigger: trigger}
	if key.A == priorID {
		e.TraversalsAB = append(e.TraversalsAB, t)
	} else {
		e.TraversalsBA = append(e.TraversalsBA, t)
	}
	return e, nil
}

// ArchiveTraversal moves hot traversals older than horizon to the cold
// tier, bumping the archived counts. Callers are responsible for durably
// persisting the cold records before calling this (spec.md §4.1
// "Archiving": write cold entries -> durably commit -> only then remove
// hot entries). It returns the traversals that were archived so the
// caller can write them to the cold-tier keyspace.
func (g *Graph) ArchiveTraversal(a, b NodeID, horizon time.Duration, now time.Time) (archivedAB, archivedBA []Traversal) {
	e := g.edges[edgeKey(a, b)]
	if e == nil {
		return nil, nil
	}
	cutoff := now.Add(-horizon).UnixMilli()
	e.TraversalsAB, archivedAB = splitByAge(e.TraversalsAB, cutoff)
	e.TraversalsBA, archivedBA = splitByAge(e.TraversalsBA, cutoff)
	e.ArchivedCountAB += int64(len(archivedAB))
	e.ArchivedCountBA += int64(len(archivedBA))
	return archivedAB, archivedBA
}

func splitByAge(ts []Traversal, cutoffMillis int64) (kept, archived []Traversal) {
	kept = ts[:0:0]
	for _, t := range ts {
		if t.Timestamp < cutoffMillis {
			archived = append(archived, t)
		} else {
			kept = append(kept, t)
		}
	}
	return kept, archived
}

// PruneDeadEdges removes every edge that has lost liveness; called by the
// reducer after any mutation that could affect liveness (Invariant 9).
func (g *Graph) PruneDeadEdges() {
	for key, e := range g.edges {
		if !e.Live() {
			delete(g.edges, key)
		}
	}
}
