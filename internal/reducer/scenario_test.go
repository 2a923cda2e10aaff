// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reducer

import (
	"testing"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) (*Workspace, *Reducer) {
	t.Helper()
	return NewWorkspace(), New(nil)
}

func applyOne(r *Reducer, ws *Workspace, p Payload, now time.Time) []store.Mutation {
	return r.Apply(ws, []QueuedIntent{{Payload: p}}, now)
}

// S1 — Traversal accumulation and display dedup.
func TestScenarioS1TraversalAccumulation(t *testing.T) {
	ws, r := newTestWorkspace(t)
	now := time.Now()

	applyOne(r, ws, AddNodeIntent{Address: "https://a", Kind: graph.AddressWeb}, now)
	applyOne(r, ws, AddNodeIntent{Address: "https://b", Kind: graph.AddressWeb}, now)

	for i := 0; i < 7; i++ {
		applyOne(r, ws, AppendTraversalIntent{FromAddress: "https://a", ToAddress: "https://b", Trigger: graph.TriggerClickedLink}, now)
	}
	for i := 0; i < 3; i++ {
		applyOne(r, ws, AppendTraversalIntent{FromAddress: "https://b", ToAddress: "https://a", Trigger: graph.TriggerClickedLink}, now)
	}

	aID, _ := ws.Graph.GetNodeByAddress("https://a")
	bID, _ := ws.Graph.GetNodeByAddress("https://b")
	e := ws.Graph.GetEdge(aID, bID)
	require.NotNil(t, e)
	assert.EqualValues(t, 10, e.TotalTraversalCount())

	fwd, rev := e.DirectionCounts(aID, bID)
	assert.EqualValues(t, 7, fwd)
	assert.EqualValues(t, 3, rev)

	dir := graph.ResolveDisplayDirection(e, graph.DisplayBidirectional)
	assert.Contains(t, []graph.DisplayDirection{graph.DisplayForward, graph.DisplayReverse}, dir)
}

// S2 — Causality convergence across two peers: both apply both updates,
// sorted by Lamport stamp, so the higher stamp deterministically wins on
// both replicas.
func TestScenarioS2CausalityConvergence(t *testing.T) {
	now := time.Now()

	runReplica := func() string {
		ws, r := newTestWorkspace(t)
		applyOne(r, ws, AddNodeIntent{Address: "https://x", Kind: graph.AddressWeb}, now)
		xID, _ := ws.Graph.GetNodeByAddress("https://x")

		batch := []QueuedIntent{
			{Source: SourceLocalUI, Lamport: 42, Payload: UpdateNodeTitleIntent{ID: xID, Title: "left"}},
			{Source: SourcePeerSync, Lamport: 43, Payload: ApplyRemoteDeltaIntent{
				PeerID:   "peer-2",
				Mutation: store.UpdateNodeTitlePayload{ID: xID, Title: "right"},
			}},
		}
		r.Apply(ws, batch, now)
		return ws.Graph.GetNode(xID).Title
	}

	assert.Equal(t, "right", runReplica())
	assert.Equal(t, "right", runReplica())
}

// S4 — Tombstone lifecycle.
func TestScenarioS4TombstoneLifecycle(t *testing.T) {
	ws, r := newTestWorkspace(t)
	now := time.Now()

	applyOne(r, ws, AddNodeIntent{Address: "https://n", Kind: graph.AddressWeb}, now)
	applyOne(r, ws, AddNodeIntent{Address: "https://m", Kind: graph.AddressWeb}, now)
	nID, _ := ws.Graph.GetNodeByAddress("https://n")
	mID, _ := ws.Graph.GetNodeByAddress("https://m")
	applyOne(r, ws, AssertEdgeIntent{A: nID, B: mID}, now)

	applyOne(r, ws, RemoveNodeIntent{ID: nID}, now)
	assert.Equal(t, graph.LifecycleTombstone, ws.Graph.GetNode(nID).LifecycleState)
	assert.NotNil(t, ws.Graph.GetEdge(nID, mID), "ghost edge still structurally present")

	applyOne(r, ws, RestoreTombstoneIntent{ID: nID, Address: "https://n-restored", Kind: graph.AddressWeb}, now)
	assert.Equal(t, graph.LifecycleCold, ws.Graph.GetNode(nID).LifecycleState)

	applyOne(r, ws, RemoveNodeIntent{ID: nID}, now)
	applyOne(r, ws, PermanentDeleteTombstoneIntent{ID: nID}, now)
	assert.Nil(t, ws.Graph.GetNode(nID))
	assert.Nil(t, ws.Graph.GetEdge(nID, mID))
}

// S5 — Preview mode isolation: an AddNode intent inside preview mutates
// only the detached fork, produces no log entry, and leaves live state
// unchanged on exit.
func TestScenarioS5PreviewModeIsolation(t *testing.T) {
	ws, r := newTestWorkspace(t)
	now := time.Now()

	applyOne(r, ws, AddNodeIntent{Address: "https://before", Kind: graph.AddressWeb}, now)
	ws.EnterPreview(now)

	mutations := applyOne(r, ws, AddNodeIntent{Address: "https://preview-only", Kind: graph.AddressWeb}, now)
	assert.Empty(t, mutations, "preview-mode intents produce no log entries")

	_, previewNode := ws.activeGraph().GetNodeByAddress("https://preview-only")
	assert.NotNil(t, previewNode, "accepted on the detached fork")

	ws.ExitPreview()
	_, liveNode := ws.Graph.GetNodeByAddress("https://preview-only")
	assert.Nil(t, liveNode, "live graph never saw the preview-only node")
	_, stillThere := ws.Graph.GetNodeByAddress("https://before")
	assert.NotNil(t, stillThere)
}

// P4 — Idempotent assertion.
func TestP4IdempotentAssertion(t *testing.T) {
	ws, r := newTestWorkspace(t)
	now := time.Now()
	applyOne(r, ws, AddNodeIntent{Address: "https://a", Kind: graph.AddressWeb}, now)
	applyOne(r, ws, AddNodeIntent{Address: "https://b", Kind: graph.AddressWeb}, now)
	aID, _ := ws.Graph.GetNodeByAddress("https://a")
	bID, _ := ws.Graph.GetNodeByAddress("https://b")

	applyOne(r, ws, AssertEdgeIntent{A: aID, B: bID}, now)
	applyOne(r, ws, AssertEdgeIntent{A: aID, B: bID}, now)

	e := ws.Graph.GetEdge(aID, bID)
	require.NotNil(t, e)
	assert.True(t, e.UserAsserted)
}

// P5 — Self-loop exclusion.
func TestP5SelfLoopExclusion(t *testing.T) {
	ws, r := newTestWorkspace(t)
	now := time.Now()
	applyOne(r, ws, AddNodeIntent{Address: "https://a", Kind: graph.AddressWeb}, now)
	aID, _ := ws.Graph.GetNodeByAddress("https://a")

	mutations := applyOne(r, ws, AppendTraversalIntent{FromAddress: "https://a", ToAddress: "https://a", Trigger: graph.TriggerClickedLink}, now)
	assert.Empty(t, mutations)
	assert.Nil(t, ws.Graph.GetEdge(aID, aID))
}

// P6 — Prior-URL capture ordering: WebViewURLChanged must record the
// traversal with the prior address, not the new one, regardless of the
// node rebind that happens in the same handler.
func TestP6PriorURLCaptureOrdering(t *testing.T) {
	ws, r := newTestWorkspace(t)
	now := time.Now()

	applyOne(r, ws, WebViewCreatedIntent{WebviewKey: "wv1", Address: "https://start", Kind: graph.AddressWeb}, now)

	mutations := applyOne(r, ws, WebViewURLChangedIntent{
		WebviewKey:   "wv1",
		PriorAddress: "https://start",
		NewAddress:   "https://next",
		Kind:         graph.AddressWeb,
		Trigger:      graph.TriggerClickedLink,
	}, now)

	require.Len(t, mutations, 1)
	traversal, ok := mutations[0].(store.AppendTraversalPayload)
	require.True(t, ok)
	assert.Equal(t, "https://start", traversal.FromAddress)
	assert.Equal(t, "https://next", traversal.ToAddress)

	startID, _ := ws.Graph.GetNodeByAddress("https://start")
	nextID, _ := ws.Graph.GetNodeByAddress("https://next")
	e := ws.Graph.GetEdge(startID, nextID)
	require.NotNil(t, e)
	assert.EqualValues(t, 1, e.TotalTraversalCount())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	ws, r := newTestWorkspace(t)
	now := time.Now()

	r.Apply(ws, []QueuedIntent{{Payload: AddNodeIntent{Address: "https://a", Kind: graph.AddressWeb}, UndoGroup: "create-a"}}, now)
	aID, n := ws.Graph.GetNodeByAddress("https://a")
	require.NotNil(t, n)

	r.Apply(ws, []QueuedIntent{{Payload: UpdateNodeTitleIntent{ID: aID, Title: "Alpha"}, UndoGroup: "rename-a"}}, now)
	assert.Equal(t, "Alpha", ws.Graph.GetNode(aID).Title)

	_, err := r.Undo(ws, now)
	require.NoError(t, err)
	assert.Empty(t, ws.Graph.GetNode(aID).Title, "title undo restores the prior (empty) title")

	_, err = r.Redo(ws, now)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", ws.Graph.GetNode(aID).Title)
}

func TestUndoEmptyStackReturnsError(t *testing.T) {
	ws, r := newTestWorkspace(t)
	_, err := r.Undo(ws, time.Now())
	assert.ErrorIs(t, err, ErrNothingToUndo)
}
