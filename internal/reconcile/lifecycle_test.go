// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reconcile

import (
	"testing"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstance struct{ closed bool }

func (f *fakeInstance) Close() error { f.closed = true; return nil }

type fakeViewer struct {
	name    string
	fails   bool
	openedN int
}

func (v *fakeViewer) Name() string                             { return v.name }
func (v *fakeViewer) Priority() int                             { return 0 }
func (v *fakeViewer) CanRender(string, graph.AddressKind) bool { return true }
func (v *fakeViewer) Open(n *graph.Node) (Instance, error) {
	v.openedN++
	if v.fails {
		return nil, assert.AnError
	}
	return &fakeInstance{}, nil
}

func newTestReconciler(cap, warmCap int) *Reconciler {
	web := &fakeViewer{name: "web"}
	plain := &fakeViewer{name: "plaintext"}
	reg := NewViewerRegistry(web, plain)
	policy := DefaultPolicy()
	policy.ActiveCap = cap
	policy.WarmCap = warmCap
	return New(reg, policy, nil)
}

// Workspace is an alias so this file doesn't need to import reducer under
// two names; kept local to the test package.
type Workspace = reducer.Workspace

func addNode(t *testing.T, ws *Workspace, r *reducer.Reducer, addr string, now time.Time) graph.NodeID {
	t.Helper()
	muts := r.Apply(ws, []reducer.QueuedIntent{{Payload: reducer.AddNodeIntent{Address: addr, Kind: graph.AddressFile}}}, now)
	require.Len(t, muts, 1)
	id, n := ws.Graph.GetNodeByAddress(addr)
	require.NotNil(t, n)
	return id
}

// S6 — lifecycle reconciliation under pressure.
func TestScenarioS6ActiveCapEviction(t *testing.T) {
	ws := reducer.NewWorkspace()
	r := reducer.New(nil)
	now := time.Now()

	var ids []graph.NodeID
	for i := 0; i < 5; i++ {
		id := addNode(t, ws, r, "file:///"+string(rune('a'+i)), now)
		ids = append(ids, id)
		now = now.Add(time.Second)
	}

	rc := newTestReconciler(3, 24)

	// Open all 5 nodes in sequence: each becomes a candidate for Active,
	// most-recently-opened wins under the cap.
	var pending []reducer.QueuedIntent
	for _, id := range ids {
		pending = rc.Reconcile(ws, []graph.NodeID{id}, now)
		r.Apply(ws, pending, now)
		now = now.Add(time.Second)
	}

	activeCount, warmCount, coldCount := 0, 0, 0
	ws.Graph.AllNodes(func(n *graph.Node) {
		switch n.LifecycleState {
		case graph.LifecycleActive:
			activeCount++
		case graph.LifecycleWarm:
			warmCount++
		case graph.LifecycleCold:
			coldCount++
		}
	})
	assert.Equal(t, 3, activeCount)
	assert.Equal(t, 1, warmCount)
	assert.Equal(t, 1, coldCount)
}

func TestScenarioS6PinnedExemptFromDemotion(t *testing.T) {
	ws := reducer.NewWorkspace()
	r := reducer.New(nil)
	now := time.Now()

	a := addNode(t, ws, r, "file:///a", now)
	b := addNode(t, ws, r, "file:///b", now)
	c := addNode(t, ws, r, "file:///c", now)
	r.Apply(ws, []reducer.QueuedIntent{{Payload: reducer.PinNodeIntent{ID: a}}}, now)

	rc := newTestReconciler(1, 24)

	for _, id := range []graph.NodeID{a, b, c} {
		pending := rc.Reconcile(ws, []graph.NodeID{id}, now)
		r.Apply(ws, pending, now)
		now = now.Add(time.Second)
	}

	node := ws.Graph.GetNode(a)
	require.NotNil(t, node)
	assert.Equal(t, graph.LifecycleActive, node.LifecycleState, "pinned node must never be demoted")
}

// P9 — single-write-path: Reconcile itself never mutates ws.Graph; it
// only returns intents for the reducer to apply.
func TestP9ReconcilerNeverMutatesDirectly(t *testing.T) {
	ws := reducer.NewWorkspace()
	r := reducer.New(nil)
	now := time.Now()
	id := addNode(t, ws, r, "file:///a", now)

	rc := newTestReconciler(3, 24)
	before := ws.Graph.GetNode(id).LifecycleState
	_ = rc.Reconcile(ws, []graph.NodeID{id}, now)
	after := ws.Graph.GetNode(id).LifecycleState
	assert.Equal(t, before, after, "Reconcile must not mutate graph state before its intents are applied")
}

// P10 — tombstone inertness: a tombstoned node is never selected as a
// promotion candidate even if requested as wantActive.
func TestP10TombstoneExcludedFromPromotion(t *testing.T) {
	ws := reducer.NewWorkspace()
	r := reducer.New(nil)
	now := time.Now()
	id := addNode(t, ws, r, "file:///a", now)
	r.Apply(ws, []reducer.QueuedIntent{{Payload: reducer.RemoveNodeIntent{ID: id}}}, now)

	rc := newTestReconciler(3, 24)
	pending := rc.Reconcile(ws, []graph.NodeID{id}, now)
	assert.Empty(t, pending, "a tombstoned node must never be promoted to Active")
}

// P11 — liveness is a graph-package invariant exercised end to end here:
// reconciling lifecycle state never creates or touches edges.
func TestP11ReconcileDoesNotTouchEdges(t *testing.T) {
	ws := reducer.NewWorkspace()
	r := reducer.New(nil)
	now := time.Now()
	a := addNode(t, ws, r, "file:///a", now)
	b := addNode(t, ws, r, "file:///b", now)

	rc := newTestReconciler(3, 24)
	rc.Reconcile(ws, []graph.NodeID{a, b}, now)

	assert.Nil(t, ws.Graph.GetEdge(a, b))
}

func TestViewerFailureDowngradesToWarm(t *testing.T) {
	ws := reducer.NewWorkspace()
	r := reducer.New(nil)
	now := time.Now()
	id := addNode(t, ws, r, "file:///a", now)

	failing := &fakeViewer{name: "failing", fails: true}
	reg := NewViewerRegistry(failing, failing)
	policy := DefaultPolicy()
	rc := New(reg, policy, nil)

	pending := rc.Reconcile(ws, []graph.NodeID{id}, now)
	r.Apply(ws, pending, now)

	node := ws.Graph.GetNode(id)
	require.NotNil(t, node)
	assert.Equal(t, graph.LifecycleWarm, node.LifecycleState)
}

func TestLeastRecentlyActiveNode(t *testing.T) {
	ws := reducer.NewWorkspace()
	r := reducer.New(nil)
	now := time.Now()
	a := addNode(t, ws, r, "file:///a", now)
	now = now.Add(time.Second)
	b := addNode(t, ws, r, "file:///b", now)

	// Promote a, then b, one second apart, applying each promotion so the
	// nodes carry distinct LastActiveAt; a final Reconcile refreshes the
	// LRU snapshot from the applied state.
	rc := newTestReconciler(3, 24)
	r.Apply(ws, rc.Reconcile(ws, []graph.NodeID{a}, now), now)
	now = now.Add(time.Second)
	r.Apply(ws, rc.Reconcile(ws, []graph.NodeID{b}, now), now)
	rc.Reconcile(ws, nil, now)

	lru, ok := rc.LeastRecentlyActiveNode()
	require.True(t, ok)
	assert.Equal(t, a, lru)
}
