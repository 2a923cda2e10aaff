// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reconcile maps abstract node lifecycle states to the runtime's
// scarce resources (spec.md §4.5): viewer instances, webview mappings,
// and physics scheduling. It runs once per frame, after apply_intents and
// before render, and is the only component that creates or destroys
// viewer/webview resources. Grounded on
// services/trace/cache/graph_cache.go and staleness.go's promotion/
// demotion bookkeeping, adapted from "cache entry" to "node lifecycle
// state".
package reconcile

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
)

// Reconciler is Lifecycle Reconciler (component E). It holds no graph
// state of its own beyond a best-effort LRU snapshot (spec.md §5: "a
// single-writer/many-readers primitive with the reader borrowing a
// snapshot per read") and the live viewer Instance handles it opened.
type Reconciler struct {
	Viewers *ViewerRegistry
	Policy  Policy
	diag    Diag

	mu        sync.Mutex
	instances map[graph.NodeID]Instance
	webviewSeq uint64

	snapMu   sync.RWMutex
	snapshot map[graph.NodeID]time.Time // Active nodes -> LastActiveAt, refreshed each Reconcile
}

// New returns a Reconciler. diag may be nil.
func New(viewers *ViewerRegistry, policy Policy, diag Diag) *Reconciler {
	if diag == nil {
		diag = noopDiag{}
	}
	return &Reconciler{
		Viewers:   viewers,
		Policy:    policy,
		diag:      diag,
		instances: make(map[graph.NodeID]Instance),
		snapshot:  make(map[graph.NodeID]time.Time),
	}
}

// LeastRecentlyActiveNode implements internal/control's ActiveNodeLRU,
// satisfied structurally without either package importing the other.
// Reads the snapshot taken by the most recent Reconcile call, since the
// memory monitor calls this from its own goroutine concurrently with the
// frame loop (spec.md §4.4 "Workers run on a multi-worker task pool").
func (rc *Reconciler) LeastRecentlyActiveNode() (graph.NodeID, bool) {
	rc.snapMu.RLock()
	defer rc.snapMu.RUnlock()
	var best graph.NodeID
	var bestAt time.Time
	found := false
	for id, at := range rc.snapshot {
		if !found || at.Before(bestAt) {
			best, bestAt, found = id, at, true
		}
	}
	return best, found
}

// Reconcile aligns runtime resources with ws's post-apply_intents state
// (spec.md §4.5 "reconcile_resources"). wantActive names nodes the
// frame's panes currently want Active — focused/visible pane targets,
// the strongest "wants to be Active" signal (spec.md §4.5 "Policy
// inputs"); everything else decays by last-use. Returned intents are
// reconciler-originated Map/Unmap/Promote/Demote requests for the next
// frame's batch (spec.md §4.5 "Webview<->node mapping": "appear in the
// next frame's batch").
func (rc *Reconciler) Reconcile(ws *reducer.Workspace, wantActive []graph.NodeID, now time.Time) []reducer.QueuedIntent {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	type cand struct {
		id graph.NodeID
		n  *graph.Node
	}
	var actives []cand
	ws.Graph.AllNodes(func(n *graph.Node) {
		if n.LifecycleState == graph.LifecycleActive {
			actives = append(actives, cand{n.ID, n})
		}
	})

	seenWant := make(map[graph.NodeID]bool, len(wantActive))
	var orderedWant []graph.NodeID
	for _, id := range wantActive {
		n := ws.Graph.GetNode(id)
		if n == nil || n.LifecycleState == graph.LifecycleTombstone || seenWant[id] {
			continue
		}
		seenWant[id] = true
		orderedWant = append(orderedWant, id)
	}

	// Desired-active order: wantActive nodes first (strongest signal),
	// then existing Active nodes by recency, most-recent first.
	keepSeen := make(map[graph.NodeID]bool)
	var keepOrder []graph.NodeID
	addKeep := func(id graph.NodeID) {
		if keepSeen[id] {
			return
		}
		keepSeen[id] = true
		keepOrder = append(keepOrder, id)
	}
	for _, id := range orderedWant {
		addKeep(id)
	}
	sort.SliceStable(actives, func(i, j int) bool { return actives[i].n.LastActiveAt.After(actives[j].n.LastActiveAt) })
	for _, c := range actives {
		addKeep(c.id)
	}

	// Pinned already-Active nodes are exempt from demotion (spec.md §4.5
	// "Pinned nodes are exempt from automatic demotion") and are kept
	// outside the cap.
	pinnedActive := make(map[graph.NodeID]bool)
	for _, c := range actives {
		if c.n.Pinned {
			pinnedActive[c.id] = true
		}
	}

	activeCap := rc.Policy.ActiveCap
	if activeCap <= 0 {
		activeCap = len(keepOrder)
	}
	finalActive := make(map[graph.NodeID]bool, len(keepOrder))
	for id := range pinnedActive {
		finalActive[id] = true
	}
	budget := activeCap - len(pinnedActive)
	for _, id := range keepOrder {
		if finalActive[id] {
			continue
		}
		if budget <= 0 {
			break
		}
		finalActive[id] = true
		budget--
	}

	currentActive := make(map[graph.NodeID]bool, len(actives))
	for _, c := range actives {
		currentActive[c.id] = true
	}

	var evicted []cand
	for _, c := range actives {
		if !finalActive[c.id] {
			evicted = append(evicted, c)
		}
	}
	var promoted []graph.NodeID
	for id := range finalActive {
		if !currentActive[id] {
			promoted = append(promoted, id)
		}
	}
	promoted = orderByKeepOrder(keepOrder, promoted)

	var out []reducer.QueuedIntent

	// Evicted nodes: the most-recently-active one becomes Warm first
	// (spec.md §8.2 S6: "most-recent demotion candidate becomes Warm
	// first"); the rest go straight to Cold, bounded by the Warm budget.
	sort.SliceStable(evicted, func(i, j int) bool { return evicted[i].n.LastActiveAt.After(evicted[j].n.LastActiveAt) })
	warmUsed := rc.countWarm(ws)
	warmCap := rc.Policy.WarmCap
	for i, c := range evicted {
		rc.closeInstance(c.id)
		if key, ok := ws.WebviewForNode(c.id); ok {
			out = append(out, reducer.QueuedIntent{Source: reducer.SourceReconciler, Payload: reducer.UnmapWebviewIntent{WebviewKey: key}})
		}
		if i == 0 && (warmCap <= 0 || warmUsed < warmCap) {
			warmUsed++
			out = append(out, reducer.QueuedIntent{Source: reducer.SourceReconciler, Payload: reducer.PromoteNodeToWarmIntent{ID: c.id}})
		} else {
			out = append(out, reducer.QueuedIntent{Source: reducer.SourceReconciler, Payload: reducer.DemoteNodeToColdIntent{ID: c.id}})
		}
	}

	// Promoted nodes: open a viewer instance; downgrade on failure
	// instead of leaving the node Active with nothing to show it (spec.md
	// §4.5 "Failure semantics").
	for _, id := range promoted {
		n := ws.Graph.GetNode(id)
		if n == nil {
			continue
		}
		v := rc.Viewers.SelectFor(n, "")
		inst, err := v.Open(n)
		if err != nil {
			rc.diag.Emit("reconcile.viewer", Warn, "viewer creation failed; node downgraded to warm", map[string]any{
				"node": n.ID.String(), "viewer": v.Name(), "error": err.Error(),
			})
			out = append(out, reducer.QueuedIntent{Source: reducer.SourceReconciler, Payload: reducer.PromoteNodeToWarmIntent{ID: id}})
			continue
		}
		rc.instances[id] = inst
		if n.AddressKind == graph.AddressWeb || n.AddressKind == graph.AddressInternal {
			rc.webviewSeq++
			key := fmt.Sprintf("wv-%d", rc.webviewSeq)
			out = append(out, reducer.QueuedIntent{Source: reducer.SourceReconciler, Payload: reducer.MapWebviewToNodeIntent{WebviewKey: key, NodeID: id}})
		} else {
			out = append(out, reducer.QueuedIntent{Source: reducer.SourceReconciler, Payload: reducer.PromoteNodeToActiveIntent{ID: id}})
		}
	}

	rc.refreshSnapshot(ws, finalActive)
	return out
}

func (rc *Reconciler) countWarm(ws *reducer.Workspace) int {
	n := 0
	ws.Graph.AllNodes(func(node *graph.Node) {
		if node.LifecycleState == graph.LifecycleWarm {
			n++
		}
	})
	return n
}

func (rc *Reconciler) closeInstance(id graph.NodeID) {
	if inst, ok := rc.instances[id]; ok {
		_ = inst.Close()
		delete(rc.instances, id)
	}
}

func (rc *Reconciler) refreshSnapshot(ws *reducer.Workspace, finalActive map[graph.NodeID]bool) {
	snap := make(map[graph.NodeID]time.Time, len(finalActive))
	for id := range finalActive {
		if n := ws.Graph.GetNode(id); n != nil {
			snap[id] = n.LastActiveAt
		}
	}
	rc.snapMu.Lock()
	rc.snapshot = snap
	rc.snapMu.Unlock()
}

func orderByKeepOrder(keepOrder []graph.NodeID, ids []graph.NodeID) []graph.NodeID {
	rank := make(map[graph.NodeID]int, len(keepOrder))
	for i, id := range keepOrder {
		rank[id] = i
	}
	out := append([]graph.NodeID(nil), ids...)
	sort.SliceStable(out, func(i, j int) bool { return rank[out[i]] < rank[out[j]] })
	return out
}
