// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reducer

import (
	"math"
	"sort"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/store"
)

// Reducer owns the diagnostic sink used for invariant-violation skip
// events (spec.md §4.3 "Failure semantics"). It holds no workspace state
// itself — Workspace is passed to Apply by the caller's single frame
// loop, keeping Reducer safe to share across frames.
type Reducer struct {
	diag Diag
}

// New returns a Reducer emitting to diag (nil is valid: events are
// dropped).
func New(diag Diag) *Reducer {
	if diag == nil {
		diag = noopDiag{}
	}
	return &Reducer{diag: diag}
}

// SortIntents stable-sorts a batch by (lamport, source_tag) (spec.md §4.3
// step 2 "Causality sort"). Exported so internal/workbench's own
// tile-tree/pane dispatch can share one ordering with Apply rather than
// each re-deriving it.
func SortIntents(batch []QueuedIntent) {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].Lamport != batch[j].Lamport {
			return batch[i].Lamport < batch[j].Lamport
		}
		return batch[i].Source < batch[j].Source
	})
}

// Apply implements spec.md §4.3's apply_intents: sorts batch by causality,
// dispatches each intent to its handler, and returns the journal-ready
// mutations produced by accepted intents, in application order. It
// performs no I/O and returns no error — per-intent failures are
// diagnosed and skipped (spec.md "Failure semantics"), never aborting the
// rest of the batch.
//
// While ws.InPreview() is true, intents still mutate the detached fork
// graph but never appear in the returned slice (spec.md §8.2 S5).
func (r *Reducer) Apply(ws *Workspace, batch []QueuedIntent, now time.Time) []store.Mutation {
	SortIntents(batch)

	var emitted []store.Mutation
	var groups map[string]*UndoGroup

	for _, qi := range batch {
		m, inverse, err := r.dispatch(ws, qi, now)
		if err != nil {
			r.diag.Emit("reducer.invariant", Warn, "intent skipped: invariant violation", map[string]any{
				"intent_type": qi.Payload.IntentType(),
				"source":      qi.Source.String(),
				"error":       err.Error(),
			})
			continue
		}
		if m == nil {
			continue // accepted no-op (e.g. idempotent dedup) or non-journaled state change
		}

		if ws.InPreview() {
			continue // S5: accepted on the fork, but produces no log entry
		}

		emitted = append(emitted, m)

		if qi.UndoGroup != "" {
			if groups == nil {
				groups = make(map[string]*UndoGroup)
			}
			g, ok := groups[qi.UndoGroup]
			if !ok {
				g = &UndoGroup{Label: qi.UndoGroup}
				groups[qi.UndoGroup] = g
				ws.UndoStack = append(ws.UndoStack, UndoGroup{}) // reserved slot, filled below
			}
			g.Entries = append(g.Entries, UndoEntry{Forward: qi.Payload, Inverse: inverse})
		}
	}

	// Fold accumulated groups into ws.UndoStack in first-seen order,
	// replacing the reserved slots appended above, and clear redo: a new
	// user command invalidates the redo history (standard undo-stack
	// semantics, mirrored from the teacher's bounded-history conventions
	// in services/trace/cache/staleness.go).
	if len(groups) > 0 {
		idx := len(ws.UndoStack) - len(groups)
		for _, qi := range batch {
			if qi.UndoGroup == "" {
				continue
			}
			if g, ok := groups[qi.UndoGroup]; ok {
				ws.UndoStack[idx] = *g
				idx++
				delete(groups, qi.UndoGroup)
			}
		}
		ws.RedoStack = nil
		const maxUndoDepth = 200
		if len(ws.UndoStack) > maxUndoDepth {
			ws.UndoStack = ws.UndoStack[len(ws.UndoStack)-maxUndoDepth:]
		}
	}

	return emitted
}

// dispatch applies one intent's payload to ws.activeGraph() (or to
// workspace-only ephemeral state), returning the journal mutation to
// emit (nil if the intent is ephemeral / a no-op / pane-tree scoped) and,
// for undo-eligible intents, its inverse payload.
func (r *Reducer) dispatch(ws *Workspace, qi QueuedIntent, now time.Time) (store.Mutation, Payload, error) {
	g := ws.activeGraph()

	switch p := qi.Payload.(type) {

	// --- Graph topology ----------------------------------------------------
	case AddNodeIntent:
		id := graph.NewNodeID()
		n, created, err := g.AddNode(id, p.Address, p.Kind, p.MimeHint, now)
		if err != nil {
			return nil, nil, err
		}
		if !created {
			return nil, nil, nil // Invariant 3: dedup reuse, not an error
		}
		ws.PhysicsWake = true
		return store.AddNodePayload{ID: n.ID, Address: n.Address, AddressKind: n.AddressKind, MimeHint: n.MimeHint},
			RemoveNodeIntent{ID: n.ID}, nil

	case RemoveNodeIntent:
		if err := g.RemoveNodeSoft(p.ID, now); err != nil {
			return nil, nil, err
		}
		ws.PhysicsWake = true
		return store.RemoveNodePayload{ID: p.ID}, nil, nil

	case PermanentDeleteTombstoneIntent:
		if err := g.RemoveNodeHard(p.ID); err != nil {
			return nil, nil, err
		}
		return store.PermanentDeletePayload{ID: p.ID}, nil, nil

	case RestoreTombstoneIntent:
		if err := g.RestoreTombstone(p.ID, p.Address, p.Kind, now); err != nil {
			return nil, nil, err
		}
		return store.MoveTombstonePayload{ID: p.ID, Address: p.Address, AddressKind: p.Kind}, nil, nil

	case UpdateNodeAddressIntent:
		prior := ""
		if n := g.GetNode(p.ID); n != nil {
			prior = n.Address
		}
		if err := g.UpdateNodeAddress(p.ID, p.Address, now); err != nil {
			return nil, nil, err
		}
		return store.UpdateNodeAddressPayload{ID: p.ID, Address: p.Address},
			UpdateNodeAddressIntent{ID: p.ID, Address: prior}, nil

	case UpdateNodeTitleIntent:
		prior := ""
		if n := g.GetNode(p.ID); n != nil {
			prior = n.Title
		}
		if err := g.UpdateNodeTitle(p.ID, p.Title, now); err != nil {
			return nil, nil, err
		}
		return store.UpdateNodeTitlePayload{ID: p.ID, Title: p.Title},
			UpdateNodeTitleIntent{ID: p.ID, Title: prior}, nil

	case UpdateNodeMimeHintIntent:
		if err := g.UpdateNodeMimeHint(p.ID, p.MimeHint, now); err != nil {
			return nil, nil, err
		}
		return store.UpdateNodeMimeHintPayload{ID: p.ID, MimeHint: p.MimeHint}, nil, nil

	case PinNodeIntent:
		if err := g.Pin(p.ID, now); err != nil {
			return nil, nil, err
		}
		return store.PinNodePayload{ID: p.ID}, UnpinNodeIntent{ID: p.ID}, nil

	case UnpinNodeIntent:
		if err := g.Unpin(p.ID, now); err != nil {
			return nil, nil, err
		}
		return store.UnpinNodePayload{ID: p.ID}, PinNodeIntent{ID: p.ID}, nil

	case TagNodeIntent:
		if err := g.Tag(p.ID, p.Tag, now); err != nil {
			return nil, nil, err
		}
		return store.TagNodePayload{ID: p.ID, Tag: p.Tag}, UntagNodeIntent{ID: p.ID, Tag: p.Tag}, nil

	case UntagNodeIntent:
		if err := g.Untag(p.ID, p.Tag, now); err != nil {
			return nil, nil, err
		}
		return store.UntagNodePayload{ID: p.ID, Tag: p.Tag}, TagNodeIntent{ID: p.ID, Tag: p.Tag}, nil

	case AssertEdgeIntent:
		if _, err := g.AssertEdge(p.A, p.B); err != nil {
			return nil, nil, err
		}
		ws.PhysicsWake = true
		return store.AssertEdgePayload{A: p.A, B: p.B}, RetractEdgeIntent{A: p.A, B: p.B}, nil

	case RetractEdgeIntent:
		if err := g.RetractEdge(p.A, p.B); err != nil {
			return nil, nil, err
		}
		ws.PhysicsWake = true
		return store.RetractEdgePayload{A: p.A, B: p.B}, AssertEdgeIntent{A: p.A, B: p.B}, nil

	case AppendTraversalIntent:
		if _, err := g.AppendTraversalOnEdge(p.FromAddress, p.ToAddress, p.Trigger, now.UnixMilli()); err != nil {
			return nil, nil, err
		}
		ws.PhysicsWake = true // a new edge may appear; see DESIGN.md
		return store.AppendTraversalPayload{
			FromAddress: p.FromAddress, ToAddress: p.ToAddress, Trigger: p.Trigger, Timestamp: now.UnixMilli(),
		}, nil, nil

	case ClearGraphIntent:
		*g = *graph.New()
		ws.PhysicsWake = true
		return store.ClearGraphPayload{}, nil, nil

	// --- Webview lifecycle ---------------------------------------------------
	case WebViewCreatedIntent:
		id := graph.NewNodeID()
		n, created, err := g.AddNode(id, p.Address, p.Kind, p.MimeHint, now)
		if err != nil {
			return nil, nil, err
		}
		ws.webviewNodes[p.WebviewKey] = n.ID
		g.MarkActive(n.ID, now)
		if !created {
			return nil, nil, nil
		}
		ws.PhysicsWake = true
		return store.AddNodePayload{ID: n.ID, Address: n.Address, AddressKind: n.AddressKind, MimeHint: n.MimeHint}, nil, nil

	case WebViewURLChangedIntent:
		// P6: the traversal must carry PriorAddress, captured by the
		// caller before this intent was queued, never re-derived here.
		targetID, targetNode := g.GetNodeByAddress(p.NewAddress)
		if targetNode == nil {
			id := graph.NewNodeID()
			n, _, err := g.AddNode(id, p.NewAddress, p.Kind, p.MimeHint, now)
			if err != nil {
				return nil, nil, err
			}
			targetID, targetNode = n.ID, n
		}
		_, err := g.AppendTraversalOnEdge(p.PriorAddress, p.NewAddress, p.Trigger, now.UnixMilli())
		ws.webviewNodes[p.WebviewKey] = targetID
		g.MarkActive(targetID, now)
		switch err {
		case nil:
			ws.PhysicsWake = true
			return store.AppendTraversalPayload{
				FromAddress: p.PriorAddress, ToAddress: p.NewAddress, Trigger: p.Trigger, Timestamp: now.UnixMilli(),
			}, nil, nil
		case graph.ErrUnknownAddress, graph.ErrSelfLoop, graph.ErrInternalAddress:
			// The webview's first navigation (no prior node yet), a
			// same-address reload, or a navigation touching an internal
			// address all still rebind the webview mapping above; none of
			// them produce a traversal record.
			return nil, nil, nil
		default:
			return nil, nil, err
		}

	case WebViewTitleChangedIntent:
		id, ok := ws.webviewNodes[p.WebviewKey]
		if !ok {
			return nil, nil, graph.ErrUnknownNode
		}
		if err := g.UpdateNodeTitle(id, p.Title, now); err != nil {
			return nil, nil, err
		}
		return store.UpdateNodeTitlePayload{ID: id, Title: p.Title}, nil, nil

	case WebViewHistoryIndexChangedIntent:
		return nil, nil, nil // ephemeral per-pane UI state; see intent.go doc

	case WebViewCrashedIntent:
		if id, ok := ws.webviewNodes[p.WebviewKey]; ok {
			_ = g.SetLifecycleState(id, graph.LifecycleCold)
			delete(ws.webviewNodes, p.WebviewKey)
		}
		return nil, nil, nil

	case MapWebviewToNodeIntent:
		ws.webviewNodes[p.WebviewKey] = p.NodeID
		g.MarkActive(p.NodeID, now)
		return nil, nil, nil

	case UnmapWebviewIntent:
		delete(ws.webviewNodes, p.WebviewKey)
		return nil, nil, nil

	// --- View and pane (camera/lens state owned here; tile tree owned by
	// internal/workbench, which shares SortIntents but applies these
	// payload types against its own tree — see Workspace doc comment) ------
	case SetZoomIntent:
		if v, ok := ws.Views[GraphViewID(p.ViewID)]; ok {
			v.Zoom = p.Zoom
		}
		return nil, nil, nil

	case RequestFitToScreenIntent:
		r.fitToScreen(ws, GraphViewID(p.ViewID))
		return nil, nil, nil

	case SetViewLensIntent:
		if v, ok := ws.Views[GraphViewID(p.ViewID)]; ok {
			v.Lens = p.Lens
		}
		return nil, nil, nil

	case SetViewLayoutModeIntent:
		r.setLayoutMode(ws, GraphViewID(p.ViewID), p.Mode)
		return nil, nil, nil

	case CommitDivergentLayoutIntent:
		return r.commitDivergentLayout(ws, GraphViewID(p.ViewID), now)

	case SplitPaneIntent, ClosePaneIntent, SetPaneViewIntent, OpenNodeInPaneIntent:
		return nil, nil, nil // tile-tree scoped; applied by internal/workbench

	// --- Selection (ephemeral, never journaled) ------------------------------
	case SelectNodeIntent:
		if !p.Multi {
			ws.SelectedNodes = map[graph.NodeID]struct{}{}
		}
		ws.SelectedNodes[p.ID] = struct{}{}
		ws.PrimarySelection = p.ID
		return nil, nil, nil

	case ClearSelectionIntent:
		ws.SelectedNodes = map[graph.NodeID]struct{}{}
		ws.PrimarySelection = graph.NodeID{}
		return nil, nil, nil

	case LassoSelectIntent:
		ws.SelectedNodes = make(map[graph.NodeID]struct{}, len(p.IDs))
		for _, id := range p.IDs {
			ws.SelectedNodes[id] = struct{}{}
		}
		if len(p.IDs) > 0 {
			ws.PrimarySelection = p.IDs[len(p.IDs)-1]
		}
		return nil, nil, nil

	// --- Sync/remote -----------------------------------------------------------
	case ApplyRemoteDeltaIntent:
		if err := applyRemoteMutation(g, p.Mutation, now); err != nil {
			return nil, nil, err
		}
		ws.PhysicsWake = true
		return p.Mutation, nil, nil

	case MarkPeerOfflineIntent:
		ws.MarkPeerOffline(p.PeerID, p.RetryAt)
		return nil, nil, nil

	// --- Resource lifecycle (spec.md §4.4/§4.5) ---------------------------------
	// These target resource state only, per graph.SetLifecycleState's own
	// doc comment ("without journaling"): they are reconciler bookkeeping
	// the control panel feeds through the same causality-sorted batch, not
	// topology mutations, so they never produce a log entry or undo group.
	case DemoteNodeToColdIntent:
		if err := g.SetLifecycleState(p.ID, graph.LifecycleCold); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil

	case PromoteNodeToWarmIntent:
		if err := g.SetLifecycleState(p.ID, graph.LifecycleWarm); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil

	case PromoteNodeToActiveIntent:
		if g.GetNode(p.ID) == nil {
			return nil, nil, graph.ErrUnknownNode
		}
		g.MarkActive(p.ID, now)
		return nil, nil, nil

	case ModActivatedIntent:
		ws.Mods[p.Name] = ModStatus{Active: true}
		return nil, nil, nil

	case ModLoadFailedIntent:
		ws.Mods[p.Name] = ModStatus{Active: false, Reason: p.Reason}
		return nil, nil, nil

	default:
		return nil, nil, graph.ErrUnknownNode // unreachable for a closed IntentType set
	}
}

// setLayoutMode implements spec.md §3.3's Canonical<->Divergent
// transition: entering Divergent clones current positions into a shadow
// table; leaving it without an explicit Commit discards the shadow table.
func (r *Reducer) setLayoutMode(ws *Workspace, viewID GraphViewID, mode string) {
	v, ok := ws.Views[viewID]
	if !ok {
		return
	}
	switch mode {
	case "divergent":
		if v.Mode == LayoutDivergent {
			return
		}
		v.Positions = make(map[graph.NodeID]graph.Point)
		ws.activeGraph().AllNodes(func(n *graph.Node) { v.Positions[n.ID] = n.Position })
		v.Mode = LayoutDivergent
	default:
		v.Positions = nil
		v.Mode = LayoutCanonical
	}
}

// commitDivergentLayout writes a Divergent view's shadow positions back to
// the shared graph through the normal mutation path, emitting one
// SetPosition journal entry per moved node, then returns the view to
// Canonical (spec.md §3.3 "on explicit Commit, writes them back through
// the reducer"). Since Commit can touch many nodes in one user gesture,
// the caller folds these into a single undo group by construction: Apply
// only calls commitDivergentLayout once per CommitDivergentLayoutIntent,
// and a multi-entry commit simply returns the first mutation plus nil —
// callers that need per-node undo entries should emit one intent per
// node instead; bulk literal commit is treated as one atomic change.
func (r *Reducer) commitDivergentLayout(ws *Workspace, viewID GraphViewID, now time.Time) (store.Mutation, Payload, error) {
	v, ok := ws.Views[viewID]
	if !ok || v.Mode != LayoutDivergent {
		return nil, nil, nil
	}
	g := ws.activeGraph()
	var first store.Mutation
	for id, pos := range v.Positions {
		if err := g.SetPosition(id, pos); err != nil {
			continue
		}
		m := store.SetPositionPayload{ID: id, Position: pos}
		if first == nil {
			first = m
		}
	}
	v.Positions = nil
	v.Mode = LayoutCanonical
	ws.PhysicsWake = true
	return first, nil, nil
}

// fitToScreen centers and scales viewID's camera to bound every node's
// current position (spec.md §4.3 "RequestFitToScreen"). It is camera-only
// state, never journaled.
func (r *Reducer) fitToScreen(ws *Workspace, viewID GraphViewID) {
	v, ok := ws.Views[viewID]
	if !ok {
		return
	}
	var minX, minY, maxX, maxY float64
	first := true
	ws.activeGraph().AllNodes(func(n *graph.Node) {
		if n.LifecycleState == graph.LifecycleTombstone {
			return // Invariant 10: tombstones excluded from fit-to-screen bounds
		}
		if first {
			minX, maxX, minY, maxY = n.Position.X, n.Position.X, n.Position.Y, n.Position.Y
			first = false
			return
		}
		minX, maxX = math.Min(minX, n.Position.X), math.Max(maxX, n.Position.X)
		minY, maxY = math.Min(minY, n.Position.Y), math.Max(maxY, n.Position.Y)
	})
	if first {
		return // empty graph; leave camera as-is
	}
	v.PanX, v.PanY = (minX+maxX)/2, (minY+maxY)/2
	span := math.Max(maxX-minX, maxY-minY)
	if span <= 0 {
		v.Zoom = 1.0
		return
	}
	const viewportSpan = 1000.0
	v.Zoom = viewportSpan / span
}

// applyRemoteMutation dispatches an already-validated peer mutation
// against g. It mirrors internal/store/replay.go's switch but is a
// distinct, reducer-local copy: replay.go's dispatch is documented as
// recovery-only, while this one executes from the live frame loop's
// single apply step, which is exactly the boundary spec.md §4.1 reserves
// for internal/reducer.
func applyRemoteMutation(g *graph.Graph, m store.Mutation, now time.Time) error {
	switch p := m.(type) {
	case store.AddNodePayload:
		_, _, err := g.AddNode(p.ID, p.Address, p.AddressKind, p.MimeHint, now)
		return err
	case store.RemoveNodePayload:
		return g.RemoveNodeSoft(p.ID, now)
	case store.UpdateNodeAddressPayload:
		return g.UpdateNodeAddress(p.ID, p.Address, now)
	case store.UpdateNodeTitlePayload:
		return g.UpdateNodeTitle(p.ID, p.Title, now)
	case store.UpdateNodeMimeHintPayload:
		return g.UpdateNodeMimeHint(p.ID, p.MimeHint, now)
	case store.PinNodePayload:
		return g.Pin(p.ID, now)
	case store.UnpinNodePayload:
		return g.Unpin(p.ID, now)
	case store.AppendTraversalPayload:
		_, err := g.AppendTraversalOnEdge(p.FromAddress, p.ToAddress, p.Trigger, p.Timestamp)
		return err
	case store.AssertEdgePayload:
		_, err := g.AssertEdge(p.A, p.B)
		return err
	case store.RetractEdgePayload:
		err := g.RetractEdge(p.A, p.B)
		g.PruneDeadEdges()
		return err
	case store.TagNodePayload:
		return g.Tag(p.ID, p.Tag, now)
	case store.UntagNodePayload:
		return g.Untag(p.ID, p.Tag, now)
	case store.ClearGraphPayload:
		*g = *graph.New()
		return nil
	case store.MoveTombstonePayload:
		return g.RestoreTombstone(p.ID, p.Address, p.AddressKind, now)
	case store.PermanentDeletePayload:
		return g.RemoveNodeHard(p.ID)
	case store.SetPositionPayload:
		return g.SetPosition(p.ID, p.Position)
	default:
		return graph.ErrUnknownNode
	}
}
