// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reducer

import (
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

// GraphViewID identifies a graph viewport (spec.md §3.3).
type GraphViewID string

// LayoutMode is a GraphViewState's position-authority mode (spec.md §3.3).
type LayoutMode int

const (
	LayoutCanonical LayoutMode = iota
	LayoutDivergent
)

func (m LayoutMode) String() string {
	if m == LayoutDivergent {
		return "divergent"
	}
	return "canonical"
}

// GraphViewState is camera + lens + layout-mode state for one viewport
// (spec.md §3.3). In Canonical mode Positions is nil and the view reads
// node positions directly from the shared graph; in Divergent mode
// Positions is a shadow table cloned from the graph at the moment of
// transition.
type GraphViewState struct {
	Zoom   float64
	PanX   float64
	PanY   float64
	Lens   string
	Mode   LayoutMode
	Positions map[graph.NodeID]graph.Point
}

// NewGraphViewState returns a default Canonical view.
func NewGraphViewState() *GraphViewState {
	return &GraphViewState{Zoom: 1.0, Mode: LayoutCanonical}
}

// Workspace is the top-level mutable state owned exclusively by the
// reducer (spec.md §3.1). Pane/tile-tree layout is SPEC_FULL.md's
// responsibility of internal/workbench rather than this package — unlike
// the spec's single Workspace type, Go's package boundaries make a
// workbench-owned tile tree that embeds *Workspace the more idiomatic
// split, avoiding an import cycle between the reducer and a bubbletea
// view layer. See DESIGN.md for this Open-Question resolution.
type Workspace struct {
	Graph *graph.Graph

	Views       map[GraphViewID]*GraphViewState
	FocusedView GraphViewID

	SelectedNodes    map[graph.NodeID]struct{}
	PrimarySelection graph.NodeID

	LamportClock uint64

	// PhysicsWake is set by any topology-mutating intent in a frame and
	// cleared by internal/workbench's frame loop when it reheats the
	// physics scheduler (spec.md §4.3 "Physics wake").
	PhysicsWake bool

	UndoStack []UndoGroup
	RedoStack []UndoGroup

	// webviewNodes maps an opaque webview key to the node it renders into,
	// maintained by MapWebviewToNode/UnmapWebview (spec.md §4.3 "Webview
	// lifecycle").
	webviewNodes map[string]graph.NodeID

	// peersOffline tracks peers marked offline by MarkPeerOffline, read
	// back through PeerOffline.
	peersOffline map[string]time.Time

	// preview, when non-nil, is a detached fork entered by the workbench's
	// temporal preview mode (spec.md §4.6, S5): intents still apply to
	// preview.Graph, but produce no log entries and no persistence writes.
	preview *previewFork

	// Mods tracks the outcome of the mod supervisor's most recent scan, by
	// name. Loading mechanics are out of scope (spec.md §1 Non-goals); this
	// is bookkeeping only, enough for a workbench status surface to show
	// "3 mods active, 1 failed: <reason>".
	Mods map[string]ModStatus
}

// ModStatus is the outcome of one mod's load attempt.
type ModStatus struct {
	Active bool
	Reason string // set when Active is false
}

type previewFork struct {
	graph *graph.Graph
	at    time.Time
}

// UndoGroup is one user-originated command's worth of log entries plus
// enough information to invert it (spec.md §4.3 "Undo/redo"). Restore
// operations form a single atomic group; webview-originated and transient
// intents never produce one.
type UndoGroup struct {
	Label   string
	Entries []UndoEntry
}

// UndoEntry pairs a forward mutation (as journaled) with its inverse
// intent, so Undo can be expressed as "apply the inverse intent" rather
// than a separate code path per mutation.
type UndoEntry struct {
	Forward Payload
	Inverse Payload
}

// NewWorkspace returns an empty workspace with one default Canonical view.
func NewWorkspace() *Workspace {
	const defaultView GraphViewID = "main"
	ws := &Workspace{
		Graph:         graph.New(),
		Views:         map[GraphViewID]*GraphViewState{defaultView: NewGraphViewState()},
		FocusedView:   defaultView,
		SelectedNodes: make(map[graph.NodeID]struct{}),
		webviewNodes:  make(map[string]graph.NodeID),
		peersOffline:  make(map[string]time.Time),
		Mods:          make(map[string]ModStatus),
	}
	return ws
}

// activeGraph returns the graph intents should mutate: the preview fork's
// detached copy if preview mode is active, otherwise the live graph
// (spec.md §4.6, S5 "Preview mode isolation").
func (ws *Workspace) activeGraph() *graph.Graph {
	if ws.preview != nil {
		return ws.preview.graph
	}
	return ws.Graph
}

// InPreview reports whether the workspace currently has a detached
// temporal-preview fork active.
func (ws *Workspace) InPreview() bool {
	return ws.preview != nil
}

// EnterPreview forks the live graph into a detached copy. Intents applied
// while in preview mutate only the fork and never reach the journal
// (spec.md §8.2 S5).
func (ws *Workspace) EnterPreview(at time.Time) {
	ws.preview = &previewFork{graph: ws.Graph.Clone(), at: at}
}

// ExitPreview discards the fork; the live graph is unaffected by whatever
// happened inside preview mode.
func (ws *Workspace) ExitPreview() {
	ws.preview = nil
}

// NodeForWebview returns the node a webview key is currently mapped to,
// if any. Read-only counterpart to the Map/Unmap intents internal/
// reconcile emits (spec.md §4.5 "Webview<->node mapping").
func (ws *Workspace) NodeForWebview(key string) (graph.NodeID, bool) {
	id, ok := ws.webviewNodes[key]
	return id, ok
}

// WebviewForNode returns the webview key currently mapped to id, if any.
func (ws *Workspace) WebviewForNode(id graph.NodeID) (string, bool) {
	for k, v := range ws.webviewNodes {
		if v == id {
			return k, true
		}
	}
	return "", false
}

// WebviewMappings returns a snapshot copy of the webview->node mapping,
// for the reconciler to diff against the lifecycle states it computes.
func (ws *Workspace) WebviewMappings() map[string]graph.NodeID {
	out := make(map[string]graph.NodeID, len(ws.webviewNodes))
	for k, v := range ws.webviewNodes {
		out[k] = v
	}
	return out
}

// MarkPeerOffline records peer as offline, along with the timestamp the
// peer-sync worker intends to retry the connection at (spec.md §4.4
// "emits MarkPeerOffline with a retry-at timestamp").
func (ws *Workspace) MarkPeerOffline(peerID string, retryAt time.Time) {
	ws.peersOffline[peerID] = retryAt
}

// PeerOffline reports whether peerID is currently marked offline and, if
// so, when the peer-sync worker intends to retry.
func (ws *Workspace) PeerOffline(peerID string) (retryAt time.Time, offline bool) {
	retryAt, offline = ws.peersOffline[peerID]
	return
}
