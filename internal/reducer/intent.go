// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package reducer is the sole authorized mutator of graph, workspace, and
// view state (spec.md §4.3). apply_intents walks a causally ordered batch
// of intents and produces matching journal entries; it performs no
// blocking I/O. Grounded on the teacher's per-family command dispatch
// style in cmd/aleutian/cmd_*.go, adapted from CLI subcommands to intent
// handlers.
package reducer

import (
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/store"
)

// SourceTag identifies where an intent was drained from (spec.md §4.3
// "Drain"). Its ordinal also breaks causality ties among intents sharing
// the same Lamport stamp.
type SourceTag int

const (
	SourceLocalUI SourceTag = iota
	SourceWebEngineDelegate
	SourceMemoryMonitor
	SourceModLifecycle
	SourcePrefetchScheduler
	SourcePeerSync
	SourceRestore
	// SourceReconciler tags the Map/Unmap and lifecycle-adjustment intents
	// internal/reconcile produces itself after aligning runtime resources
	// with the frame's new state (spec.md §4.5: "mutates this mapping ...
	// via dedicated Map/Unmap intents produced by the reconciler itself
	// (which appear in the next frame's batch)"). spec.md §6.3's source
	// list predates this distinction between delegate-originated and
	// reconciler-originated webview intents; added here since both need a
	// causality tiebreaker and conflating them with WebEngineDelegate
	// would misattribute their origin in diagnostics.
	SourceReconciler
)

func (s SourceTag) String() string {
	switch s {
	case SourceLocalUI:
		return "local_ui"
	case SourceWebEngineDelegate:
		return "web_engine_delegate"
	case SourceMemoryMonitor:
		return "memory_monitor"
	case SourceModLifecycle:
		return "mod_lifecycle"
	case SourcePrefetchScheduler:
		return "prefetch_scheduler"
	case SourcePeerSync:
		return "peer_sync"
	case SourceRestore:
		return "restore"
	case SourceReconciler:
		return "reconciler"
	default:
		return "unknown"
	}
}

// IntentType enumerates every intent category of spec.md §4.3. Names are
// indicative in the spec, but the reducer dispatch table needs a closed
// set to switch over.
type IntentType int

const (
	// Graph topology.
	IntentAddNode IntentType = iota
	IntentRemoveNode
	IntentPermanentDeleteTombstone
	IntentRestoreTombstone
	IntentUpdateNodeAddress
	IntentUpdateNodeTitle
	IntentUpdateNodeMimeHint
	IntentPinNode
	IntentUnpinNode
	IntentTagNode
	IntentUntagNode
	IntentAssertEdge
	IntentRetractEdge
	IntentAppendTraversal
	IntentClearGraph

	// Webview lifecycle (from the web-engine delegate).
	IntentWebViewCreated
	IntentWebViewURLChanged
	IntentWebViewTitleChanged
	IntentWebViewHistoryIndexChanged
	IntentWebViewCrashed
	IntentMapWebviewToNode
	IntentUnmapWebview

	// View and pane.
	IntentSplitPane
	IntentClosePane
	IntentSetPaneView
	IntentOpenNodeInPane
	IntentSetZoom
	IntentRequestFitToScreen
	IntentSetViewLens
	IntentSetViewLayoutMode
	IntentCommitDivergentLayout

	// Selection.
	IntentSelectNode
	IntentClearSelection
	IntentLassoSelect

	// Sync/remote.
	IntentApplyRemoteDelta
	IntentMarkPeerOffline

	// Resource lifecycle (from the control panel's supervised workers;
	// see workspace.go's Workspace.Mods doc comment for why mod activation
	// only tracks a name and an error here rather than loading anything).
	IntentDemoteNodeToCold
	IntentPromoteNodeToWarm
	IntentPromoteNodeToActive
	IntentModActivated
	IntentModLoadFailed
)

// Payload is the data carried by one queued intent; concrete types below
// implement it by naming their IntentType.
type Payload interface {
	IntentType() IntentType
}

// QueuedIntent is a Payload plus the metadata attached at drain time
// (spec.md §4.3 step 1): source, causality stamp, and arrival time. Local
// intents carry Lamport 0 so they always sort ahead of a positive-clock
// remote delta in the same batch.
type QueuedIntent struct {
	Source    SourceTag
	Lamport   uint64
	QueuedAt  time.Time
	Payload   Payload
	// UndoGroup, when non-empty, ties this intent to an explicit
	// user-originated undo group; empty for webview-originated and
	// transient intents, which are excluded from undo (spec.md §4.3
	// "Undo/redo").
	UndoGroup string
}

// --- Graph topology payloads -------------------------------------------------

type AddNodeIntent struct {
	Address  string
	Kind     graph.AddressKind
	MimeHint string
}

func (AddNodeIntent) IntentType() IntentType { return IntentAddNode }

type RemoveNodeIntent struct{ ID graph.NodeID }

func (RemoveNodeIntent) IntentType() IntentType { return IntentRemoveNode }

type PermanentDeleteTombstoneIntent struct{ ID graph.NodeID }

func (PermanentDeleteTombstoneIntent) IntentType() IntentType {
	return IntentPermanentDeleteTombstone
}

type RestoreTombstoneIntent struct {
	ID      graph.NodeID
	Address string
	Kind    graph.AddressKind
}

func (RestoreTombstoneIntent) IntentType() IntentType { return IntentRestoreTombstone }

type UpdateNodeAddressIntent struct {
	ID      graph.NodeID
	Address string
}

func (UpdateNodeAddressIntent) IntentType() IntentType { return IntentUpdateNodeAddress }

type UpdateNodeTitleIntent struct {
	ID    graph.NodeID
	Title string
}

func (UpdateNodeTitleIntent) IntentType() IntentType { return IntentUpdateNodeTitle }

type UpdateNodeMimeHintIntent struct {
	ID       graph.NodeID
	MimeHint string
}

func (UpdateNodeMimeHintIntent) IntentType() IntentType { return IntentUpdateNodeMimeHint }

type PinNodeIntent struct{ ID graph.NodeID }

func (PinNodeIntent) IntentType() IntentType { return IntentPinNode }

type UnpinNodeIntent struct{ ID graph.NodeID }

func (UnpinNodeIntent) IntentType() IntentType { return IntentUnpinNode }

type TagNodeIntent struct {
	ID  graph.NodeID
	Tag string
}

func (TagNodeIntent) IntentType() IntentType { return IntentTagNode }

type UntagNodeIntent struct {
	ID  graph.NodeID
	Tag string
}

func (UntagNodeIntent) IntentType() IntentType { return IntentUntagNode }

type AssertEdgeIntent struct{ A, B graph.NodeID }

func (AssertEdgeIntent) IntentType() IntentType { return IntentAssertEdge }

type RetractEdgeIntent struct{ A, B graph.NodeID }

func (RetractEdgeIntent) IntentType() IntentType { return IntentRetractEdge }

// AppendTraversalIntent is the generic form used by both direct graph-open
// traversals and WebViewUrlChanged (see the WebViewURLChangedIntent case
// of dispatch in reducer.go, which takes the traversal's from-address from
// the intent's PriorAddress, captured before the intent was queued —
// spec.md P6 "Prior-URL capture ordering").
type AppendTraversalIntent struct {
	FromAddress string
	ToAddress   string
	Trigger     graph.Trigger
}

func (AppendTraversalIntent) IntentType() IntentType { return IntentAppendTraversal }

type ClearGraphIntent struct{}

func (ClearGraphIntent) IntentType() IntentType { return IntentClearGraph }

// --- Webview lifecycle payloads ----------------------------------------------

// WebViewCreatedIntent binds a freshly created webview to the node for its
// initial address, creating the node if no node is yet bound to it
// (spec.md §4.3 "Webview lifecycle").
type WebViewCreatedIntent struct {
	WebviewKey string
	Address    string
	Kind       graph.AddressKind
	MimeHint   string
}

func (WebViewCreatedIntent) IntentType() IntentType { return IntentWebViewCreated }

// WebViewURLChangedIntent is emitted by the web-engine delegate on
// navigation. PriorAddress must be the address the webview held *before*
// this navigation (spec.md P6 "Prior-URL capture ordering") — the
// traversal recorded carries PriorAddress->NewAddress, never the reverse,
// regardless of when the handler runs relative to the rebind.
type WebViewURLChangedIntent struct {
	WebviewKey   string
	PriorAddress string
	NewAddress   string
	Kind         graph.AddressKind
	MimeHint     string
	Trigger      graph.Trigger
}

func (WebViewURLChangedIntent) IntentType() IntentType { return IntentWebViewURLChanged }

type WebViewTitleChangedIntent struct {
	WebviewKey string
	Title      string
}

func (WebViewTitleChangedIntent) IntentType() IntentType { return IntentWebViewTitleChanged }

// WebViewHistoryIndexChangedIntent is pure per-webview UI state (back/
// forward position); it carries no graph mutation and is not journaled.
type WebViewHistoryIndexChangedIntent struct {
	WebviewKey string
	Index      int
}

func (WebViewHistoryIndexChangedIntent) IntentType() IntentType {
	return IntentWebViewHistoryIndexChanged
}

type WebViewCrashedIntent struct{ WebviewKey string }

func (WebViewCrashedIntent) IntentType() IntentType { return IntentWebViewCrashed }

type MapWebviewToNodeIntent struct {
	NodeID     graph.NodeID
	WebviewKey string
}

func (MapWebviewToNodeIntent) IntentType() IntentType { return IntentMapWebviewToNode }

type UnmapWebviewIntent struct{ WebviewKey string }

func (UnmapWebviewIntent) IntentType() IntentType { return IntentUnmapWebview }

// --- View and pane payloads ---------------------------------------------------

type SplitPaneIntent struct {
	PaneID    string
	Direction string // "tabs" | "horizontal" | "vertical" | "grid"
}

func (SplitPaneIntent) IntentType() IntentType { return IntentSplitPane }

type ClosePaneIntent struct{ PaneID string }

func (ClosePaneIntent) IntentType() IntentType { return IntentClosePane }

type SetPaneViewIntent struct {
	PaneID string
	View   any // workbench.PaneView, left untyped here to avoid an import
	// cycle between reducer and workbench; internal/workbench's
	// applyPaneIntents asserts the concrete type at the workbench boundary.
}

func (SetPaneViewIntent) IntentType() IntentType { return IntentSetPaneView }

type OpenNodeInPaneIntent struct {
	PaneID         string
	NodeID         graph.NodeID
	ViewerOverride string
}

func (OpenNodeInPaneIntent) IntentType() IntentType { return IntentOpenNodeInPane }

type SetZoomIntent struct {
	ViewID string
	Zoom   float64
}

func (SetZoomIntent) IntentType() IntentType { return IntentSetZoom }

type RequestFitToScreenIntent struct{ ViewID string }

func (RequestFitToScreenIntent) IntentType() IntentType { return IntentRequestFitToScreen }

type SetViewLensIntent struct {
	ViewID string
	Lens   string
}

func (SetViewLensIntent) IntentType() IntentType { return IntentSetViewLens }

type SetViewLayoutModeIntent struct {
	ViewID string
	Mode   string // "canonical" | "divergent"
}

func (SetViewLayoutModeIntent) IntentType() IntentType { return IntentSetViewLayoutMode }

type CommitDivergentLayoutIntent struct{ ViewID string }

func (CommitDivergentLayoutIntent) IntentType() IntentType { return IntentCommitDivergentLayout }

// --- Selection payloads -------------------------------------------------------

type SelectNodeIntent struct {
	ID    graph.NodeID
	Multi bool
}

func (SelectNodeIntent) IntentType() IntentType { return IntentSelectNode }

type ClearSelectionIntent struct{}

func (ClearSelectionIntent) IntentType() IntentType { return IntentClearSelection }

type LassoSelectIntent struct{ IDs []graph.NodeID }

func (LassoSelectIntent) IntentType() IntentType { return IntentLassoSelect }

// --- Sync/remote payloads ------------------------------------------------------

// ApplyRemoteDeltaIntent carries a peer-originated mutation and the
// Lamport clock value the peer stamped it with at emission time (spec.md
// §4.3 "Sync/remote"). Mutation reuses internal/store's tagged-union
// payload type so the same handlers that replay the journal can apply a
// remote delta.
type ApplyRemoteDeltaIntent struct {
	PeerID   string
	Mutation store.Mutation
}

func (ApplyRemoteDeltaIntent) IntentType() IntentType { return IntentApplyRemoteDelta }

type MarkPeerOfflineIntent struct {
	PeerID  string
	RetryAt time.Time
}

func (MarkPeerOfflineIntent) IntentType() IntentType { return IntentMarkPeerOffline }

// --- Resource lifecycle payloads ------------------------------------------------

// DemoteNodeToColdIntent is emitted by the memory-monitor worker for the
// least-recently-active Active node when process memory crosses a
// pressure threshold (spec.md §4.4). It targets resource state only,
// never the journal: lifecycle transitions are reconciler bookkeeping,
// not topology mutations.
type DemoteNodeToColdIntent struct{ ID graph.NodeID }

func (DemoteNodeToColdIntent) IntentType() IntentType { return IntentDemoteNodeToCold }

// PromoteNodeToWarmIntent is emitted by the prefetch scheduler for a node
// it predicts the user is about to open (spec.md §4.4).
type PromoteNodeToWarmIntent struct{ ID graph.NodeID }

func (PromoteNodeToWarmIntent) IntentType() IntentType { return IntentPromoteNodeToWarm }

// PromoteNodeToActiveIntent is emitted by internal/reconcile after it
// opens a non-webview viewer instance for a node entering the Active
// lifecycle state (spec.md §4.5's state machine: "Active: live
// viewer/web engine instance"). Webview-backed promotions go through
// MapWebviewToNodeIntent instead, since that payload already both binds
// the mapping and marks the node active in one step.
type PromoteNodeToActiveIntent struct{ ID graph.NodeID }

func (PromoteNodeToActiveIntent) IntentType() IntentType { return IntentPromoteNodeToActive }

// ModActivatedIntent/ModLoadFailedIntent record the outcome of the mod
// supervisor's scan (spec.md §4.4); the loading mechanics themselves are
// out of scope (spec.md §1 Non-goals), so only the name and, on failure,
// a reason string are tracked.
type ModActivatedIntent struct{ Name string }

func (ModActivatedIntent) IntentType() IntentType { return IntentModActivated }

type ModLoadFailedIntent struct {
	Name   string
	Reason string
}

func (ModLoadFailedIntent) IntentType() IntentType { return IntentModLoadFailed }
