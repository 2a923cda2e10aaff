// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package workbench owns the tile tree, per-view camera/lens/layout
// state, focus routing, and the per-frame sequence that ties the graph
// model, persistence store, intent reducer, control panel, and lifecycle
// reconciler together (spec.md §4.6, component F). Grounded on
// services/trace/tui's bubbletea Model/Update/View skeleton and
// pkg/ux's renderer/output conventions, adapted from
// services/code_buddy/tui/diff_model.go's navigation/decision state
// machine shape.
package workbench

import (
	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
)

// PaneID identifies one leaf tile.
type PaneID string

// ToolKind enumerates the closed set of tool-pane surfaces (spec.md §3.3
// "PaneView ... Tool(one of {Diagnostics, History, Settings,
// Accessibility, ...})").
type ToolKind int

const (
	ToolDiagnostics ToolKind = iota
	ToolHistory
	ToolSettings
	ToolAccessibility
)

func (k ToolKind) String() string {
	switch k {
	case ToolHistory:
		return "history"
	case ToolSettings:
		return "settings"
	case ToolAccessibility:
		return "accessibility"
	default:
		return "diagnostics"
	}
}

// PaneView is the payload of one pane tile (spec.md §3.3). Exactly one of
// GraphView/NodeID is meaningful, selected by Kind.
type PaneViewKind int

const (
	PaneViewGraph PaneViewKind = iota
	PaneViewNode
	PaneViewTool
)

type PaneView struct {
	Kind           PaneViewKind
	GraphView      reducer.GraphViewID
	NodeID         graph.NodeID
	ViewerOverride string
	Tool           ToolKind
}

// Pane is a tile-tree leaf.
type Pane struct {
	ID   PaneID
	View PaneView
}

// ContainerKind enumerates the closed set of internal tile-tree node
// kinds (spec.md §3.3 "Tile tree").
type ContainerKind int

const (
	ContainerTabs ContainerKind = iota
	ContainerHSplit
	ContainerVSplit
	ContainerGrid
)

// Tile is one node of the recursive tile tree: either a leaf (Pane !=
// nil) or an internal container over Children. A Tile is never both.
type Tile struct {
	Pane     *Pane
	Kind     ContainerKind
	Children []*Tile

	// SplitRatio, for a two-child HSplit/VSplit, is the first child's
	// fraction of the available space; ignored for Tabs/Grid.
	SplitRatio float64
}

// NewLeaf returns a single-pane tile.
func NewLeaf(p Pane) *Tile {
	return &Tile{Pane: &p}
}

// IsLeaf reports whether t hosts a pane directly.
func (t *Tile) IsLeaf() bool { return t.Pane != nil }

// Tree is the tile tree plus the id->tile index used for O(1) lookup by
// split/close/focus operations (spec.md §3.3 "Tile tree": "created by
// split/open commands; destroyed by close commands").
type Tree struct {
	Root *Tile

	byID map[PaneID]*Tile
	next int
}

// NewTree returns a tree with a single Graph pane as its only leaf.
func NewTree(defaultView reducer.GraphViewID) *Tree {
	t := &Tree{byID: make(map[PaneID]*Tile)}
	root := NewLeaf(Pane{ID: t.newID(), View: PaneView{Kind: PaneViewGraph, GraphView: defaultView}})
	t.Root = root
	t.byID[root.Pane.ID] = root
	return t
}

func (t *Tree) newID() PaneID {
	t.next++
	return PaneID(paneIDPrefix + itoa(t.next))
}

const paneIDPrefix = "pane-"

// itoa avoids pulling in strconv for a one-line int->string conversion
// used only to mint ids; base-10, non-negative inputs only (t.next is a
// monotonic counter).
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// Pane returns the pane tile for id, or nil.
func (t *Tree) Pane(id PaneID) *Tile {
	return t.byID[id]
}

// Split replaces the leaf at id with a two-child container of kind,
// moving the existing pane into the first child and a fresh pane with
// view into the second (spec.md §4.3 "SplitPane").
func (t *Tree) Split(id PaneID, kind ContainerKind, view PaneView) (PaneID, bool) {
	leaf, ok := t.byID[id]
	if !ok || !leaf.IsLeaf() {
		return "", false
	}
	existing := leaf.Pane
	newID := t.newID()
	newPane := &Pane{ID: newID, View: view}

	leaf.Pane = nil
	leaf.Kind = kind
	leaf.SplitRatio = 0.5
	leaf.Children = []*Tile{NewLeaf(*existing), {Pane: newPane}}
	t.byID[newID] = leaf.Children[1]
	// existing's tile identity moved into Children[0]; re-index it there.
	t.byID[existing.ID] = leaf.Children[0]
	return newID, true
}

// Close removes the pane at id. If its parent container is left with a
// single child, the container collapses back into a leaf (spec.md §3.3
// "destroyed by close commands"). Closing the tree's only remaining pane
// is a no-op: a workbench always has at least one pane.
func (t *Tree) Close(id PaneID) bool {
	if _, ok := t.byID[id]; !ok {
		return false
	}
	if t.Root.IsLeaf() {
		return false // last pane standing
	}
	return closeIn(t, t.Root, nil, -1, id)
}

func closeIn(t *Tree, node, parent *Tile, idxInParent int, target PaneID) bool {
	if node.IsLeaf() {
		return false
	}
	for i, child := range node.Children {
		if child.IsLeaf() && child.Pane.ID == target {
			delete(t.byID, target)
			node.Children = append(node.Children[:i], node.Children[i+1:]...)
			if len(node.Children) == 1 && parent != nil {
				collapsed := node.Children[0]
				parent.Children[idxInParent] = collapsed
				reindexSubtree(t, collapsed)
			} else if len(node.Children) == 1 && parent == nil {
				*node = *node.Children[0]
				reindexSubtree(t, node)
			}
			return true
		}
		if !child.IsLeaf() {
			if closeIn(t, child, node, i, target) {
				return true
			}
		}
	}
	return false
}

func reindexSubtree(t *Tree, node *Tile) {
	if node.IsLeaf() {
		t.byID[node.Pane.ID] = node
		return
	}
	for _, c := range node.Children {
		reindexSubtree(t, c)
	}
}

// Leaves returns every pane currently in the tree, in tree order.
func (t *Tree) Leaves() []*Pane {
	var out []*Pane
	var walk func(*Tile)
	walk = func(n *Tile) {
		if n.IsLeaf() {
			out = append(out, n.Pane)
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return out
}
