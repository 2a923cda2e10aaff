// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workbench

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reconcile"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/mark-ik/graphshell-sub001/internal/store"
)

type stubViewer struct{ name string }

func (v *stubViewer) Name() string                             { return v.name }
func (v *stubViewer) Priority() int                             { return 0 }
func (v *stubViewer) CanRender(string, graph.AddressKind) bool { return true }
func (v *stubViewer) Open(*graph.Node) (reconcile.Instance, error) {
	return stubInstance{}, nil
}

type stubInstance struct{}

func (stubInstance) Close() error { return nil }

func newTestModel(t *testing.T) *Model {
	t.Helper()
	ws := reducer.NewWorkspace()
	s, err := store.Open(store.Config{InMemory: true, SkipCorruptedEntries: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	reg := reconcile.NewViewerRegistry(&stubViewer{name: "web"}, &stubViewer{name: "plaintext"})
	rc := reconcile.New(reg, reconcile.DefaultPolicy(), nil)

	return New(Config{
		Workspace: ws,
		Reducer:   reducer.New(nil),
		Store:     s,
		Reconcile: rc,
	})
}

// --- Tile tree ---------------------------------------------------------------

func TestTreeStartsWithSingleGraphLeaf(t *testing.T) {
	tree := NewTree("main")
	leaves := tree.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, PaneViewGraph, leaves[0].View.Kind)
}

func TestTreeSplitCreatesTwoLeaves(t *testing.T) {
	tree := NewTree("main")
	root := tree.Leaves()[0]
	newID, ok := tree.Split(root.ID, ContainerVSplit, PaneView{Kind: PaneViewTool, Tool: ToolHistory})
	require.True(t, ok)
	leaves := tree.Leaves()
	require.Len(t, leaves, 2)
	assert.NotNil(t, tree.Pane(newID))
	assert.NotNil(t, tree.Pane(root.ID))
}

func TestTreeCloseCollapsesContainerBackToLeaf(t *testing.T) {
	tree := NewTree("main")
	root := tree.Leaves()[0]
	newID, _ := tree.Split(root.ID, ContainerHSplit, PaneView{Kind: PaneViewTool, Tool: ToolSettings})

	ok := tree.Close(newID)
	require.True(t, ok)
	leaves := tree.Leaves()
	require.Len(t, leaves, 1)
	assert.True(t, tree.Root.IsLeaf())
}

func TestTreeCloseLastPaneIsNoOp(t *testing.T) {
	tree := NewTree("main")
	root := tree.Leaves()[0]
	assert.False(t, tree.Close(root.ID))
	assert.Len(t, tree.Leaves(), 1)
}

func TestTreeSplitThenCloseOriginalCollapsesToSibling(t *testing.T) {
	tree := NewTree("main")
	root := tree.Leaves()[0]
	newID, _ := tree.Split(root.ID, ContainerHSplit, PaneView{Kind: PaneViewTool, Tool: ToolHistory})

	require.True(t, tree.Close(root.ID))
	leaves := tree.Leaves()
	require.Len(t, leaves, 1)
	assert.Equal(t, newID, leaves[0].ID)
}

// --- Focus router --------------------------------------------------------------

func TestRouterStartsOnChrome(t *testing.T) {
	r := NewRouter(nil, nil)
	assert.Equal(t, RegionChrome, r.Current())
}

func TestRouterRefusesAbsentRegion(t *testing.T) {
	r := NewRouter(func(reg Region) bool { return reg != RegionToolPane }, nil)
	ok := r.Focus(RegionToolPane, "test")
	assert.False(t, ok)
	assert.Equal(t, RegionChrome, r.Current())
}

func TestRouterCycleSkipsAbsentRegions(t *testing.T) {
	present := map[Region]bool{RegionChrome: true, RegionGraphPane: true, RegionToolPane: true}
	r := NewRouter(func(reg Region) bool { return present[reg] }, nil)

	r.CycleNext() // chrome -> graph pane
	assert.Equal(t, RegionGraphPane, r.Current())
	r.CycleNext() // node viewer pane is absent, tool pane is next present
	assert.Equal(t, RegionToolPane, r.Current())
}

func TestRouterModalCaptureAndRestore(t *testing.T) {
	r := NewRouter(nil, nil)
	r.Focus(RegionGraphPane, "open_graph")
	r.EnterModal("confirm_delete")
	assert.Equal(t, RegionModal, r.Current())
	r.ExitModal("confirmed")
	assert.Equal(t, RegionGraphPane, r.Current())
}

func TestRouterModalRestoreFallsBackWhenTargetGone(t *testing.T) {
	toolGone := true
	r := NewRouter(func(reg Region) bool { return reg != RegionToolPane || !toolGone }, nil)
	r.Focus(RegionChrome, "start")
	r.current = RegionToolPane // simulate having been focused there before it closed
	r.EnterModal("confirm")
	r.ExitModal("dismiss")
	assert.NotEqual(t, RegionToolPane, r.Current())
}

func TestRouterCycleIgnoredWhileModal(t *testing.T) {
	r := NewRouter(nil, nil)
	r.EnterModal("reason")
	r.CycleNext()
	assert.Equal(t, RegionModal, r.Current())
}

func TestRouterEmitsTransitionDiagnostic(t *testing.T) {
	var got []Transition
	r := NewRouter(nil, func(t Transition) { got = append(got, t) })
	r.Focus(RegionGraphPane, "click")
	require.Len(t, got, 1)
	assert.Equal(t, RegionChrome, got[0].From)
	assert.Equal(t, RegionGraphPane, got[0].To)
}

// --- Frame loop ------------------------------------------------------------------

func TestRunFrameAppliesLocalIntentAndSplitsAcceptedPane(t *testing.T) {
	m := newTestModel(t)
	root := m.tree.Leaves()[0]

	m.QueueLocal(reducer.AddNodeIntent{Address: "file:///a", Kind: graph.AddressFile})
	m.pendingLocal = append(m.pendingLocal, reducer.QueuedIntent{
		Source:  reducer.SourceLocalUI,
		Payload: reducer.SplitPaneIntent{PaneID: string(root.ID), Direction: "vertical"},
	})

	m.runFrame(time.Now())

	_, node := m.ws.Graph.GetNodeByAddress("file:///a")
	require.NotNil(t, node)
	assert.Len(t, m.tree.Leaves(), 2)
}

func TestRunFrameQueuesReconcilerIntentsForNextFrame(t *testing.T) {
	m := newTestModel(t)
	now := time.Now()

	m.QueueLocal(reducer.AddNodeIntent{Address: "file:///a", Kind: graph.AddressFile})
	m.runFrame(now)

	id, node := m.ws.Graph.GetNodeByAddress("file:///a")
	require.NotNil(t, node)
	assert.Equal(t, graph.LifecycleCold, node.LifecycleState, "reconciler's promotion intent must not apply within the same frame")

	m.pendingLocal = append(m.pendingLocal, reducer.QueuedIntent{
		Source: reducer.SourceLocalUI,
		Payload: reducer.OpenNodeInPaneIntent{
			PaneID: string(m.tree.Leaves()[0].ID),
			NodeID: id,
		},
	})
	m.runFrame(now.Add(time.Second))

	require.NotEmpty(t, m.pendingReconciler, "reconcile should have queued a promotion intent for the next frame")
	for _, qi := range m.pendingReconciler {
		assert.Equal(t, reducer.SourceReconciler, qi.Source)
	}
}

func TestModelInitReturnsTickCmd(t *testing.T) {
	m := newTestModel(t)
	cmd := m.Init()
	assert.NotNil(t, cmd)
}

func TestModelUpdateQuitsOnCtrlC(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
}

func TestModelViewRendersFocusedPaneHighlighted(t *testing.T) {
	m := newTestModel(t)
	out := m.View()
	assert.Contains(t, out, "graph:")
}

func TestColonKeyEntersOmnibar(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	assert.Equal(t, RegionOmnibar, m.focus.Current())
}

func TestOmnibarAccumulatesTypedRunesAndDispatchesOnEnter(t *testing.T) {
	m := newTestModel(t)
	id := graph.NewNodeID()
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	for _, r := range "pin " + id.String() {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.Equal(t, RegionChrome, m.focus.Current())
	require.Len(t, m.pendingLocal, 1)
	assert.Equal(t, reducer.PinNodeIntent{ID: id}, m.pendingLocal[0].Payload)
}

func TestOmnibarEscCancelsWithoutQueuing(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, RegionChrome, m.focus.Current())
	assert.Empty(t, m.pendingLocal)
}

func TestOmnibarRejectsUnknownVerbAndStaysOpen(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(":")})
	for _, r := range "bogus" {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, m.pendingLocal)
	assert.NotEmpty(t, m.lastCmdErr)
}
