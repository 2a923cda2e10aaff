// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workbench

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.opentelemetry.io/otel/trace"

	"github.com/mark-ik/graphshell-sub001/internal/command"
	"github.com/mark-ik/graphshell-sub001/internal/control"
	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reconcile"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/mark-ik/graphshell-sub001/internal/store"
)

// frameInterval is the per-frame tick period driving the 10-step
// sequence of spec.md §4.6. 60 steps/sec matches the "frame" vocabulary
// the spec uses throughout without committing to a literal display
// refresh rate — rendering itself is bubbletea's own concern.
const frameInterval = time.Second / 60

// SnapshotEveryFrames is the default period, in frames, between
// unconditional snapshot checkpoints (spec.md §4.6 step 7, "conditional
// take_snapshot"); shouldSnapshot also fires, regardless of elapsed
// frames, on every frame while the most recently logged journal sequence
// is a nonzero multiple of snapshotWatermarkStride.
const SnapshotEveryFrames = 60 * 30 // every ~30s at frameInterval

const snapshotWatermarkStride = 500

// defaultViewportWidth/Height seed the pane-list viewport before the
// first tea.WindowSizeMsg arrives, so View() has real content to show
// from the first frame rather than a "Loading..." placeholder.
const (
	defaultViewportWidth  = 80
	defaultViewportHeight = 20
)

// Diag is this package's diagnostics sink, mirroring the per-package
// Severity/Diag pattern used throughout (see internal/reconcile/diag.go).
type Diag interface {
	Emit(channel string, severity Severity, message string, fields map[string]any)
}

type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

type noopDiag struct{}

func (noopDiag) Emit(string, Severity, string, map[string]any) {}

// tickMsg drives one frame (spec.md §4.6's per-frame sequence).
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// WebEngineEventMsg wraps an intent originating from the embedded web
// engine delegate (spec.md §4.6 step 1b "collect web-engine delegate
// events"), to be merged into the next frame's batch under
// reducer.SourceWebEngineDelegate.
type WebEngineEventMsg struct{ Intent reducer.Payload }

// Config wires the fully assembled control core into a Model.
type Config struct {
	Workspace *reducer.Workspace
	Reducer   *reducer.Reducer
	Store     *store.Store
	Panel     *control.ControlPanel
	Reconcile *reconcile.Reconciler
	Scheduler *reconcile.Scheduler // nil disables physics ticking (no solver wired)
	Diag      Diag
	// Tracer, if set, wraps each frame's ten-step sequence in a span so
	// a slow frame (a sluggish reconcile pass, a blocked store write)
	// shows up in the same trace the rest of SPEC_FULL.md's ambient
	// stack emits to. nil disables tracing.
	Tracer trace.Tracer
}

// Model is the bubbletea root model for the workbench: it owns the tile
// tree, the focus router, and drives the frame loop, grounded on
// services/code_buddy/tui/diff_model.go's Model/Update/View skeleton
// (tea.Model over an embedded application-state struct, messages for
// async results, a big key-handling switch in Update).
type Model struct {
	ws     *reducer.Workspace
	red    *reducer.Reducer
	store  *store.Store
	panel  *control.ControlPanel
	rc     *reconcile.Reconciler
	sched  *reconcile.Scheduler
	diag   Diag
	tracer trace.Tracer

	tree  *Tree
	focus *Router

	width, height int

	// viewport scrolls the pane-list content (spec.md §4.6 step 9
	// "render"), grounded on services/code_buddy/tui/diff_model.go's
	// viewport.Model usage. Seeded with a default size in New() so it
	// renders real content before the first tea.WindowSizeMsg arrives.
	viewport viewport.Model

	// pendingLocal/pendingWeb accumulate intents gathered between frame
	// ticks (spec.md §4.6 steps 1a/1b); drained into the batch at step 4.
	pendingLocal []reducer.QueuedIntent
	pendingWeb   []reducer.QueuedIntent
	// pendingReconciler holds the reconciler's own Map/Unmap/promotion
	// intents so they apply on the *next* frame's batch rather than this
	// one (spec.md §4.5: "appear in the next frame's batch").
	pendingReconciler []reducer.QueuedIntent

	frameCount      uint64
	lastSnapshotSeq uint64

	preview bool // mirrors ws.InPreview(), tracked here only for View()

	quitting bool

	// cmd dispatches omnibar text into intents (RegionOmnibar); omnibarInput
	// is the line editor active while that region holds focus.
	cmd           *command.Dispatcher
	omnibarInput  textinput.Model
	omnibarReturn Region
	lastCmdErr    string
}

// New constructs a Model with a single default Graph pane and focus on
// workbench chrome.
func New(cfg Config) *Model {
	diag := cfg.Diag
	if diag == nil {
		diag = noopDiag{}
	}
	tree := NewTree(cfg.Workspace.FocusedView)
	ti := textinput.New()
	ti.Prompt = ":"
	ti.CharLimit = 256
	m := &Model{
		ws:            cfg.Workspace,
		red:           cfg.Reducer,
		store:         cfg.Store,
		panel:         cfg.Panel,
		rc:            cfg.Reconcile,
		sched:         cfg.Scheduler,
		diag:          diag,
		tracer:        cfg.Tracer,
		tree:          tree,
		cmd:           command.New(),
		omnibarInput:  ti,
		viewport:      viewport.New(defaultViewportWidth, defaultViewportHeight),
	}
	m.focus = NewRouter(m.regionPresent, m.onFocusTransition)
	m.updateViewportContent()
	return m
}

func (m *Model) regionPresent(r Region) bool {
	switch r {
	case RegionChrome:
		return true
	case RegionGraphPane:
		return m.firstPaneOfKind(PaneViewGraph) != nil
	case RegionNodeViewerPane:
		return m.firstPaneOfKind(PaneViewNode) != nil
	case RegionToolPane:
		return m.firstPaneOfKind(PaneViewTool) != nil
	default:
		// Command surface, omnibar and modal are transient chrome states
		// rather than tile-tree leaves; regionPresent only gates tile regions.
		return true
	}
}

func (m *Model) firstPaneOfKind(kind PaneViewKind) *Pane {
	for _, p := range m.tree.Leaves() {
		if p.View.Kind == kind {
			return p
		}
	}
	return nil
}

func (m *Model) onFocusTransition(t Transition) {
	m.diag.Emit("workbench.focus", Info, "focus transition", map[string]any{
		"from":   t.From.String(),
		"to":     t.To.String(),
		"reason": t.Reason,
	})
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update implements tea.Model: it is the sole entry point for both the
// frame tick and every event source the spec's step 1 collects (local
// key/mouse input here, web-engine delegate events via WebEngineEventMsg
// from an external bridge goroutine).
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

		headerHeight := 2
		m.viewport.Width = m.width
		m.viewport.Height = m.height - headerHeight
		m.viewport.YPosition = headerHeight
		m.updateViewportContent()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case WebEngineEventMsg:
		m.pendingWeb = append(m.pendingWeb, reducer.QueuedIntent{
			Source: reducer.SourceWebEngineDelegate, Payload: msg.Intent, QueuedAt: time.Now(),
		})
		return m, nil

	case tickMsg:
		m.runFrame(time.Time(msg))
		m.updateViewportContent()
		if m.quitting {
			return m, tea.Quit
		}
		return m, tick()
	}
	return m, nil
}

// updateViewportContent rebuilds the viewport's content from the
// current tile tree, mirroring diff_model.go's updateViewportContent.
func (m *Model) updateViewportContent() {
	var b strings.Builder
	for _, p := range m.tree.Leaves() {
		style := plainStyle
		if m.focus.Current() == RegionNodeViewerPane && p.View.Kind == PaneViewNode {
			style = focusedStyle
		}
		if m.focus.Current() == RegionGraphPane && p.View.Kind == PaneViewGraph {
			style = focusedStyle
		}
		b.WriteString(style.Render(paneLabel(p)))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// handleKey translates raw key input into queued local intents (spec.md
// §4.6 step 1a). Focus routing (F6, region-specific bindings) happens
// immediately rather than waiting for the next frame: focus is workbench
// UI state, not graph state, and has no causality ordering to respect.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus.Current() == RegionOmnibar {
		return m.handleOmnibarKey(msg)
	}
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "f6":
		m.focus.CycleNext()
		return m, nil
	case ":":
		m.lastCmdErr = ""
		m.omnibarInput.Reset()
		m.omnibarReturn = m.focus.Current()
		m.focus.Focus(RegionOmnibar, "omnibar_key")
		return m, m.omnibarInput.Focus()
	case "esc":
		if m.focus.Current() == RegionModal {
			m.focus.ExitModal("escape_key")
		} else if m.ws.InPreview() {
			m.ws.ExitPreview()
		}
		return m, nil
	case "ctrl+p":
		if !m.ws.InPreview() {
			m.ws.EnterPreview(time.Now())
		}
		return m, nil
	case "j", "down":
		m.viewport.LineDown(1)
		return m, nil
	case "k", "up":
		m.viewport.LineUp(1)
		return m, nil
	case "g", "home":
		m.viewport.GotoTop()
		return m, nil
	case "G", "end":
		m.viewport.GotoBottom()
		return m, nil
	}
	return m, nil
}

// handleOmnibarKey drives bubbles/textinput while RegionOmnibar holds
// focus (spec.md §4.6 step 1a's "command surface" input path), and on
// enter dispatches the entered line through internal/command and queues
// the resulting intent under SourceLocalUI via QueueLocal.
func (m *Model) handleOmnibarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.omnibarInput.Blur()
		m.omnibarInput.Reset()
		m.focus.Focus(m.omnibarReturn, "omnibar_cancelled")
		return m, nil
	case "enter":
		line := m.omnibarInput.Value()
		payload, err := m.cmd.Dispatch(line)
		if err != nil {
			m.lastCmdErr = err.Error()
			m.diag.Emit("workbench.command", Warn, "omnibar command rejected", map[string]any{
				"line": line, "error": err.Error(),
			})
		} else {
			m.omnibarInput.Blur()
			m.omnibarInput.Reset()
			m.QueueLocal(payload)
			m.focus.Focus(m.omnibarReturn, "omnibar_submitted")
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.omnibarInput, cmd = m.omnibarInput.Update(msg)
	return m, cmd
}

// wantActive reports the nodes the reconciler should treat as
// Active-desiring this frame (spec.md §4.5 step 1's "want_active" set):
// every node currently bound to a visible Node-kind pane, focused pane
// first.
func (m *Model) wantActive() []graph.NodeID {
	var out []graph.NodeID
	var focused *Pane
	for _, p := range m.tree.Leaves() {
		if p.View.Kind != PaneViewNode {
			continue
		}
		if m.focus.Current() == RegionNodeViewerPane && focused == nil {
			focused = p
			continue
		}
		out = append(out, p.View.NodeID)
	}
	if focused != nil {
		out = append([]graph.NodeID{focused.View.NodeID}, out...)
	}
	return out
}

// runFrame executes spec.md §4.6's ten-step sequence for one frame.
func (m *Model) runFrame(now time.Time) {
	ctx := context.Background()
	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.Start(ctx, "workbench.frame")
		defer span.End()
	}

	// Steps 1a/1b already accumulated into pendingLocal/pendingWeb by
	// Update; fold in this frame's reconciler carry-over from last frame.
	batch := make([]reducer.QueuedIntent, 0, len(m.pendingLocal)+len(m.pendingWeb)+len(m.pendingReconciler))
	batch = append(batch, m.pendingLocal...)
	batch = append(batch, m.pendingWeb...)
	batch = append(batch, m.pendingReconciler...)
	m.pendingLocal, m.pendingWeb, m.pendingReconciler = nil, nil, nil

	// Step 3: control_panel.try_drain.
	if m.panel != nil {
		batch = append(batch, m.panel.TryDrain(0)...)
	}

	// Step 4: causality sort (reducer.Apply also sorts internally, but
	// SortIntents is exported precisely so workbench-scoped intents —
	// SplitPane/ClosePane/SetPaneView/OpenNodeInPane — can share the same
	// ordering before being applied against the tile tree below).
	reducer.SortIntents(batch)

	// Step 5: apply_intents.
	muts := m.red.Apply(m.ws, batch, now)

	// Tile-tree-scoped intents are not handled by reducer.Apply (see its
	// dispatch comment); apply them here, in the same sorted order.
	m.applyPaneIntents(batch)

	// Step 6: persistence.log_mutation, per entry, in order.
	if m.store != nil {
		for _, mut := range muts {
			seq, err := m.store.LogMutation(ctx, mut, now.UnixMilli())
			if err != nil {
				m.diag.Emit("workbench.persistence", Error, "log_mutation failed", map[string]any{"error": err.Error()})
				continue
			}
			m.lastSnapshotSeq = seq
		}
	}

	// Step 7: conditional take_snapshot.
	m.frameCount++
	if m.store != nil && m.shouldSnapshot() {
		if _, err := m.store.TakeSnapshot(ctx, m.ws.Graph); err != nil {
			m.diag.Emit("workbench.persistence", Error, "take_snapshot failed", map[string]any{"error": err.Error()})
		}
	}

	// Step 8: reconcile_resources. Its own intents are held back to next
	// frame's batch (spec.md §4.5).
	if m.rc != nil {
		reconciled := m.rc.Reconcile(m.ws, m.wantActive(), now)
		for i := range reconciled {
			reconciled[i].Source = reducer.SourceReconciler
			reconciled[i].QueuedAt = now
		}
		m.pendingReconciler = reconciled
	}

	// Step 9: render is bubbletea's own View(), invoked by the runtime
	// after Update returns.

	// Step 10: advance physics.
	if m.sched != nil {
		if m.ws.PhysicsWake {
			m.sched.Reheat()
			m.ws.PhysicsWake = false
		}
		positions := make(map[graph.NodeID]graph.Point)
		m.ws.Graph.AllNodes(func(n *graph.Node) {
			if n.LifecycleState != graph.LifecycleTombstone {
				positions[n.ID] = n.Position
			}
		})
		m.sched.Tick(positions, frameInterval.Seconds())
	}

	m.preview = m.ws.InPreview()
}

func (m *Model) shouldSnapshot() bool {
	if m.frameCount%SnapshotEveryFrames == 0 {
		return true
	}
	return m.lastSnapshotSeq > 0 && m.lastSnapshotSeq%snapshotWatermarkStride == 0
}

// applyPaneIntents handles the four tile-tree-scoped intent types
// reducer.Apply deliberately no-ops on (see reducer.go's dispatch
// comment next to SplitPaneIntent).
func (m *Model) applyPaneIntents(batch []reducer.QueuedIntent) {
	for _, qi := range batch {
		switch p := qi.Payload.(type) {
		case reducer.SplitPaneIntent:
			kind := ContainerHSplit
			switch p.Direction {
			case "vertical":
				kind = ContainerVSplit
			case "tabs":
				kind = ContainerTabs
			case "grid":
				kind = ContainerGrid
			}
			m.tree.Split(PaneID(p.PaneID), kind, PaneView{Kind: PaneViewGraph, GraphView: m.ws.FocusedView})
		case reducer.ClosePaneIntent:
			m.tree.Close(PaneID(p.PaneID))
		case reducer.SetPaneViewIntent:
			if tile := m.tree.Pane(PaneID(p.PaneID)); tile != nil && tile.IsLeaf() {
				if v, ok := p.View.(PaneView); ok {
					tile.Pane.View = v
				}
			}
		case reducer.OpenNodeInPaneIntent:
			if tile := m.tree.Pane(PaneID(p.PaneID)); tile != nil && tile.IsLeaf() {
				tile.Pane.View = PaneView{Kind: PaneViewNode, NodeID: p.NodeID, ViewerOverride: p.ViewerOverride}
			}
		}
	}
}

// QueueLocal enqueues an intent for the next frame's batch under
// reducer.SourceLocalUI, for callers outside the bubbletea key-handling
// path (e.g. a command palette or a CLI-driven scripted action).
func (m *Model) QueueLocal(p reducer.Payload) {
	m.pendingLocal = append(m.pendingLocal, reducer.QueuedIntent{Source: reducer.SourceLocalUI, Payload: p, QueuedAt: time.Now()})
}

var (
	focusedStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("6"))
	plainStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("8"))
)

// View implements tea.Model: a minimal chrome line plus the scrollable
// pane-list viewport, styled per focus state (spec.md §4.6 step 9
// "render"). Tile-tree layout math (exact split proportions, nested
// containers) is left to a dedicated renderer external to the control
// core; this is enough surface to drive the focus/frame-loop semantics
// end to end.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "graphshell  focus=%s  frame=%d", m.focus.Current(), m.frameCount)
	if m.preview {
		b.WriteString("  [preview]")
	}
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.focus.Current() == RegionOmnibar {
		b.WriteString(m.omnibarInput.View())
	} else if m.lastCmdErr != "" {
		fmt.Fprintf(&b, "\nerror: %s", m.lastCmdErr)
	}
	return b.String()
}

func paneLabel(p *Pane) string {
	switch p.View.Kind {
	case PaneViewGraph:
		return fmt.Sprintf("[%s] graph:%s", p.ID, p.View.GraphView)
	case PaneViewNode:
		return fmt.Sprintf("[%s] node:%s", p.ID, p.View.NodeID)
	default:
		return fmt.Sprintf("[%s] tool:%s", p.ID, p.View.Tool)
	}
}
