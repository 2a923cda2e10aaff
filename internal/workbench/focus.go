// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workbench

// Region is one of the closed set of top-level focus targets (spec.md
// §4.7: "workbench chrome, active graph pane, node viewer pane, tool
// pane, command surface, omnibar, modal"). Widget-local focus inside a
// pane is orthogonal and never authoritative here.
type Region int

const (
	RegionChrome Region = iota
	RegionGraphPane
	RegionNodeViewerPane
	RegionToolPane
	RegionCommandSurface
	RegionOmnibar
	RegionModal
)

func (r Region) String() string {
	switch r {
	case RegionGraphPane:
		return "graph_pane"
	case RegionNodeViewerPane:
		return "node_viewer_pane"
	case RegionToolPane:
		return "tool_pane"
	case RegionCommandSurface:
		return "command_surface"
	case RegionOmnibar:
		return "omnibar"
	case RegionModal:
		return "modal"
	default:
		return "chrome"
	}
}

// cycleOrder is F6's fixed top-level traversal order (spec.md §4.7 "F6
// ... cycles top-level regions"). Modal and omnibar are reached by their
// own triggers, not by cycling, so they are excluded from this list.
var cycleOrder = []Region{RegionChrome, RegionGraphPane, RegionNodeViewerPane, RegionToolPane, RegionCommandSurface}

// Transition is one focus change, suitable for a diagnostics channel
// (spec.md §4.7 "Focus transitions emit diagnostics; ambiguous or
// dropped transitions are correctness bugs").
type Transition struct {
	From   Region
	To     Region
	Reason string
}

// Router owns the single authoritative focus region plus the state
// needed to restore it correctly: a present-region predicate (since
// regions can be absent, e.g. no tool pane currently open) and a modal
// return-target stack (spec.md §4.7 "Modal capture stores a return
// target; on dismissal the target is restored if still valid, else the
// fallback chain applies").
type Router struct {
	current Region

	// present reports whether a region currently exists in the tile tree
	// (an absent region is skipped by F6 and can never become current).
	present func(Region) bool

	returnStack []Region

	onTransition func(Transition)
}

// NewRouter returns a Router focused on RegionChrome, using present to
// test region availability. onTransition may be nil.
func NewRouter(present func(Region) bool, onTransition func(Transition)) *Router {
	if present == nil {
		present = func(Region) bool { return true }
	}
	return &Router{current: RegionChrome, present: present, onTransition: onTransition}
}

// Current returns the region currently holding semantic focus.
func (r *Router) Current() Region { return r.current }

// Focus transfers semantic focus to target for reason (spec.md §4.7
// "Opening a region transfers focus to its primary interactive
// element"). A request to focus an absent region is itself a correctness
// bug in the caller and is refused.
func (r *Router) Focus(target Region, reason string) bool {
	if !r.present(target) {
		return false
	}
	r.emit(r.current, target, reason)
	r.current = target
	return true
}

// EnterModal captures the current region as the return target and
// transfers focus to RegionModal (spec.md §4.7 "Modal capture stores a
// return target").
func (r *Router) EnterModal(reason string) {
	r.returnStack = append(r.returnStack, r.current)
	r.emit(r.current, RegionModal, reason)
	r.current = RegionModal
}

// ExitModal restores the most recently captured return target if it is
// still present, otherwise falls back through chrome (spec.md §4.7 "on
// dismissal the target is restored if still valid, else the fallback
// chain applies"). ExitModal on an empty return stack (a modal opened
// with no prior capture) falls back to chrome directly.
func (r *Router) ExitModal(reason string) {
	var target Region
	if n := len(r.returnStack); n > 0 {
		target = r.returnStack[n-1]
		r.returnStack = r.returnStack[:n-1]
	} else {
		target = RegionChrome
	}
	if !r.present(target) {
		target = r.fallbackChain(target)
	}
	r.emit(r.current, target, reason)
	r.current = target
}

// fallbackChain walks cycleOrder starting after the lost region,
// wrapping around, and returns the first present region; RegionChrome is
// always treated as present (it is the workbench shell itself).
func (r *Router) fallbackChain(lost Region) Region {
	start := 0
	for i, reg := range cycleOrder {
		if reg == lost {
			start = i
			break
		}
	}
	for i := 1; i <= len(cycleOrder); i++ {
		candidate := cycleOrder[(start+i)%len(cycleOrder)]
		if candidate == RegionChrome || r.present(candidate) {
			return candidate
		}
	}
	return RegionChrome
}

// CycleNext advances focus to the next present top-level region in
// cycleOrder (spec.md §4.7 "F6 ... cycles top-level regions; regions
// that are absent are skipped explicitly"). Modal focus is never
// disturbed by cycling: F6 while a modal is open is a no-op, since the
// modal has captured input.
func (r *Router) CycleNext() {
	if r.current == RegionModal {
		return
	}
	start := 0
	for i, reg := range cycleOrder {
		if reg == r.current {
			start = i
			break
		}
	}
	for i := 1; i <= len(cycleOrder); i++ {
		candidate := cycleOrder[(start+i)%len(cycleOrder)]
		if candidate == RegionChrome || r.present(candidate) {
			r.emit(r.current, candidate, "f6_cycle")
			r.current = candidate
			return
		}
	}
}

func (r *Router) emit(from, to Region, reason string) {
	if r.onTransition == nil || from == to {
		return
	}
	r.onTransition(Transition{From: from, To: to, Reason: reason})
}
