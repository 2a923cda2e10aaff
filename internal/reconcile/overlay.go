// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reconcile

import "github.com/mark-ik/graphshell-sub001/internal/graph"

// Rect is a pane's screen-space rectangle, in the units the windowing
// layer uses (an external collaborator, spec.md §1 Non-goals).
type Rect struct {
	X, Y, W, H float64
}

// OverlayViewer is an Instance that is also overlay-only: a native OS
// webview composited as an overlay window (spec.md §4.5 "Overlay
// viewers"). It may attach only to stable rectangular tile regions and
// renders as a static thumbnail placeholder inside graph-view panes.
type OverlayViewer interface {
	Instance
	SyncOverlay(rect Rect, visible bool)
}

// SyncOverlays calls SyncOverlay on every currently open overlay-backed
// instance, passing the rect recorded for its node in rects this frame
// (spec.md §4.5: "tracks pane rects per frame and calls
// sync_overlay(rect, visible) on each overlay viewer after layout").
// visible is true only when the node has a rect and visible[node] is
// true; callers set visible false for overlays that are offscreen or
// inside a graph-view pane (where they render as a placeholder instead of
// compositing live).
func (rc *Reconciler) SyncOverlays(rects map[graph.NodeID]Rect, visible map[graph.NodeID]bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	for id, inst := range rc.instances {
		ov, ok := inst.(OverlayViewer)
		if !ok {
			continue
		}
		rect, haveRect := rects[id]
		ov.SyncOverlay(rect, haveRect && visible[id])
	}
}
