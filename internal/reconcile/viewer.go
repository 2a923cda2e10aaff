// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reconcile

import (
	"sort"
	"sync"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

// Viewer is a registered content-rendering handler (spec.md §4.5 "Viewer
// selection"). The actual viewer implementation — the embedded web
// engine, an image viewer, a text viewer — is an external collaborator
// (spec.md §1 Non-goals); this package only dispatches to it through this
// closed-registry, trait-object-style interface (spec.md §4.7 "Dynamic
// dispatch").
type Viewer interface {
	Name() string
	Priority() int
	CanRender(mimeHint string, kind graph.AddressKind) bool
	// Open opens a live Instance for n (spec.md §6.4's
	// render_embedded(ui_region, node) -> handled_bool, adapted to
	// return a closeable handle rather than a bare bool: the instance's
	// existence IS "handled"). If the resulting Instance also implements
	// OverlayViewer, it is overlay-only (spec.md §6.4 is_overlay_only()).
	Open(n *graph.Node) (Instance, error)
}

// Instance is a live viewer resource held for an Active node.
type Instance interface {
	Close() error
}

// ViewerRegistry is the closed set of registered viewer handlers,
// ordered by priority (spec.md §4.5 step 3: "highest-priority registered
// handler where can_render is true").
type ViewerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Viewer
	// classDefaults maps a content class (caller-defined label, e.g.
	// "image", "pdf") to the viewer name the workspace prefers for it
	// (spec.md §4.5 step 2: "the workspace has a viewer default for this
	// content class").
	classDefaults map[string]string

	webViewer       Viewer
	plaintextViewer Viewer
}

// NewViewerRegistry returns an empty registry. webViewer and
// plaintextViewer back steps 4 and 5 of the selection chain and must
// both be non-nil: the plaintext fallback "always succeeds" (spec.md
// §4.5).
func NewViewerRegistry(webViewer, plaintextViewer Viewer) *ViewerRegistry {
	return &ViewerRegistry{
		handlers:        make(map[string]Viewer),
		classDefaults:   make(map[string]string),
		webViewer:       webViewer,
		plaintextViewer: plaintextViewer,
	}
}

// Register adds v to the closed set, keyed by its name.
func (r *ViewerRegistry) Register(v Viewer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[v.Name()] = v
}

// SetClassDefault records the preferred viewer name for a content class.
func (r *ViewerRegistry) SetClassDefault(class, viewerName string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classDefaults[class] = viewerName
}

func (r *ViewerRegistry) byName(name string) (Viewer, bool) {
	v, ok := r.handlers[name]
	return v, ok
}

// SelectFor implements spec.md §4.5's five-step viewer selection chain.
// contentClass is the caller-supplied class for step 2; empty skips it.
func (r *ViewerRegistry) SelectFor(n *graph.Node, contentClass string) Viewer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// 1. Explicit per-node override, if registered.
	if n.ViewerOverride != "" {
		if v, ok := r.byName(n.ViewerOverride); ok {
			return v
		}
	}

	// 2. Workspace-wide default for this content class.
	if contentClass != "" {
		if name, ok := r.classDefaults[contentClass]; ok {
			if v, ok := r.byName(name); ok {
				return v
			}
		}
	}

	// 3. Highest-priority registered handler that can render this node.
	var candidates []Viewer
	for _, v := range r.handlers {
		if v.CanRender(n.MimeHint, n.AddressKind) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) > 0 {
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Priority() > candidates[j].Priority() })
		return candidates[0]
	}

	// 4. Default web viewer for web/internal addresses.
	if n.AddressKind == graph.AddressWeb || n.AddressKind == graph.AddressInternal {
		if r.webViewer != nil {
			return r.webViewer
		}
	}

	// 5. Plaintext viewer, which always succeeds.
	return r.plaintextViewer
}
