// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reducer

import (
	"errors"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/store"
)

// ErrNothingToUndo and ErrNothingToRedo report an empty stack.
var (
	ErrNothingToUndo = errors.New("reducer: undo stack is empty")
	ErrNothingToRedo = errors.New("reducer: redo stack is empty")
)

// Undo pops the most recent undo group and applies each entry's inverse
// payload in reverse order, as one synthetic batch tagged SourceRestore
// (spec.md §4.3 "Undo/redo": "Restore operations form a single atomic
// undo group"). The popped group moves to the redo stack.
func (r *Reducer) Undo(ws *Workspace, now time.Time) ([]store.Mutation, error) {
	if len(ws.UndoStack) == 0 {
		return nil, ErrNothingToUndo
	}
	g := ws.UndoStack[len(ws.UndoStack)-1]
	ws.UndoStack = ws.UndoStack[:len(ws.UndoStack)-1]

	var batch []QueuedIntent
	for i := len(g.Entries) - 1; i >= 0; i-- {
		if g.Entries[i].Inverse == nil {
			continue
		}
		batch = append(batch, QueuedIntent{Source: SourceRestore, Payload: g.Entries[i].Inverse})
	}
	mutations := r.Apply(ws, batch, now)
	ws.RedoStack = append(ws.RedoStack, g)
	return mutations, nil
}

// Redo re-applies the most recently undone group's forward payloads, in
// original order.
func (r *Reducer) Redo(ws *Workspace, now time.Time) ([]store.Mutation, error) {
	if len(ws.RedoStack) == 0 {
		return nil, ErrNothingToRedo
	}
	g := ws.RedoStack[len(ws.RedoStack)-1]
	remaining := ws.RedoStack[:len(ws.RedoStack)-1]

	var batch []QueuedIntent
	for _, e := range g.Entries {
		batch = append(batch, QueuedIntent{Source: SourceRestore, Payload: e.Forward, UndoGroup: g.Label})
	}
	mutations := r.Apply(ws, batch, now)
	// Apply() clears RedoStack unconditionally on any new undo group
	// (a fresh user action invalidates redo); a Redo is not a fresh
	// action, so the remaining entries below the one just replayed stay
	// valid.
	ws.RedoStack = remaining
	return mutations, nil
}
