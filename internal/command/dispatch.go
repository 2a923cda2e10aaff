// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package command is the omnibar/command-surface text dispatcher
// (spec.md §2's "action/command dispatch" auxiliary, focus regions
// RegionCommandSurface/RegionOmnibar in internal/workbench/focus.go).
// It turns one line of typed text into a reducer.Payload the caller
// queues with workbench.Model.QueueLocal, the same way
// cmd/aleutian's cmd_*.go files each hold a name-keyed handler rather
// than one giant parser function.
package command

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
)

// Handler builds the intent payload for one command name from its
// remaining whitespace-split arguments.
type Handler func(args []string) (reducer.Payload, error)

// Dispatcher holds the closed set of registered command names, keyed
// the way a cobra command tree keys subcommands: one literal name per
// handler, no pattern matching.
type Dispatcher struct {
	handlers map[string]Handler
}

// New returns a Dispatcher pre-registered with the command surface's
// built-in verbs.
func New() *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]Handler)}
	d.Register("pin", cmdPin)
	d.Register("unpin", cmdUnpin)
	d.Register("tag", cmdTag)
	d.Register("untag", cmdUntag)
	d.Register("link", cmdLink)
	d.Register("unlink", cmdUnlink)
	d.Register("split", cmdSplit)
	d.Register("close", cmdClose)
	d.Register("clear-graph", cmdClearGraph)
	return d
}

// Register adds or replaces the handler for name.
func (d *Dispatcher) Register(name string, h Handler) {
	d.handlers[name] = h
}

// Dispatch parses one line of omnibar text ("verb arg1 arg2 ...") and
// returns the intent it maps to. An unknown verb or malformed argument
// is reported as an error rather than silently ignored, since this is
// the same fail-closed contract spec.md §7 requires for invalid
// intents reaching the reducer.
func (d *Dispatcher) Dispatch(line string) (reducer.Payload, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("command: empty input")
	}
	h, ok := d.handlers[fields[0]]
	if !ok {
		return nil, fmt.Errorf("command: unknown verb %q", fields[0])
	}
	return h(fields[1:])
}

func parseNodeID(s string) (graph.NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return graph.NodeID{}, fmt.Errorf("command: invalid node id %q: %w", s, err)
	}
	return graph.NodeID(u), nil
}

func cmdPin(args []string) (reducer.Payload, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("command: usage: pin <node-id>")
	}
	id, err := parseNodeID(args[0])
	if err != nil {
		return nil, err
	}
	return reducer.PinNodeIntent{ID: id}, nil
}

func cmdUnpin(args []string) (reducer.Payload, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("command: usage: unpin <node-id>")
	}
	id, err := parseNodeID(args[0])
	if err != nil {
		return nil, err
	}
	return reducer.UnpinNodeIntent{ID: id}, nil
}

func cmdTag(args []string) (reducer.Payload, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("command: usage: tag <node-id> <tag>")
	}
	id, err := parseNodeID(args[0])
	if err != nil {
		return nil, err
	}
	return reducer.TagNodeIntent{ID: id, Tag: args[1]}, nil
}

func cmdUntag(args []string) (reducer.Payload, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("command: usage: untag <node-id> <tag>")
	}
	id, err := parseNodeID(args[0])
	if err != nil {
		return nil, err
	}
	return reducer.UntagNodeIntent{ID: id, Tag: args[1]}, nil
}

func cmdLink(args []string) (reducer.Payload, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("command: usage: link <node-id-a> <node-id-b>")
	}
	a, err := parseNodeID(args[0])
	if err != nil {
		return nil, err
	}
	b, err := parseNodeID(args[1])
	if err != nil {
		return nil, err
	}
	return reducer.AssertEdgeIntent{A: a, B: b}, nil
}

func cmdUnlink(args []string) (reducer.Payload, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("command: usage: unlink <node-id-a> <node-id-b>")
	}
	a, err := parseNodeID(args[0])
	if err != nil {
		return nil, err
	}
	b, err := parseNodeID(args[1])
	if err != nil {
		return nil, err
	}
	return reducer.RetractEdgeIntent{A: a, B: b}, nil
}

func cmdSplit(args []string) (reducer.Payload, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("command: usage: split <pane-id> <horizontal|vertical|tabs|grid>")
	}
	switch args[1] {
	case "horizontal", "vertical", "tabs", "grid":
	default:
		return nil, fmt.Errorf("command: split: unknown orientation %q", args[1])
	}
	return reducer.SplitPaneIntent{PaneID: args[0], Direction: args[1]}, nil
}

func cmdClose(args []string) (reducer.Payload, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("command: usage: close <pane-id>")
	}
	return reducer.ClosePaneIntent{PaneID: args[0]}, nil
}

func cmdClearGraph(args []string) (reducer.Payload, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("command: usage: clear-graph")
	}
	return reducer.ClearGraphIntent{}, nil
}
