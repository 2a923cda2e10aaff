// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"fmt"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
)

// applyMutationToGraph drives a single journaled mutation into g. This is
// the one place outside internal/reducer that mutates graph state; it
// exists only for recovery replay (spec.md §4.2 Recovery algorithm step
// 3), which reconstructs state from the journal rather than from a live
// intent. It is never reachable from a running frame's apply step.
func applyMutationToGraph(g *graph.Graph, entry LogEntry) error {
	now := time.UnixMilli(entry.Timestamp)
	switch p := entry.Payload.(type) {
	case AddNodePayload:
		_, _, err := g.AddNode(p.ID, p.Address, p.AddressKind, p.MimeHint, now)
		return err
	case RemoveNodePayload:
		return g.RemoveNodeSoft(p.ID, now)
	case UpdateNodeAddressPayload:
		return g.UpdateNodeAddress(p.ID, p.Address, now)
	case UpdateNodeTitlePayload:
		return g.UpdateNodeTitle(p.ID, p.Title, now)
	case UpdateNodeMimeHintPayload:
		return g.UpdateNodeMimeHint(p.ID, p.MimeHint, now)
	case PinNodePayload:
		return g.Pin(p.ID, now)
	case UnpinNodePayload:
		return g.Unpin(p.ID, now)
	case AppendTraversalPayload:
		_, err := g.AppendTraversalOnEdge(p.FromAddress, p.ToAddress, p.Trigger, p.Timestamp)
		return err
	case AssertEdgePayload:
		_, err := g.AssertEdge(p.A, p.B)
		return err
	case RetractEdgePayload:
		err := g.RetractEdge(p.A, p.B)
		g.PruneDeadEdges()
		return err
	case TagNodePayload:
		return g.Tag(p.ID, p.Tag, now)
	case UntagNodePayload:
		return g.Untag(p.ID, p.Tag, now)
	case ClearGraphPayload:
		*g = *graph.New()
		return nil
	case MoveTombstonePayload:
		return g.RestoreTombstone(p.ID, p.Address, p.AddressKind, now)
	case PermanentDeletePayload:
		return g.RemoveNodeHard(p.ID)
	case SetPositionPayload:
		return g.SetPosition(p.ID, p.Position)
	default:
		return fmt.Errorf("store: unknown mutation payload %T", entry.Payload)
	}
}
