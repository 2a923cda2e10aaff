// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package control

import (
	"context"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
)

// NeighborLookup is the narrow, thread-safe read the prefetch scheduler
// needs: the outgoing neighbors of a just-visited node, as candidates to
// warm. Same concurrent-access contract as ActiveNodeLRU.
type NeighborLookup interface {
	NeighborsOut(graph.NodeID) []graph.NodeID
}

// PrefetchScheduler subscribes to a channel of recently-visited node IDs
// (the "lifecycle policy watch channel" of spec.md §4.4) and emits
// PromoteNodeToWarm for up to MaxPerVisit of their neighbors (as
// NeighborsOut returns them), on the heuristic that a node's neighbors are
// likely next navigations. The neighbors' current lifecycle state is not
// checked.
type PrefetchScheduler struct {
	Visited   <-chan graph.NodeID
	Neighbors NeighborLookup
	// MaxPerVisit caps how many neighbors are promoted per visited node,
	// so one high-degree node can't flood the channel in a single tick.
	MaxPerVisit int
}

func (p *PrefetchScheduler) Name() string { return "prefetch_scheduler" }

func (p *PrefetchScheduler) Run(ctx context.Context, send *Sender) {
	max := p.MaxPerVisit
	if max <= 0 {
		max = 4
	}
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-p.Visited:
			if !ok {
				return
			}
			neighbors := p.Neighbors.NeighborsOut(id)
			for i, n := range neighbors {
				if i >= max {
					break
				}
				send.TrySend(reducer.QueuedIntent{
					Source:  reducer.SourcePrefetchScheduler,
					Payload: reducer.PromoteNodeToWarmIntent{ID: n},
				})
			}
		}
	}
}
