// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package control

import (
	"context"
	"runtime"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
)

// ActiveNodeLRU is the narrow, thread-safe read the memory monitor needs
// to pick a demotion candidate: the least-recently-active node currently
// holding Active resources. Implementations (internal/reconcile's
// Reconciler) must be safe to call concurrently with the frame loop, since
// this worker runs on its own goroutine (spec.md §4.4 "Workers run on a
// multi-worker task pool").
type ActiveNodeLRU interface {
	LeastRecentlyActiveNode() (graph.NodeID, bool)
}

// MemoryMonitor samples process memory at a fixed interval and, under
// pressure, asks the demotion request be emitted for the LRU Active node
// (spec.md §4.4 "Memory monitor"). Grounded on
// services/trace/cancel/monitor.go's ResourceMonitor.checkLimits, which
// samples runtime.MemStats.Alloc against a configured ceiling the same
// way.
type MemoryMonitor struct {
	LRU            ActiveNodeLRU
	Interval       time.Duration
	ThresholdBytes uint64
	memStatsFn     func(*runtime.MemStats)
}

// NewMemoryMonitor returns a monitor with spec-sensible defaults: a 2s
// sampling interval and a 512MiB threshold.
func NewMemoryMonitor(lru ActiveNodeLRU) *MemoryMonitor {
	return &MemoryMonitor{
		LRU:            lru,
		Interval:       2 * time.Second,
		ThresholdBytes: 512 * 1024 * 1024,
		memStatsFn:     runtime.ReadMemStats,
	}
}

func (m *MemoryMonitor) Name() string { return "memory_monitor" }

func (m *MemoryMonitor) Run(ctx context.Context, send *Sender) {
	statsFn := m.memStatsFn
	if statsFn == nil {
		statsFn = runtime.ReadMemStats
	}
	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var stats runtime.MemStats
			statsFn(&stats)
			if stats.Alloc < m.ThresholdBytes {
				continue
			}
			id, ok := m.LRU.LeastRecentlyActiveNode()
			if !ok {
				continue
			}
			send.TrySend(reducer.QueuedIntent{
				Source:  reducer.SourceMemoryMonitor,
				Payload: reducer.DemoteNodeToColdIntent{ID: id},
			})
		}
	}
}
