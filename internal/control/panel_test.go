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
	"testing"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWorker struct {
	name string
	run  func(ctx context.Context, send *Sender)
}

func (f *fakeWorker) Name() string { return f.name }
func (f *fakeWorker) Run(ctx context.Context, send *Sender) {
	f.run(ctx, send)
}

func TestTryDrainReturnsQueuedIntentsUpToMax(t *testing.T) {
	p := New(Config{Capacity: 8})
	sender := &Sender{panel: p, worker: "test"}

	for i := 0; i < 5; i++ {
		ok := sender.TrySend(reducer.QueuedIntent{Payload: reducer.ClearGraphIntent{}})
		require.True(t, ok)
	}

	batch := p.TryDrain(3)
	assert.Len(t, batch, 3)

	rest := p.TryDrain(0)
	assert.Len(t, rest, 2)

	assert.Empty(t, p.TryDrain(10))
}

func TestTrySendDropsOnFullChannelWithDiagnostic(t *testing.T) {
	diag := &recordingDiag{}
	p := New(Config{Capacity: 1, Diag: diag})
	sender := &Sender{panel: p, worker: "test"}

	assert.True(t, sender.TrySend(reducer.QueuedIntent{Payload: reducer.ClearGraphIntent{}}))
	assert.False(t, sender.TrySend(reducer.QueuedIntent{Payload: reducer.ClearGraphIntent{}}))
	assert.NotEmpty(t, diag.events)
}

func TestSpawnAndShutdownWaitsForWorkerExit(t *testing.T) {
	p := New(Config{})
	exited := make(chan struct{})

	p.Spawn(&fakeWorker{name: "w1", run: func(ctx context.Context, send *Sender) {
		<-ctx.Done()
		close(exited)
	}})

	p.Shutdown()

	select {
	case <-exited:
	default:
		t.Fatal("worker did not exit before Shutdown returned")
	}
}

func TestMemoryMonitorEmitsDemoteUnderPressure(t *testing.T) {
	id := graph.NewNodeID()
	mon := &MemoryMonitor{
		LRU:            fakeLRU{id: id, ok: true},
		Interval:       5 * time.Millisecond,
		ThresholdBytes: 1,
		memStatsFn:     func(s *runtime.MemStats) { s.Alloc = 2 },
	}

	p := New(Config{})
	p.Spawn(mon)

	var batch []reducer.QueuedIntent
	deadline := time.After(2 * time.Second)
	for len(batch) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for demote intent")
		default:
			batch = p.TryDrain(0)
			if len(batch) == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}
	p.Shutdown()

	require.Len(t, batch, 1)
	demote, ok := batch[0].Payload.(reducer.DemoteNodeToColdIntent)
	require.True(t, ok)
	assert.Equal(t, id, demote.ID)
}

type fakeLRU struct {
	id graph.NodeID
	ok bool
}

func (f fakeLRU) LeastRecentlyActiveNode() (graph.NodeID, bool) { return f.id, f.ok }

type recordingDiag struct {
	events []string
}

func (r *recordingDiag) Emit(channel string, sev Severity, msg string, fields map[string]any) {
	r.events = append(r.events, msg)
}
