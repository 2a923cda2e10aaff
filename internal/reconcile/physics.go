// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reconcile

import "github.com/mark-ik/graphshell-sub001/internal/graph"

// Solver is the scheduling contract the physics layout solver must
// satisfy (spec.md §1 Non-goals: "the physics layout solver
// implementation (only its scheduling contract appears here)"). Tick
// advances positions by one frame and reports the maximum node velocity
// observed, used by Scheduler's auto-pause policy. Positions for
// tombstoned nodes must never be mutated (Invariant 10, "tombstone nodes
// are excluded from physics forces").
type Solver interface {
	Tick(nodes map[graph.NodeID]graph.Point, dt float64) (maxVelocity float64)
}

// Scheduler drives one Solver — either the global Canonical-view solver
// or a Divergent view's private one (spec.md §4.5 "Physics scheduling":
// "one global solver ticks once per frame ... each Divergent view owns a
// local solver that ticks independently"). Both auto-pause when the
// maximum observed velocity stays under a threshold for N consecutive
// ticks, and wake on topology change or an explicit reheat request.
type Scheduler struct {
	solver Solver

	paused        bool
	belowCount    int
	pauseAfter    int
	velocityFloor float64
}

// NewScheduler returns a Scheduler for solver, using policy's auto-pause
// knobs.
func NewScheduler(solver Solver, policy Policy) *Scheduler {
	pauseAfter := policy.AutoPauseTicks
	if pauseAfter <= 0 {
		pauseAfter = 20
	}
	return &Scheduler{solver: solver, pauseAfter: pauseAfter, velocityFloor: policy.AutoPauseVelocity}
}

// Reheat forces the scheduler to resume ticking for at least one more
// frame, regardless of recent velocity (spec.md "wake is driven by
// topology changes or explicit reheat intents").
func (s *Scheduler) Reheat() {
	s.paused = false
	s.belowCount = 0
}

// Paused reports whether the solver is currently auto-paused.
func (s *Scheduler) Paused() bool { return s.paused }

// Tick advances the solver by dt unless paused, and updates the
// auto-pause counter from the observed velocity.
func (s *Scheduler) Tick(nodes map[graph.NodeID]graph.Point, dt float64) {
	if s.paused {
		return
	}
	maxV := s.solver.Tick(nodes, dt)
	if maxV < s.velocityFloor {
		s.belowCount++
		if s.belowCount >= s.pauseAfter {
			s.paused = true
		}
	} else {
		s.belowCount = 0
	}
}
