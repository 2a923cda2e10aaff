// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reconcile

import "time"

// Policy enumerates the reconciler's recognized configuration knobs
// (spec.md §9 "Config objects: for lifecycle policy: active_cap,
// warm_cap, memory_pressure_threshold, hot_tier_horizon_days").
type Policy struct {
	// ActiveCap bounds concurrent Active nodes (spec.md §4.5 "Active
	// budget").
	ActiveCap int
	// WarmCap bounds concurrent Warm nodes ("Warm budget").
	WarmCap int
	// MemoryPressureThresholdBytes is used by internal/control's memory
	// monitor (cmd/graphshell copies it into MemoryMonitor.ThresholdBytes),
	// not by this package directly, but is recorded here so a single
	// Config tree owns every lifecycle-policy knob.
	MemoryPressureThresholdBytes uint64
	// HotTierHorizon is the traversal age past which archiving moves
	// records to the cold tier at snapshot time (spec.md §4.1
	// "Archiving"); default 90 days.
	HotTierHorizon time.Duration
	// AutoPauseTicks is how many consecutive below-threshold physics
	// ticks before a solver auto-pauses (spec.md §4.5 "Physics
	// scheduling").
	AutoPauseTicks int
	// AutoPauseVelocity is the per-tick max-node-velocity threshold.
	AutoPauseVelocity float64
}

// DefaultPolicy returns spec-sensible defaults.
func DefaultPolicy() Policy {
	return Policy{
		ActiveCap:                    6,
		WarmCap:                      24,
		MemoryPressureThresholdBytes: 512 * 1024 * 1024,
		HotTierHorizon:               90 * 24 * time.Hour,
		AutoPauseTicks:               20,
		AutoPauseVelocity:            0.05,
	}
}
