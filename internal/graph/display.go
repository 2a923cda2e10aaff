// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "math"

// DisplayDirection is the arrow direction the display layer should render
// for a dedup'd visual edge (spec.md §4.1 "Display-layer deduplication").
type DisplayDirection int

const (
	DisplayBidirectional DisplayDirection = iota
	DisplayForward                        // dominant A -> B
	DisplayReverse                        // dominant B -> A
	DisplayUndirected                     // user-asserted, zero traversals
)

// DominanceThreshold and Hysteresis implement spec.md §4.1: "dominant"
// when one direction holds more than 60% of traversals, with a ±10%
// hysteresis band against the last committed direction.
const (
	DominanceThreshold = 0.60
	Hysteresis         = 0.10
)

// DefaultStrokeWidthK is the default k for StrokeWidth, which computes
// "1 + log(1 + total) * k capped at a configured maximum"; k and the cap
// are StrokeWidth parameters so callers (the view config) can tune them.
const DefaultStrokeWidthK = 1.0

// StrokeWidth returns the display stroke width for an edge with the given
// total traversal count, capped at maxWidth.
func StrokeWidth(totalTraversals int64, k, maxWidth float64) float64 {
	w := 1 + math.Log(1+float64(totalTraversals))*k
	if w > maxWidth {
		return maxWidth
	}
	return w
}

// ResolveDisplayDirection computes the dominant direction for an edge,
// given the last committed direction (for hysteresis) relative to the
// (from=A, to=B) convention.
func ResolveDisplayDirection(e *Edge, lastCommitted DisplayDirection) DisplayDirection {
	if e.TotalTraversalCount() == 0 {
		if e.UserAsserted {
			return DisplayUndirected
		}
		return DisplayBidirectional
	}

	fwd := float64(len(e.TraversalsAB)) + float64(e.ArchivedCountAB)
	rev := float64(len(e.TraversalsBA)) + float64(e.ArchivedCountBA)
	total := fwd + rev
	if total == 0 {
		return DisplayBidirectional
	}
	fwdShare := fwd / total
	revShare := rev / total

	threshold := DominanceThreshold
	// Apply hysteresis: the last committed direction is kept while its
	// share stays above threshold-band; any other direction needs a share
	// above threshold.
	switch lastCommitted {
	case DisplayForward:
		if fwdShare > threshold-Hysteresis {
			return DisplayForward
		}
	case DisplayReverse:
		if revShare > threshold-Hysteresis {
			return DisplayReverse
		}
	}

	if fwdShare > threshold {
		return DisplayForward
	}
	if revShare > threshold {
		return DisplayReverse
	}
	return DisplayBidirectional
}
