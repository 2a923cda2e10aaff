// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import "errors"

// Structural invariant violations are logic errors (spec.md §4.1): the
// mutation API returns one of these and the reducer drops the offending
// intent with a diagnostic rather than panicking or partially applying.
var (
	ErrSelfEdge         = errors.New("graph: self-edges are forbidden for user-asserted edges")
	ErrSelfLoop         = errors.New("graph: self-loop traversal skipped")
	ErrUnknownNode      = errors.New("graph: unknown node id")
	ErrUnknownAddress   = errors.New("graph: address does not resolve to a node")
	ErrNotTombstone     = errors.New("graph: node is not in tombstone state")
	ErrAlreadyTombstone = errors.New("graph: node is already a tombstone")
	ErrDuplicateAddress = errors.New("graph: address already bound to another node")
	ErrInternalAddress  = errors.New("graph: internal addresses never traverse")
)
