// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import "errors"

var (
	// ErrStoreClosed is returned when operations are called on a closed store.
	ErrStoreClosed = errors.New("store: closed")

	// ErrReadOnly is returned when a mutation is attempted while the store
	// has degraded to read-only mode (spec.md §4.2 Failure semantics).
	ErrReadOnly = errors.New("store: read-only, mutations rejected")

	// ErrCorrupted marks a payload that failed decryption/authentication
	// or CRC-equivalent validation; callers skip the entry and continue
	// (spec.md §7 "Cryptographic failure").
	ErrCorrupted = errors.New("store: payload corrupted or tampered")

	// ErrSequenceGap is surfaced (not fatal) when journal keys have a
	// missing sequence number (spec.md §4.2 "Sequence-gap detection").
	ErrSequenceGap = errors.New("store: journal sequence gap detected")

	ErrKeyUnavailable  = errors.New("store: encryption key unavailable")
	ErrNilContext      = errors.New("store: context must not be nil")
	ErrNoSnapshot      = errors.New("store: no snapshot present")
	ErrNamedNotFound   = errors.New("store: named snapshot not found")
	ErrInvalidMagic    = errors.New("store: payload magic mismatch (legacy or foreign format)")
	ErrEmptyPayload    = errors.New("store: payload too short to contain nonce")
)
