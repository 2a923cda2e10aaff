// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

// Severity mirrors internal/diagnostics.Severity without importing that
// package, keeping internal/store a leaf per spec.md §2's dependency
// order ("leaves first").
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

// Diag is the narrow emitter internal/store needs; internal/diagnostics
// Registry satisfies it through its StoreDiag adapter. A nil Diag is
// valid and simply drops events.
type Diag interface {
	Emit(channel string, sev Severity, msg string, fields map[string]any)
}

type noopDiag struct{}

func (noopDiag) Emit(string, Severity, string, map[string]any) {}
