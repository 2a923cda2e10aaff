// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package reconcile

// Severity and Diag mirror internal/store's, internal/reducer's and
// internal/control's narrow diagnostic emitter shape; internal/diagnostics
// Registry satisfies each of them through its own adapter (ReconcileDiag
// here, see internal/diagnostics/adapters.go) so no leaf package imports
// another leaf package just for this interface.
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

type Diag interface {
	Emit(channel string, sev Severity, msg string, fields map[string]any)
}

type noopDiag struct{}

func (noopDiag) Emit(string, Severity, string, map[string]any) {}
