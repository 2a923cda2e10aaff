// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package diagnostics

import (
	"github.com/mark-ik/graphshell-sub001/internal/control"
	"github.com/mark-ik/graphshell-sub001/internal/reconcile"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/mark-ik/graphshell-sub001/internal/store"
	"github.com/mark-ik/graphshell-sub001/internal/workbench"
)

// internal/store, internal/reducer, internal/control, internal/reconcile
// and internal/workbench each declare their own narrow Severity/Diag pair
// rather than import this package, keeping them leaves per spec.md §2's
// dependency order. Go requires method parameter types to match exactly
// for interface satisfaction, so *Registry cannot implement all five Diag interfaces
// directly; these thin adapters translate severities (all are the same
// three-valued Info/Warn/Error enum under the hood) and forward to Emit.

// StoreDiag adapts a Registry to internal/store.Diag.
func (r *Registry) StoreDiag() store.Diag { return storeAdapter{r} }

type storeAdapter struct{ r *Registry }

func (a storeAdapter) Emit(channel string, sev store.Severity, msg string, fields map[string]any) {
	a.r.Emit(channel, Severity(sev), msg, fields)
}

// ReducerDiag adapts a Registry to internal/reducer.Diag.
func (r *Registry) ReducerDiag() reducer.Diag { return reducerAdapter{r} }

type reducerAdapter struct{ r *Registry }

func (a reducerAdapter) Emit(channel string, sev reducer.Severity, msg string, fields map[string]any) {
	a.r.Emit(channel, Severity(sev), msg, fields)
}

// ControlDiag adapts a Registry to internal/control.Diag.
func (r *Registry) ControlDiag() control.Diag { return controlAdapter{r} }

type controlAdapter struct{ r *Registry }

func (a controlAdapter) Emit(channel string, sev control.Severity, msg string, fields map[string]any) {
	a.r.Emit(channel, Severity(sev), msg, fields)
}

// ReconcileDiag adapts a Registry to internal/reconcile.Diag.
func (r *Registry) ReconcileDiag() reconcile.Diag { return reconcileAdapter{r} }

type reconcileAdapter struct{ r *Registry }

func (a reconcileAdapter) Emit(channel string, sev reconcile.Severity, msg string, fields map[string]any) {
	a.r.Emit(channel, Severity(sev), msg, fields)
}

// WorkbenchDiag adapts a Registry to internal/workbench.Diag.
func (r *Registry) WorkbenchDiag() workbench.Diag { return workbenchAdapter{r} }

type workbenchAdapter struct{ r *Registry }

func (a workbenchAdapter) Emit(channel string, sev workbench.Severity, msg string, fields map[string]any) {
	a.r.Emit(channel, Severity(sev), msg, fields)
}
