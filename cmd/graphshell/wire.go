// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/mark-ik/graphshell-sub001/internal/config"
	"github.com/mark-ik/graphshell-sub001/internal/control"
	"github.com/mark-ik/graphshell-sub001/internal/diagnostics"
	"github.com/mark-ik/graphshell-sub001/internal/graph"
	"github.com/mark-ik/graphshell-sub001/internal/logging"
	"github.com/mark-ik/graphshell-sub001/internal/reconcile"
	"github.com/mark-ik/graphshell-sub001/internal/reducer"
	"github.com/mark-ik/graphshell-sub001/internal/store"
	"github.com/mark-ik/graphshell-sub001/internal/workbench"
)

// plaintextViewer is the always-succeeds fallback viewer step 5 of
// spec.md §4.5's selection chain requires ("always succeeds"). A real
// web-engine viewer is an external collaborator per spec.md §1
// Non-goals; this is the minimal concrete Viewer that lets the control
// core boot and exercise the full reconcile/viewer-selection path
// standalone.
type plaintextViewer struct{}

func (plaintextViewer) Name() string                                    { return "plaintext" }
func (plaintextViewer) Priority() int                                   { return -1 }
func (plaintextViewer) CanRender(string, graph.AddressKind) bool        { return true }
func (plaintextViewer) Open(n *graph.Node) (reconcile.Instance, error) { return plaintextInstance{}, nil }

type plaintextInstance struct{}

func (plaintextInstance) Close() error { return nil }

// noopSolver reports zero velocity and never moves a node, standing in
// for the physics layout solver spec.md §1 Non-goals excludes ("only its
// scheduling contract appears here"). Wiring it means Scheduler's
// auto-pause/reheat bookkeeping is exercised end to end even with no
// real layout engine attached.
type noopSolver struct{}

func (noopSolver) Tick(map[graph.NodeID]graph.Point, float64) float64 { return 0 }

// core bundles every constructed component cmd subcommands need.
type core struct {
	cfg   config.Config
	log   *logging.Logger
	diag  *diagnostics.Registry
	tel   *diagnostics.Telemetry
	ws    *reducer.Workspace
	red   *reducer.Reducer
	store *store.Store
	panel *control.ControlPanel
	rc    *reconcile.Reconciler
	sched *reconcile.Scheduler
}

// buildCore wires every SPEC_FULL.md control-core component from cfg,
// grounded on cmd/aleutian/main.go's PersistentPreRun config-then-build
// sequence (load config, then construct the services it describes).
func buildCore(cfg config.Config) (*core, error) {
	logger := logging.New(logging.Config{
		Level:     parseLevel(cfg.Logging.Level),
		LogDir:    cfg.Logging.LogDir,
		Component: "graphshell",
		JSON:      cfg.Logging.JSON,
		Quiet:     cfg.Logging.Quiet,
	})

	diag := diagnostics.NewRegistry()
	tel, err := diagnostics.NewTelemetry(diagnostics.TelemetryConfig{ServiceName: "graphshell"})
	if err != nil {
		return nil, err
	}

	ws := reducer.NewWorkspace()
	red := reducer.New(diag.ReducerDiag())

	storeCfg := store.Config{
		DataDir:              expandPath(cfg.Store.DataDir),
		InMemory:             cfg.Store.InMemory,
		AllowDegradedKey:     cfg.Store.AllowDegradedKey,
		SkipCorruptedEntries: cfg.Store.SkipCorruptedEntries,
		Logger:               logger.Slog(),
		Diag:                 diag.StoreDiag(),
	}
	if !cfg.Store.InMemory {
		storeCfg.Keychain = &store.FileKeychain{Path: filepath.Join(expandPath(cfg.Store.DataDir), ".keychain")}
	}
	st, err := store.Open(storeCfg)
	if err != nil {
		return nil, err
	}

	registry := reconcile.NewViewerRegistry(plaintextViewer{}, plaintextViewer{})
	policy := reconcile.Policy{
		ActiveCap:                    cfg.Reconcile.ActiveCap,
		WarmCap:                      cfg.Reconcile.WarmCap,
		MemoryPressureThresholdBytes: cfg.Reconcile.MemoryPressureThresholdBytes,
		HotTierHorizon:               cfg.Reconcile.HotTierHorizon,
		AutoPauseTicks:               cfg.Reconcile.AutoPauseTicks,
		AutoPauseVelocity:            cfg.Reconcile.AutoPauseVelocity,
	}
	rc := reconcile.New(registry, policy, diag.ReconcileDiag())
	sched := reconcile.NewScheduler(noopSolver{}, policy)

	panel := control.New(control.Config{
		Capacity: cfg.Control.Capacity,
		Logger:   logger.Slog(),
		Diag:     diag.ControlDiag(),
	})
	mon := control.NewMemoryMonitor(rc)
	if policy.MemoryPressureThresholdBytes > 0 {
		mon.ThresholdBytes = policy.MemoryPressureThresholdBytes
	}
	panel.Spawn(mon)
	if dir := expandPath(cfg.Control.ModsDir); dir != "" {
		if err := os.MkdirAll(dir, 0750); err == nil {
			panel.Spawn(&control.ModLifecycle{Dir: dir})
		}
	}

	return &core{
		cfg: cfg, log: logger, diag: diag, tel: tel,
		ws: ws, red: red, store: st, panel: panel, rc: rc, sched: sched,
	}, nil
}

func (c *core) close() {
	c.panel.Shutdown()
	c.store.Close()
	c.log.Close()
	if c.tel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.tel.Shutdown(ctx)
	}
}

func (c *core) workbenchModel() *workbench.Model {
	cfg := workbench.Config{
		Workspace: c.ws,
		Reducer:   c.red,
		Store:     c.store,
		Panel:     c.panel,
		Reconcile: c.rc,
		Scheduler: c.sched,
		Diag:      c.diag.WorkbenchDiag(),
	}
	if c.tel != nil {
		cfg.Tracer = c.tel.Tracer
	}
	return workbench.New(cfg)
}

func parseLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

// expandPath resolves a leading "~" the same way internal/logging's
// openLogFile does, so config.StoreConfig.DataDir and
// config.LoggingConfig.LogDir share one expansion rule.
func expandPath(p string) string {
	if len(p) == 0 || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[1:])
}
