// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config defines the on-disk settings tree for a graphshell
// instance: one root struct nesting a per-subsystem struct for each of
// internal/store, internal/control, internal/reconcile, internal/logging
// and internal/diagnostics (SPEC_FULL.md §2.1's ambient-stack section).
// Grounded on cmd/aleutian/config/types.go's shape (root struct, nested
// per-subsystem structs, yaml tags, Default*() constructors) and
// loader.go's singleton-load-with-first-run-default pattern; none of the
// teacher's Podman/Ollama/Vault business content applies to this domain
// and none of it is carried over.
package config

import "time"

// StoreConfig configures internal/store (spec.md §4.2).
type StoreConfig struct {
	// DataDir holds the append-only mutation log and snapshots. Supports
	// a leading "~".
	DataDir string `yaml:"data_dir"`
	// InMemory skips disk entirely; used by tests and "scratch" runs.
	InMemory bool `yaml:"in_memory"`
	// AllowDegradedKey permits opening a store whose keyring entry cannot
	// be loaded: the store opens in read-only mode, rejecting every
	// mutation, rather than refusing to start (spec.md §4.2 "Degraded
	// mode").
	AllowDegradedKey bool `yaml:"allow_degraded_key"`
	// SkipCorruptedEntries recovers past a torn write in the mutation
	// log instead of refusing to open (spec.md §4.2 "Recovery").
	SkipCorruptedEntries bool `yaml:"skip_corrupted_entries"`
}

// DefaultStoreConfig returns the settings a fresh local install should
// boot with: on-disk storage under the user's graphshell directory, a
// verified keyring, and strict (non-skipping) recovery.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DataDir:              "~/.graphshell/store",
		InMemory:             false,
		AllowDegradedKey:     false,
		SkipCorruptedEntries: false,
	}
}

// ControlConfig configures internal/control's worker panel (spec.md
// §4.4).
type ControlConfig struct {
	// Capacity bounds the control panel's intent channel. Zero uses
	// internal/control's own DefaultCapacity.
	Capacity int `yaml:"capacity"`
	// FileWatchDebounce is loaded and saved with the config but is not
	// read by any component; filesystem events are not debounced.
	FileWatchDebounce time.Duration `yaml:"file_watch_debounce"`
	// ModsDir, if set, is watched by the mod-lifecycle worker (spec.md
	// §4.4 "Mod lifecycle"). Empty disables that worker.
	ModsDir string `yaml:"mods_dir"`
}

// DefaultControlConfig returns worker-panel defaults tuned for an
// interactive desktop session.
func DefaultControlConfig() ControlConfig {
	return ControlConfig{
		Capacity:          256,
		FileWatchDebounce: 150 * time.Millisecond,
		ModsDir:           "~/.graphshell/mods",
	}
}

// ReconcileConfig configures internal/reconcile's lifecycle policy
// (spec.md §4.5). Field names mirror reconcile.Policy directly so
// cmd/graphshell's buildCore can copy one into the other field by field.
type ReconcileConfig struct {
	ActiveCap                    int           `yaml:"active_cap"`
	WarmCap                      int           `yaml:"warm_cap"`
	MemoryPressureThresholdBytes uint64        `yaml:"memory_pressure_threshold_bytes"`
	HotTierHorizon               time.Duration `yaml:"hot_tier_horizon"`
	AutoPauseTicks               int           `yaml:"auto_pause_ticks"`
	AutoPauseVelocity            float64       `yaml:"auto_pause_velocity"`
}

// DefaultReconcileConfig returns the same caps internal/reconcile ships
// as its own DefaultPolicy, duplicated here so a config file that omits
// this section still round-trips to sensible values.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		ActiveCap:                    6,
		WarmCap:                      24,
		MemoryPressureThresholdBytes: 512 * 1024 * 1024,
		HotTierHorizon:               90 * 24 * time.Hour,
		AutoPauseTicks:               20,
		AutoPauseVelocity:            0.05,
	}
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// LogDir, if set, additionally writes JSON records to disk.
	LogDir string `yaml:"log_dir"`
	JSON   bool   `yaml:"json"`
	Quiet  bool   `yaml:"quiet"`
}

// DefaultLoggingConfig returns an info-level, stderr-only text logger
// with no file sink, matching internal/logging.Default's shape.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", LogDir: "", JSON: false, Quiet: false}
}

// DiagnosticsConfig configures internal/diagnostics's in-memory event
// retention (spec.md §4.8, the Open Question resolved in DESIGN.md).
type DiagnosticsConfig struct {
	// Retention is loaded and saved with the config but is not read: a
	// channel's capacity comes from its registered Descriptor.Retention,
	// or diagnostics.DefaultRetention (4096) when that is zero.
	Retention int `yaml:"retention"`
}

// DefaultDiagnosticsConfig returns the zero value.
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{Retention: 0}
}

// Meta carries config-file provenance, mirroring the versioning block
// the teacher's ConfigMeta keeps alongside its subsystem sections, but
// trimmed to what a single-operator local tool actually needs: no
// compliance-audit fields, since graphshell has no multi-tenant or
// regulated-data surface to audit.
type Meta struct {
	Version   int    `yaml:"version"`
	CreatedBy string `yaml:"created_by"`
}

func newMeta() Meta {
	return Meta{Version: 1, CreatedBy: "graphshell"}
}

// Config is the root settings tree for one graphshell instance.
type Config struct {
	Meta        Meta              `yaml:"meta"`
	Store       StoreConfig       `yaml:"store"`
	Control     ControlConfig     `yaml:"control"`
	Reconcile   ReconcileConfig   `yaml:"reconcile"`
	Logging     LoggingConfig     `yaml:"logging"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// Default returns the config a fresh install writes to disk on first
// run (see Load).
func Default() Config {
	return Config{
		Meta:        newMeta(),
		Store:       DefaultStoreConfig(),
		Control:     DefaultControlConfig(),
		Reconcile:   DefaultReconcileConfig(),
		Logging:     DefaultLoggingConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// Validate rejects settings combinations that would make the rest of
// the system misbehave rather than letting them surface as a confusing
// failure three layers down.
func (c Config) Validate() error {
	if !c.Store.InMemory && c.Store.DataDir == "" {
		return errConfig("store.data_dir must be set unless store.in_memory is true")
	}
	if c.Reconcile.ActiveCap <= 0 {
		return errConfig("reconcile.active_cap must be positive")
	}
	if c.Reconcile.WarmCap < c.Reconcile.ActiveCap {
		return errConfig("reconcile.warm_cap must be >= reconcile.active_cap")
	}
	if c.Control.Capacity < 0 {
		return errConfig("control.capacity must not be negative")
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errConfig("logging.level must be one of debug, info, warn, error")
	}
	return nil
}

type configError string

func (e configError) Error() string { return string(e) }

func errConfig(msg string) error { return configError(msg) }
