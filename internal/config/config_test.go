// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsMissingDataDirWhenNotInMemory(t *testing.T) {
	cfg := Default()
	cfg.Store.DataDir = ""
	cfg.Store.InMemory = false
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsWarmCapBelowActiveCap(t *testing.T) {
	cfg := Default()
	cfg.Reconcile.ActiveCap = 10
	cfg.Reconcile.WarmCap = 2
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphshell.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultReconcileConfig(), cfg.Reconcile)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, 1, onDisk.Meta.Version)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphshell.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  data_dir: /tmp/original\n"), 0640))

	t.Setenv("GRAPHSHELL_DATA_DIR", "/tmp/overridden")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/overridden", cfg.Store.DataDir)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphshell.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reconcile:\n  active_cap: 0\n"), 0640))

	_, err := Load(path)
	assert.Error(t, err)
}
