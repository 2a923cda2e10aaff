// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogsWithoutPanicking(t *testing.T) {
	l := Default()
	l.Info("started", "frame", 1)
	l.Warn("degraded", "reason", "test")
}

func TestNewWithLogDirWritesFile(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Level: LevelInfo, LogDir: dir, Component: "teststore", Quiet: true})
	l.Info("hello")
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, filepath.Base(entries[0].Name()), "teststore_")
}

func TestWithAddsAttributesToChild(t *testing.T) {
	l := Default()
	child := l.With("request_id", "abc")
	child.Info("child log")
	assert.NotNil(t, child.Slog())
}
