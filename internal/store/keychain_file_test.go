// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeychainLoadReturnsNilBeforeFirstSave(t *testing.T) {
	k := &FileKeychain{Path: filepath.Join(t.TempDir(), "nested", "secret")}
	secret, err := k.Load()
	require.NoError(t, err)
	assert.Nil(t, secret)
}

func TestFileKeychainRoundTrips(t *testing.T) {
	k := &FileKeychain{Path: filepath.Join(t.TempDir(), "nested", "secret")}
	require.NoError(t, k.Save([]byte("shh")))

	got, err := k.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte("shh"), got)
}
