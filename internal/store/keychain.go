// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/hkdf"
)

// masterKeySize is the size in bytes of the master secret loaded from the
// OS keychain; the per-payload AES-256 key is derived from it via HKDF so
// the keychain-held secret is never used directly as an AEAD key.
const masterKeySize = 32

// aesKeySize is the AES-256-GCM key size (spec.md §4.2 "Encoding pipeline").
const aesKeySize = 32

// Keychain loads and persists the master secret backing encryption at
// rest. It is the one narrow interface between internal/store and the
// platform keychain, which is an external collaborator per spec.md §1
// ("the cryptographic primitives themselves" are out of scope) — this
// type owns provenance (load-or-generate), not the primitives.
type Keychain interface {
	// Load returns the stored master secret, or (nil, nil) if none exists
	// yet.
	Load() ([]byte, error)
	// Save persists a freshly generated master secret.
	Save(secret []byte) error
}

// MemKeychain is an in-process Keychain, used for tests and for the
// in-memory store mode; it never touches a real OS keychain.
type MemKeychain struct {
	secret []byte
}

func (k *MemKeychain) Load() ([]byte, error) {
	if k.secret == nil {
		return nil, nil
	}
	cp := make([]byte, len(k.secret))
	copy(cp, k.secret)
	return cp, nil
}

func (k *MemKeychain) Save(secret []byte) error {
	k.secret = append([]byte(nil), secret...)
	return nil
}

// keyring wraps the loaded master secret in memguard's mlocked buffer
// (spec.md §4.2 "Key provenance... never written to logs or diagnostics",
// grounded on services/orchestrator/handlers/secure_accumulator.go's use
// of memguard for sensitive in-process buffers) and derives the AES-GCM
// key on demand so the raw secret spends minimal time as a plain []byte.
type keyring struct {
	enclave *memguard.Enclave
}

// openKeyring loads the master secret from kc, generating and persisting
// a fresh one if absent (spec.md §4.2 "if absent on first run, a fresh
// key is generated and stored"). If kc is unavailable, it returns
// ErrKeyUnavailable so the caller can enter read-only mode (spec.md §4.2
// "Key unavailable on open -> store enters read-only mode").
func openKeyring(kc Keychain) (*keyring, error) {
	secret, err := kc.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
	}
	if secret == nil {
		secret = make([]byte, masterKeySize)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate master secret: %w", err)
		}
		if err := kc.Save(secret); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
		}
	}
	buf := memguard.NewBufferFromBytes(secret)
	for i := range secret {
		secret[i] = 0
	}
	return &keyring{enclave: buf.Seal()}, nil
}

// aesKey derives the 32-byte AES-256-GCM key from the enclaved master
// secret. The LockedBuffer opened from the enclave is destroyed before
// aesKey returns; only the derived key is handed back.
func (k *keyring) aesKey() ([]byte, error) {
	buf, err := k.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open enclave: %w", ErrKeyUnavailable, err)
	}
	defer buf.Destroy()

	hk := hkdf.New(sha256.New, buf.Bytes(), nil, []byte("graphshell/store/aes-gcm"))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, fmt.Errorf("derive aes key: %w", err)
	}
	return key, nil
}

// close drops this keyring's reference to its enclave; the enclave itself
// remains guarded by memguard until process exit or an explicit
// memguard.Purge (reserved for process-wide shutdown, not per-store close).
func (k *keyring) close() {
	k.enclave = nil
}
