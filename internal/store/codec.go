// Copyright (C) 2026 graphshell contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// nonceSize is the AES-GCM standard 96-bit nonce (spec.md §4.2).
const nonceSize = 12

// formatMagic identifies an encrypted-at-rest payload written by this
// codec version; legacy payloads lacking it are decoded as plaintext
// (spec.md §4.2 "Legacy compatibility").
var formatMagic = [8]byte{'g', 's', 'h', 'v', 0, 0, 0, 1}

// encodePayload implements spec.md §4.2's write path: value -> zero-copy
// structural serialization (gob, standing in for the rkyv-like codec the
// spec names as an external primitive) -> zstd compress -> AES-256-GCM
// authenticated-encrypt with a fresh random nonce -> magic+nonce prefix.
func encodePayload(kr *keyring, value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, fmt.Errorf("gob encode: %w", err)
	}

	compressed, err := zstdCompress(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("zstd compress: %w", err)
	}

	key, err := kr.aesKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, compressed, nil)

	out := make([]byte, 0, len(formatMagic)+nonceSize+len(ciphertext))
	out = append(out, formatMagic[:]...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// decodePayload reverses encodePayload. If data lacks the format magic,
// it is treated as a legacy plaintext gob payload (spec.md §4.2). A
// decryption or authentication failure returns ErrCorrupted, never
// silently treated as empty (spec.md §7).
func decodePayload(kr *keyring, data []byte, out any) (legacy bool, err error) {
	if len(data) < len(formatMagic) || !bytes.Equal(data[:len(formatMagic)], formatMagic[:]) {
		if decErr := gob.NewDecoder(bytes.NewReader(data)).Decode(out); decErr != nil {
			return false, fmt.Errorf("%w: legacy decode: %w", ErrCorrupted, decErr)
		}
		return true, nil
	}

	rest := data[len(formatMagic):]
	if len(rest) < nonceSize {
		return false, ErrEmptyPayload
	}
	nonce, ciphertext := rest[:nonceSize], rest[nonceSize:]

	key, err := kr.aesKey()
	if err != nil {
		return false, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return false, fmt.Errorf("aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return false, fmt.Errorf("gcm: %w", err)
	}

	compressed, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrCorrupted, err)
	}

	plain, err := zstdDecompress(compressed)
	if err != nil {
		return false, fmt.Errorf("%w: zstd: %w", ErrCorrupted, err)
	}

	if err := gob.NewDecoder(bytes.NewReader(plain)).Decode(out); err != nil {
		return false, fmt.Errorf("%w: gob decode: %w", ErrCorrupted, err)
	}
	return false, nil
}

// hasFormatMagic reports whether data begins with the current codec's
// magic, used by the legacy-migration pass on open.
func hasFormatMagic(data []byte) bool {
	return len(data) >= len(formatMagic) && bytes.Equal(data[:len(formatMagic)], formatMagic[:])
}

func zstdCompress(in []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	return enc.EncodeAll(in, nil), nil
}

func zstdDecompress(in []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(in, nil)
}

func binaryUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
