// Package aead seals and opens whole buffers with AES-256-GCM using a
// caller-chosen nonce and a detached authentication tag.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// ErrAuthFailed is returned for every tag mismatch, whatever the cause
var ErrAuthFailed = errors.New("message authentication failed")

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("AES-256 requires a %d-byte key, got %d bytes", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext and returns the ciphertext and tag separately.
// aad may be nil.
func Seal(key, nonce, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	if len(nonce) != NonceSize {
		return nil, nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceSize, len(nonce))
	}

	sealed := gcm.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - TagSize
	return sealed[:split:split], sealed[split:], nil
}

// Open verifies tag over ciphertext and aad and returns the plaintext.
// Any verification failure yields ErrAuthFailed.
func Open(key, nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize || len(tag) != TagSize {
		return nil, ErrAuthFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, aad)
	clear(sealed)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}
