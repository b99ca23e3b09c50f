package aead

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte   { return bytes.Repeat([]byte{0x42}, KeySize) }
func testNonce() []byte { return bytes.Repeat([]byte{0x24}, NonceSize) }

func TestSealOpen(t *testing.T) {
	plaintext := []byte("attack at dawn")
	aad := []byte("header")

	ct, tag, err := Seal(testKey(), testNonce(), plaintext, aad)
	require.NoError(t, err)
	assert.Len(t, ct, len(plaintext))
	assert.Len(t, tag, TagSize)
	assert.NotEqual(t, plaintext, ct)

	got, err := Open(testKey(), testNonce(), ct, tag, aad)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestSealOpen_Empty(t *testing.T) {
	ct, tag, err := Seal(testKey(), testNonce(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, ct)

	got, err := Open(testKey(), testNonce(), ct, tag, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_Failures(t *testing.T) {
	plaintext := []byte("payload")
	aad := []byte("aad")
	ct, tag, err := Seal(testKey(), testNonce(), plaintext, aad)
	require.NoError(t, err)

	flip := func(b []byte) []byte {
		c := bytes.Clone(b)
		c[0] ^= 0x01
		return c
	}
	otherKey := bytes.Repeat([]byte{0x43}, KeySize)

	tests := []struct {
		name         string
		key, nonce   []byte
		ct, tag, aad []byte
	}{
		{"wrong key", otherKey, testNonce(), ct, tag, aad},
		{"tampered nonce", testKey(), flip(testNonce()), ct, tag, aad},
		{"tampered ciphertext", testKey(), testNonce(), flip(ct), tag, aad},
		{"tampered tag", testKey(), testNonce(), ct, flip(tag), aad},
		{"tampered aad", testKey(), testNonce(), ct, tag, flip(aad)},
		{"missing aad", testKey(), testNonce(), ct, tag, nil},
		{"short tag", testKey(), testNonce(), ct, tag[:4], aad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.key, tt.nonce, tt.ct, tt.tag, tt.aad)
			assert.ErrorIs(t, err, ErrAuthFailed)
		})
	}
}

func TestSeal_BadKey(t *testing.T) {
	_, _, err := Seal([]byte("short"), testNonce(), []byte("x"), nil)
	assert.Error(t, err)
}
