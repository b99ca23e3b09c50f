// Package keys derives the master key from a password and optional keyfile
// content, and stretches it into a per-container encryption key.
package keys

import (
	"crypto/sha256"
	"runtime"
	"strings"

	"github.com/tink-crypto/tink-go/v2/subtle/random"
	"golang.org/x/crypto/argon2"

	apperrors "securevault/internal/errors"
)

const (
	// Argon2id fixed parameters. Changing any of them breaks every existing
	// container.
	Argon2Time    = 3
	Argon2Memory  = 64 * 1024 // in KB
	Argon2Threads = 4
	KeyLen        = 32 // 256 bits for AES-256

	SaltLen  = 32
	NonceLen = 12
)

// DeriveMasterKey hashes the password, mixed with the SHA-256 of the keyfile
// content when one is given. Only the keyfile bytes matter, never its name.
func DeriveMasterKey(password string, keyfile []byte) ([]byte, error) {
	if strings.TrimSpace(password) == "" {
		return nil, apperrors.NewInvalidInputError("password", "password is required")
	}

	passwordBytes := []byte(password)
	defer Zero(passwordBytes)

	var material []byte
	if len(keyfile) > 0 {
		keyfileHash := sha256.Sum256(keyfile)
		material = make([]byte, 0, len(passwordBytes)+1+len(keyfileHash))
		material = append(material, passwordBytes...)
		material = append(material, 0x00)
		material = append(material, keyfileHash[:]...)
		Zero(keyfileHash[:])
	} else {
		material = append([]byte(nil), passwordBytes...)
	}
	defer Zero(material)

	sum := sha256.Sum256(material)
	master := append([]byte(nil), sum[:]...)
	Zero(sum[:])
	return master, nil
}

// DeriveEncryptionKey stretches masterKey with the container salt using Argon2id
func DeriveEncryptionKey(masterKey, salt []byte) []byte {
	return argon2.IDKey(masterKey, salt, Argon2Time, Argon2Memory, Argon2Threads, KeyLen)
}

// NewSalt returns fresh random salt for one container
func NewSalt() []byte {
	return random.GetRandomBytes(SaltLen)
}

// NewNonce returns a fresh random AES-GCM nonce for one container
func NewNonce() []byte {
	return random.GetRandomBytes(NonceLen)
}

// Zero overwrites byte slices with zeros
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		for i := range b {
			b[i] = 0
		}
		runtime.KeepAlive(b)
	}
}
