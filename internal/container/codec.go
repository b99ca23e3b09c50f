// Package container reads and writes SecureVault containers.
//
// A container is a single file:
//
//	v1: "SVLT" 0x01 salt[32] nonce[12] tag[16] u16le nameLen name ciphertext
//	v2: "SVLT" 0x02 flags salt[32] nonce[12] tag[16] u16le nameLen name ciphertext
//	v3: "SVLT" 0x03 salt[32] nonce[12] tag[16] ciphertext
//
// Only v3 is written. Its plaintext is u16le nameLen ‖ name ‖ file bytes and
// its tag also covers "SVLT" ‖ 0x03 ‖ salt ‖ nonce. v1 and v2 are read for
// backward compatibility; their filename is cleartext and sanitized on read.
package container

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"

	"securevault/internal/aead"
	apperrors "securevault/internal/errors"
	"securevault/internal/keys"
	"securevault/internal/pathsafe"
)

// AuthFailureMessage is the only message reported for a failed decryption. It
// must not vary with the cause.
const AuthFailureMessage = `Decryption failed!

Possible causes:

• Incorrect password
• Missing or wrong keyfile (if you used one)
• File corrupted or tampered

Please verify your inputs and try again.`

// FallbackName is used when a decrypted filename sanitizes to nothing
const FallbackName = "decrypted"

// Payload is a decrypted container
type Payload struct {
	Version Version
	Name    string
	Data    []byte
}

// Wipe zeroes the decrypted bytes
func (p *Payload) Wipe() {
	if p != nil {
		keys.Zero(p.Data)
	}
}

func authFailure() error {
	return apperrors.New(apperrors.ErrCodeAuthentication, AuthFailureMessage).
		WithUserMessage(AuthFailureMessage)
}

// Seal builds a v3 container holding name and data
func Seal(name string, data, masterKey []byte) ([]byte, error) {
	if len(masterKey) == 0 {
		return nil, apperrors.NewInvalidInputError("master key", "master key is required")
	}

	nameBytes := []byte(name)
	defer keys.Zero(nameBytes)
	if len(nameBytes) > MaxNameLen {
		return nil, apperrors.NewInvalidInputError("filename", "filename too long")
	}

	salt := keys.NewSalt()
	nonce := keys.NewNonce()

	key := keys.DeriveEncryptionKey(masterKey, salt)
	defer keys.Zero(key)

	pkg := make([]byte, 2+len(nameBytes)+len(data))
	defer keys.Zero(pkg)
	binary.LittleEndian.PutUint16(pkg[:2], uint16(len(nameBytes)))
	copy(pkg[2:], nameBytes)
	copy(pkg[2+len(nameBytes):], data)

	aad := buildAAD(CurrentVersion, salt, nonce)
	ciphertext, tag, err := aead.Seal(key, nonce, pkg, aad)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternalError, "encryption failed")
	}
	defer keys.Zero(ciphertext)

	out := make([]byte, 0, len(aad)+len(tag)+len(ciphertext))
	out = append(out, aad...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

// Open parses and decrypts a container of any supported version
func Open(data, masterKey []byte) (*Payload, error) {
	env, err := parse(data)
	if err != nil {
		return nil, err
	}

	key := keys.DeriveEncryptionKey(masterKey, env.salt)
	defer keys.Zero(key)

	plaintext, err := aead.Open(key, env.nonce, env.ciphertext, env.tag, env.aad)
	if err != nil {
		return nil, authFailure()
	}

	if !env.packaged {
		return &Payload{Version: env.version, Name: env.legacyName, Data: plaintext}, nil
	}

	if len(plaintext) < 2 {
		keys.Zero(plaintext)
		return nil, apperrors.NewCorruptPayloadError("decrypted payload too short")
	}
	n := int(binary.LittleEndian.Uint16(plaintext[:2]))
	if 2+n > len(plaintext) {
		keys.Zero(plaintext)
		return nil, apperrors.NewCorruptPayloadError("filename length exceeds payload")
	}

	name := pathsafe.SanitizeFilename(string(plaintext[2 : 2+n]))
	keys.Zero(plaintext[:2+n])
	return &Payload{Version: env.version, Name: name, Data: plaintext[2+n:]}, nil
}

// EncryptFile seals inputPath into a new container at outputPath, or inside
// outputPath when it is a directory. It never overwrites an existing file and
// returns the path actually written.
func EncryptFile(inputPath, outputPath string, masterKey []byte) (string, error) {
	return EncryptFileAs(inputPath, filepath.Base(inputPath), outputPath, masterKey)
}

// EncryptFileAs is EncryptFile with the stored filename given explicitly,
// e.g. a folder name for a temporary archive.
func EncryptFileAs(inputPath, name, outputPath string, masterKey []byte) (string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", apperrors.NewIOError("read", inputPath, err)
	}
	defer keys.Zero(data)

	sealed, err := Seal(name, data, masterKey)
	if err != nil {
		return "", err
	}
	defer keys.Zero(sealed)

	dest := outputPath
	if isDir(outputPath) {
		dest = filepath.Join(outputPath, name+Extension)
	}
	return pathsafe.WriteUnique(dest, sealed)
}

// DecryptFile opens the container at inputPath and writes its content to
// outputPath, or inside outputPath under the stored filename when it is a
// directory. It never overwrites an existing file and returns the path
// actually written.
func DecryptFile(inputPath, outputPath string, masterKey []byte) (string, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", apperrors.NewIOError("read", inputPath, err)
	}
	defer keys.Zero(data)

	payload, err := Open(data, masterKey)
	if err != nil {
		return "", err
	}
	defer payload.Wipe()

	dest := outputPath
	if isDir(outputPath) {
		name := payload.Name
		if name == "" {
			base := filepath.Base(inputPath)
			name = pathsafe.SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
		}
		if name == "" {
			name = FallbackName
		}

		dest, err = pathsafe.EnsureWithin(outputPath, filepath.Join(outputPath, name))
		if err != nil {
			return "", err
		}
	}
	return pathsafe.WriteUnique(dest, payload.Data)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
