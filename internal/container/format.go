package container

import (
	"encoding/binary"
	"fmt"

	"securevault/internal/aead"
	apperrors "securevault/internal/errors"
	"securevault/internal/keys"
	"securevault/internal/pathsafe"
)

// Magic opens every container
const Magic = "SVLT"

// Extension is appended to the source name when encrypting into a directory
const Extension = ".svlt"

// Version is the container format generation
type Version byte

const (
	// V1 carries a cleartext filename and no associated data.
	V1 Version = 1
	// V2 is V1 plus a legacy flags byte after the version.
	V2 Version = 2
	// V3 moves the filename inside the ciphertext and authenticates the header.
	V3 Version = 3

	CurrentVersion = V3
)

// MaxNameLen is the largest filename a length prefix can describe
const MaxNameLen = 0xFFFF

// envelope is a parsed container before decryption
type envelope struct {
	version    Version
	salt       []byte
	nonce      []byte
	tag        []byte
	ciphertext []byte

	// aad is authenticated alongside the ciphertext; nil for legacy versions
	aad []byte
	// packaged means the plaintext is a name-prefixed package (V3)
	packaged bool
	// legacyName is the sanitized cleartext filename of V1/V2
	legacyName string
}

type parser func(r *reader, env *envelope) error

// parsers holds one grammar per supported version
var parsers = map[Version]parser{
	V1: parseV1,
	V2: parseV2,
	V3: parseV3,
}

func parseV1(r *reader, env *envelope) error {
	if err := readCryptoParams(r, env); err != nil {
		return err
	}
	name, err := readLegacyName(r)
	if err != nil {
		return err
	}
	env.legacyName = name
	env.ciphertext = r.rest()
	return nil
}

func parseV2(r *reader, env *envelope) error {
	// legacy flags byte, never consulted
	if _, ok := r.next(1); !ok {
		return errTruncated()
	}
	return parseV1(r, env)
}

func parseV3(r *reader, env *envelope) error {
	if err := readCryptoParams(r, env); err != nil {
		return err
	}
	env.aad = buildAAD(V3, env.salt, env.nonce)
	env.packaged = true
	env.ciphertext = r.rest()
	return nil
}

func errTruncated() error {
	return apperrors.NewUnsupportedFormatError("container truncated")
}

// parse reads magic and version and dispatches to the version's grammar
func parse(data []byte) (*envelope, error) {
	r := &reader{buf: data}

	magic, ok := r.next(len(Magic))
	if !ok || string(magic) != Magic {
		return nil, apperrors.NewUnsupportedFormatError("invalid encrypted file format")
	}

	v, ok := r.next(1)
	if !ok {
		return nil, errTruncated()
	}
	version := Version(v[0])

	parseVersion, ok := parsers[version]
	if !ok {
		return nil, apperrors.NewUnsupportedFormatError(fmt.Sprintf("unsupported file version: %d", version)).
			WithContext("version", int(version))
	}

	env := &envelope{version: version}
	if err := parseVersion(r, env); err != nil {
		return nil, err
	}
	return env, nil
}

func readCryptoParams(r *reader, env *envelope) error {
	var ok bool
	if env.salt, ok = r.next(keys.SaltLen); !ok {
		return errTruncated()
	}
	if env.nonce, ok = r.next(aead.NonceSize); !ok {
		return errTruncated()
	}
	if env.tag, ok = r.next(aead.TagSize); !ok {
		return errTruncated()
	}
	return nil
}

func readLegacyName(r *reader) (string, error) {
	lenBytes, ok := r.next(2)
	if !ok {
		return "", errTruncated()
	}
	nameBytes, ok := r.next(int(binary.LittleEndian.Uint16(lenBytes)))
	if !ok {
		return "", errTruncated()
	}
	return pathsafe.SanitizeFilename(string(nameBytes)), nil
}

// buildAAD returns magic ‖ version ‖ salt ‖ nonce
func buildAAD(version Version, salt, nonce []byte) []byte {
	aad := make([]byte, 0, len(Magic)+1+len(salt)+len(nonce))
	aad = append(aad, Magic...)
	aad = append(aad, byte(version))
	aad = append(aad, salt...)
	aad = append(aad, nonce...)
	return aad
}

// reader is a bounds-checked cursor over a container held in memory
type reader struct {
	buf []byte
	off int
}

func (r *reader) next(n int) ([]byte, bool) {
	if n < 0 || len(r.buf)-r.off < n {
		return nil, false
	}
	b := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return b, true
}

func (r *reader) rest() []byte {
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}
