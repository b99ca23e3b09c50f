package container

import (
	"io"
	"os"
)

// Status tells whether a probed file is a container
type Status int

const (
	Invalid Status = iota
	Valid
)

// Metadata is what can be learned about a container without credentials.
// Keyfile usage is deliberately absent.
type Metadata struct {
	Status  Status
	Version Version
}

// IsValid reports whether the file looked like a container
func (m Metadata) IsValid() bool {
	return m.Status == Valid
}

// Describe returns a short label safe to show to a user
func (m Metadata) Describe() string {
	if !m.IsValid() {
		return "Not a SecureVault file"
	}
	return "SecureVault encrypted file"
}

// Probe reads the magic and version of path. It never decrypts and never
// fails: anything unreadable is reported as Invalid.
func Probe(path string) Metadata {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}
	}
	defer f.Close()

	var head [len(Magic) + 1]byte
	if _, err := io.ReadFull(f, head[:]); err != nil {
		return Metadata{}
	}
	if string(head[:len(Magic)]) != Magic {
		return Metadata{}
	}

	version := Version(head[len(Magic)])
	if _, ok := parsers[version]; !ok {
		return Metadata{}
	}
	if version == V2 {
		var flags [1]byte
		if _, err := io.ReadFull(f, flags[:]); err != nil {
			return Metadata{}
		}
	}

	return Metadata{Status: Valid, Version: version}
}
