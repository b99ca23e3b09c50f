// Package pathsafe resolves output names that never escape their destination
// directory and never overwrite an existing file.
package pathsafe

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "securevault/internal/errors"
)

// MaxUniqueAttempts bounds the "name (N).ext" search
const MaxUniqueAttempts = 10000

// FallbackStem replaces an empty stem when numbering collisions
const FallbackStem = "file"

const invalidNameChars = `<>:"/\|?*`

// SanitizeFilename strips any directory components and characters that are
// invalid in a filename on common filesystems. The result may be empty.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(invalidNameChars, r) {
			return -1
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// EnsureWithin canonicalizes candidate and requires it to lie strictly inside
// base. It returns the absolute candidate path.
func EnsureWithin(base, candidate string) (string, error) {
	baseAbs, err := filepath.Abs(base)
	if err != nil {
		return "", apperrors.NewIOError("resolve", base, err)
	}
	candAbs, err := filepath.Abs(candidate)
	if err != nil {
		return "", apperrors.NewIOError("resolve", candidate, err)
	}

	rel, err := filepath.Rel(baseAbs, candAbs)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.NewPathSafetyError(baseAbs, candAbs)
	}
	return candAbs, nil
}

// candidate returns path itself for n == 0 and "stem (n).ext" otherwise
func candidate(path string, n int) string {
	if n == 0 {
		return path
	}
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if strings.TrimSpace(stem) == "" {
		stem = FallbackStem
	}
	return filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
}

// CreateUnique creates path, or the first free "name (N).ext" variant of it,
// with exclusive create-only semantics. The exclusive open is the only
// collision check, so concurrent callers can never share a file.
func CreateUnique(path string) (*os.File, string, error) {
	for n := 0; n < MaxUniqueAttempts; n++ {
		name := candidate(path, n)
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, name, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return nil, "", apperrors.NewIOError("create", name, err)
	}

	return nil, "", apperrors.New(apperrors.ErrCodeUniquePathExhausted, "unable to create a unique output filename").
		WithContext("path", path).
		WithUserMessage("Unable to create a unique output filename.")
}

// WriteUnique writes data to a fresh file chosen by CreateUnique and returns
// its path. A partially written file is removed on failure.
func WriteUnique(path string, data []byte) (string, error) {
	f, name, err := CreateUnique(path)
	if err != nil {
		return "", err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", apperrors.NewIOError("write", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", apperrors.NewIOError("close", name, err)
	}
	return name, nil
}
