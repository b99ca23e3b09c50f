// Package erase overwrites files with random data before removing them.
//
// This is best effort only. Copy-on-write filesystems, journaling and
// wear-levelled flash may keep earlier copies of the data that no overwrite
// through the file API can reach.
package erase

import (
	"crypto/rand"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "securevault/internal/errors"
)

// DefaultPasses is used when a non-positive pass count is requested
const DefaultPasses = 3

const bufSize = 64 * 1024

// Eraser overwrites and removes files
type Eraser struct {
	Passes int

	// AfterPass, when set, runs after each overwrite pass has been synced
	// and before the file is removed.
	AfterPass func(path string, pass int)
}

// SecureDelete overwrites path passes times and removes it. A missing path
// is not an error.
func SecureDelete(path string, passes int) error {
	e := &Eraser{Passes: passes}
	return e.Delete(path)
}

// SecureDeleteTree secure-deletes every regular file under root and then
// removes the whole tree.
func SecureDeleteTree(root string, passes int) error {
	e := &Eraser{Passes: passes}
	return e.DeleteTree(root)
}

// Delete overwrites a single regular file and removes it
func (e *Eraser) Delete(path string) error {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperrors.NewIOError("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return apperrors.NewInvalidInputError("path", "not a regular file")
	}

	if err := e.overwrite(path, info.Size()); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return apperrors.NewIOError("remove", path, err)
	}
	return nil
}

// DeleteTree erases all regular files below root, then removes root
func (e *Eraser) DeleteTree(root string) error {
	if _, err := os.Lstat(root); os.IsNotExist(err) {
		return nil
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			return e.Delete(path)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewIOError("erase", root, err)
	}

	if err := os.RemoveAll(root); err != nil {
		return apperrors.NewIOError("remove", root, err)
	}
	return nil
}

func (e *Eraser) overwrite(path string, size int64) error {
	passes := e.Passes
	if passes <= 0 {
		passes = DefaultPasses
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return apperrors.NewIOError("open", path, err)
	}
	defer f.Close()

	buf := make([]byte, min(int64(bufSize), max(size, 1)))
	for pass := 1; pass <= passes; pass++ {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return apperrors.NewIOError("seek", path, err)
		}

		for written := int64(0); written < size; {
			chunk := buf[:min(int64(len(buf)), size-written)]
			if _, err := rand.Read(chunk); err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeInternalError, "failed to generate random data")
			}
			n, err := f.Write(chunk)
			if err != nil {
				return apperrors.NewIOError("overwrite", path, err)
			}
			written += int64(n)
		}

		if err := f.Sync(); err != nil {
			return apperrors.NewIOError("sync", path, err)
		}
		if e.AfterPass != nil {
			e.AfterPass(path, pass)
		}
	}
	return nil
}
