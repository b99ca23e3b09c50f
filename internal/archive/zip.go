package archive

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	apperrors "securevault/internal/errors"
	"securevault/internal/erase"
	"securevault/internal/pathsafe"
)

// TempPrefix names temporary archives in the system temp directory
const TempPrefix = "SecureVault_"

// CreateTemporary zips folderPath into a new file in the temp directory using
// maximum compression and returns its path. Symlinks are not followed. The
// partial archive is removed on failure.
func CreateTemporary(folderPath string) (string, error) {
	tempPath := filepath.Join(os.TempDir(), TempPrefix+uuid.NewString()+".zip")

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", apperrors.NewIOError("create", tempPath, err)
	}

	if err := writeZip(f, folderPath); err != nil {
		f.Close()
		os.Remove(tempPath)
		return "", apperrors.Wrap(err, apperrors.ErrCodeIO, "failed to create ZIP archive").
			WithUserMessage("Failed to create ZIP archive")
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return "", apperrors.NewIOError("close", tempPath, err)
	}
	return tempPath, nil
}

func writeZip(w io.Writer, root string) error {
	if info, err := os.Stat(root); err != nil {
		return err
	} else if !info.IsDir() {
		return &fs.PathError{Op: "zip", Path: root, Err: fs.ErrInvalid}
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			hdr, err := zip.FileInfoHeader(info)
			if err != nil {
				return err
			}
			hdr.Name = name + "/"
			_, err = zw.CreateHeader(hdr)
			return err
		case info.Mode().IsRegular():
			return addFile(zw, p, name, info)
		default:
			return nil
		}
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, path, name string, info fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	_, err = io.Copy(dst, src)
	return err
}

// SafeExtract extracts archivePath into outputFolder. Every entry is checked
// before anything is written, so an archive with a single escaping entry
// creates nothing. Existing files are never overwritten; colliding entries get
// a "name (N).ext" variant.
func SafeExtract(archivePath, outputFolder string) error {
	if err := os.MkdirAll(outputFolder, 0o700); err != nil {
		return apperrors.NewIOError("create", outputFolder, err)
	}

	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnsupportedFormat, "failed to open archive").
			WithUserMessage("Failed to extract archive")
	}
	defer zr.Close()

	root, err := filepath.Abs(outputFolder)
	if err != nil {
		return apperrors.NewIOError("resolve", outputFolder, err)
	}

	dests := make([]string, len(zr.File))
	for i, entry := range zr.File {
		target := filepath.Join(root, filepath.FromSlash(entry.Name))
		if target == root && isDirEntry(entry) {
			// "./" names the output folder itself
			continue
		}
		dest, err := pathsafe.EnsureWithin(root, target)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodePathSafety, "archive contains invalid paths").
				WithContext("entry", entry.Name).
				WithUserMessage("Archive contains invalid paths.")
		}
		dests[i] = dest
	}

	for i, entry := range zr.File {
		if dests[i] == "" {
			continue
		}
		if isDirEntry(entry) {
			if err := os.MkdirAll(dests[i], 0o700); err != nil {
				return apperrors.NewIOError("create", dests[i], err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dests[i]), 0o700); err != nil {
			return apperrors.NewIOError("create", filepath.Dir(dests[i]), err)
		}
		if err := extractFile(entry, dests[i]); err != nil {
			return err
		}
	}
	return nil
}

func isDirEntry(entry *zip.File) bool {
	return entry.FileInfo().IsDir() || strings.HasSuffix(entry.Name, "/")
}

func extractFile(entry *zip.File, dest string) error {
	out, name, err := pathsafe.CreateUnique(dest)
	if err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		out.Close()
		os.Remove(name)
		return apperrors.Wrap(err, apperrors.ErrCodeIO, "failed to read archive entry").
			WithContext("entry", entry.Name)
	}
	defer rc.Close()

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(name)
		return apperrors.NewIOError("extract", name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(name)
		return apperrors.NewIOError("close", name, err)
	}
	return nil
}

// CleanupTemporary erases a temporary archive with a single overwrite pass,
// falling back to a plain remove. It never fails.
func CleanupTemporary(path string) {
	if path == "" {
		return
	}
	if err := erase.SecureDelete(path, 1); err != nil {
		os.Remove(path)
	}
}
