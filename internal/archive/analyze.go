// Package archive turns a folder into a single zip blob for encryption and
// extracts such blobs without letting entries escape the output folder.
package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "securevault/internal/errors"
)

// Folder guards. The whole archive is later held in memory.
const (
	MaxFolderSize = 4 << 30 // 4 GiB
	WarningSize   = 1 << 30 // 1 GiB
	MaxFileCount  = 10000
)

var errTooManyFiles = errors.New("too many files")

// Analysis is the result of scanning a folder before it is archived
type Analysis struct {
	Valid     bool
	FileCount int
	TotalSize int64

	// Reason explains why the folder was rejected
	Reason string

	// RequiresConfirmation is advisory; the folder is still valid
	RequiresConfirmation bool
	Warning              string

	code apperrors.ErrorCode
}

// Err returns a typed error for an invalid analysis, nil otherwise
func (a Analysis) Err() error {
	if a.Valid {
		return nil
	}
	if a.code == apperrors.ErrCodeResourceLimit {
		return apperrors.NewResourceLimitError(a.Reason)
	}
	return apperrors.New(a.code, a.Reason).WithUserMessage(a.Reason)
}

// SizeFormatted renders TotalSize for humans
func (a Analysis) SizeFormatted() string {
	return formatSize(a.TotalSize)
}

func formatSize(n int64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d bytes", n)
	case n < 1<<20:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
	}
}

// AnalyzeFolder counts and sizes the files below path and checks them
// against the folder guards. It never returns an error; problems are
// reported through Valid and Reason.
func AnalyzeFolder(path string) Analysis {
	a := Analysis{}

	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		a.Reason = "Folder does not exist."
		a.code = apperrors.ErrCodeInvalidInput
		return a
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		a.FileCount++
		if a.FileCount > MaxFileCount {
			return errTooManyFiles
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() {
			a.TotalSize += fi.Size()
		}
		return nil
	})

	switch {
	case errors.Is(err, errTooManyFiles):
		a.Reason = fmt.Sprintf("Folder contains too many files (more than %d). Maximum: %d", MaxFileCount, MaxFileCount)
		a.code = apperrors.ErrCodeResourceLimit
		return a
	case errors.Is(err, fs.ErrPermission):
		a.Reason = "Access denied. Check folder permissions."
		a.code = apperrors.ErrCodeIO
		return a
	case err != nil:
		a.Reason = fmt.Sprintf("Error analyzing folder: %v", err)
		a.code = apperrors.ErrCodeIO
		return a
	}

	if a.FileCount == 0 {
		a.Reason = "Folder is empty."
		a.code = apperrors.ErrCodeInvalidInput
		return a
	}

	if a.TotalSize > MaxFolderSize {
		a.Reason = fmt.Sprintf("Folder too large (%s). Maximum: %s", a.SizeFormatted(), formatSize(MaxFolderSize))
		a.code = apperrors.ErrCodeResourceLimit
		return a
	}

	if a.TotalSize > WarningSize {
		a.RequiresConfirmation = true
		a.Warning = fmt.Sprintf("Large folder (%s, %d files). This may take several minutes and require significant RAM. Continue?",
			a.SizeFormatted(), a.FileCount)
	}

	a.Valid = true
	return a
}
