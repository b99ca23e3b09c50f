// Package vault locks and unlocks files and folders on behalf of a user
// interface, tying together key derivation, the container codec, folder
// archiving, secure erase and the security log.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"securevault/internal/archive"
	"securevault/internal/audit"
	"securevault/internal/container"
	apperrors "securevault/internal/errors"
	"securevault/internal/erase"
	"securevault/internal/keys"
)

// Output naming
const (
	FolderExtension = ".zip" + container.Extension
	DecryptedSuffix = "_decrypted"
	UnknownSuffix   = ".decrypted"
)

// DeletePasses is the number of overwrite passes used on originals
const DeletePasses = 3

// LockRequest describes one encryption
type LockRequest struct {
	Password string
	Keyfile  []byte

	// Source is a file or a folder
	Source string
	// Destination is a file path or a directory; empty means next to Source
	Destination string

	SecureDelete bool

	// ConfirmLarge is asked before archiving a folder that passed the warning
	// threshold. A nil func declines.
	ConfirmLarge func(archive.Analysis) bool
}

// UnlockRequest describes one decryption
type UnlockRequest struct {
	Password string
	Keyfile  []byte

	Source      string
	Destination string

	// Extract unpacks a decrypted folder archive next to it and removes the
	// archive afterwards.
	Extract bool
}

// Service runs lock and unlock operations. It holds no per-operation state
// and is safe for concurrent use.
type Service struct {
	audit  *audit.Logger
	logger *logrus.Logger
}

// NewService returns a Service that records events to auditLog and
// diagnostics to logger. Either may be nil.
func NewService(auditLog *audit.Logger, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.PanicLevel)
	}
	return &Service{audit: auditLog, logger: logger}
}

// Lock encrypts req.Source and returns the container path. When secure
// delete was requested and fails after a successful encryption, the path is
// returned together with the error.
func (s *Service) Lock(req LockRequest) (string, error) {
	info, err := os.Stat(req.Source)
	if err != nil {
		return "", apperrors.NewIOError("open", req.Source, err)
	}

	master, err := keys.DeriveMasterKey(req.Password, req.Keyfile)
	if err != nil {
		return "", err
	}
	defer keys.Zero(master)

	var written string
	if info.IsDir() {
		written, err = s.lockFolder(req, master)
	} else {
		dest := req.Destination
		if dest == "" {
			dest = DefaultLockPath(req.Source, false)
		}
		written, err = container.EncryptFile(req.Source, dest, master)
	}
	if err != nil {
		s.audit.EncryptFailure(req.Source, string(apperrors.GetCode(err)))
		return "", err
	}

	size := info.Size()
	if out, err := os.Stat(written); err == nil {
		size = out.Size()
	}
	s.audit.EncryptSuccess(req.Source, len(req.Keyfile) > 0, size)
	s.logger.WithField("output", written).Debug("Encryption complete")

	if req.SecureDelete {
		s.logger.WithField("source", req.Source).Debug("Securely deleting original")
		if info.IsDir() {
			err = erase.SecureDeleteTree(req.Source, DeletePasses)
		} else {
			err = erase.SecureDelete(req.Source, DeletePasses)
		}
		if err != nil {
			return written, fmt.Errorf("encrypted, but failed to delete original: %w", err)
		}
	}
	return written, nil
}

func (s *Service) lockFolder(req LockRequest, master []byte) (string, error) {
	analysis := archive.AnalyzeFolder(req.Source)
	if !analysis.Valid {
		return "", analysis.Err()
	}
	if analysis.RequiresConfirmation && (req.ConfirmLarge == nil || !req.ConfirmLarge(analysis)) {
		return "", apperrors.NewInvalidInputError("folder", "large folder was not confirmed")
	}

	s.logger.WithFields(logrus.Fields{
		"files": analysis.FileCount,
		"size":  analysis.SizeFormatted(),
	}).Debug("Creating ZIP archive")

	tempZip, err := archive.CreateTemporary(req.Source)
	if err != nil {
		return "", err
	}
	defer archive.CleanupTemporary(tempZip)

	dest := req.Destination
	if dest == "" {
		dest = DefaultLockPath(req.Source, true)
	}
	name := filepath.Base(filepath.Clean(req.Source)) + ".zip"
	return container.EncryptFileAs(tempZip, name, dest, master)
}

// Unlock decrypts req.Source and returns the written file, or the extracted
// folder when req.Extract applies.
func (s *Service) Unlock(req UnlockRequest) (string, error) {
	master, err := keys.DeriveMasterKey(req.Password, req.Keyfile)
	if err != nil {
		return "", err
	}
	defer keys.Zero(master)

	dest := req.Destination
	if dest == "" {
		dest = DefaultUnlockPath(req.Source)
	}

	written, err := container.DecryptFile(req.Source, dest, master)
	if err != nil {
		s.audit.DecryptFailure(req.Source, string(apperrors.GetCode(err)))
		return "", err
	}
	s.audit.DecryptSuccess(req.Source)

	if !req.Extract || !strings.EqualFold(filepath.Ext(written), ".zip") {
		return written, nil
	}
	return s.extract(written)
}

func (s *Service) extract(zipPath string) (string, error) {
	folder := strings.TrimSuffix(zipPath, filepath.Ext(zipPath))
	_, statErr := os.Stat(folder)
	created := os.IsNotExist(statErr)

	s.logger.WithField("folder", folder).Debug("Extracting archive")
	if err := archive.SafeExtract(zipPath, folder); err != nil {
		if created {
			os.RemoveAll(folder)
		}
		return zipPath, err
	}

	archive.CleanupTemporary(zipPath)
	return folder, nil
}

// Inspect probes a file without credentials
func (s *Service) Inspect(path string) container.Metadata {
	return container.Probe(path)
}

// Analyze reports whether a folder can be locked
func (s *Service) Analyze(path string) archive.Analysis {
	return archive.AnalyzeFolder(path)
}

// DefaultLockPath is where Lock writes when no destination is given
func DefaultLockPath(source string, isFolder bool) string {
	if isFolder {
		return filepath.Clean(source) + FolderExtension
	}
	return source + container.Extension
}

// DefaultUnlockPath is where Unlock writes when no destination is given:
// "x.zip.svlt" becomes "x_decrypted.zip", "x.svlt" becomes "x" and anything
// else gets ".decrypted" appended.
func DefaultUnlockPath(source string) string {
	lower := strings.ToLower(source)
	switch {
	case strings.HasSuffix(lower, FolderExtension):
		return source[:len(source)-len(FolderExtension)] + DecryptedSuffix + ".zip"
	case strings.HasSuffix(lower, container.Extension):
		return source[:len(source)-len(container.Extension)]
	default:
		return source + UnknownSuffix
	}
}
