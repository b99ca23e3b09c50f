// Package audit records security events in a local, human-readable log.
//
// The log never carries passwords, keys or full paths, and a failure to
// write it never reaches the caller. A nil *Logger discards everything.
package audit

import (
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// LogName is the active log file inside the log directory
const LogName = "security.log"

// Event types
const (
	EventAppStart       = "APP_START"
	EventAppExit        = "APP_EXIT"
	EventEncryptSuccess = "ENCRYPT_SUCCESS"
	EventEncryptFailed  = "ENCRYPT_FAILED"
	EventDecryptSuccess = "DECRYPT_SUCCESS"
	EventDecryptFailed  = "DECRYPT_FAILED"
)

// Logger writes security events
type Logger struct {
	log  *logrus.Logger
	sink *RotatingFile
}

// utcFormatter stamps entries in UTC
type utcFormatter struct {
	logrus.Formatter
}

func (f utcFormatter) Format(e *logrus.Entry) ([]byte, error) {
	e.Time = e.Time.UTC()
	return f.Formatter.Format(e)
}

// New returns a Logger appending to dir/security.log
func New(dir string) (*Logger, error) {
	sink, err := NewRotatingFile(dir, LogName, DefaultMaxSize)
	if err != nil {
		return nil, err
	}
	l := NewWithWriter(sink)
	l.sink = sink
	return l, nil
}

// NewWithWriter returns a Logger writing to w
func NewWithWriter(w io.Writer) *Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(utcFormatter{&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05 UTC",
	}})
	return &Logger{log: logger}
}

// Path returns the active log file, or "" when not file-backed
func (l *Logger) Path() string {
	if l == nil || l.sink == nil {
		return ""
	}
	return l.sink.Path()
}

// Event logs a security event with extra fields
func (l *Logger) Event(eventType string, fields logrus.Fields) {
	if l == nil {
		return
	}
	l.log.WithFields(fields).Info(eventType)
}

func (l *Logger) AppStart(version string) {
	l.Event(EventAppStart, logrus.Fields{"version": version})
}

func (l *Logger) AppExit() {
	l.Event(EventAppExit, nil)
}

// EncryptSuccess records a locked file or folder
func (l *Logger) EncryptSuccess(filename string, usedKeyfile bool, size int64) {
	keyfile := "no"
	if usedKeyfile {
		keyfile = "yes"
	}
	l.Event(EventEncryptSuccess, logrus.Fields{
		"file":    baseName(filename),
		"size":    size,
		"keyfile": keyfile,
	})
}

func (l *Logger) EncryptFailure(filename, reason string) {
	l.Event(EventEncryptFailed, logrus.Fields{
		"file":   baseName(filename),
		"reason": reason,
	})
}

func (l *Logger) DecryptSuccess(filename string) {
	l.Event(EventDecryptSuccess, logrus.Fields{"file": baseName(filename)})
}

// DecryptFailure records a failed unlock. reason must already be safe to
// store, e.g. an error code.
func (l *Logger) DecryptFailure(filename, reason string) {
	l.Event(EventDecryptFailed, logrus.Fields{
		"file":   baseName(filename),
		"reason": reason,
	})
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}
