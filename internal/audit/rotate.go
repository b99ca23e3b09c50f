package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultMaxSize is the size above which the log is rotated
const DefaultMaxSize = 10 << 20

// RotatingFile is an append-only log file that renames itself with a
// timestamp suffix once it grows past MaxSize. The check, rotate and append
// steps of one write happen under a single lock.
type RotatingFile struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	now     func() time.Time
}

// NewRotatingFile creates dir if needed and returns a sink for dir/name
func NewRotatingFile(dir, name string, maxSize int64) (*RotatingFile, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &RotatingFile{
		path:    filepath.Join(dir, name),
		maxSize: maxSize,
		now:     time.Now,
	}, nil
}

// Path returns the active log file path
func (r *RotatingFile) Path() string {
	return r.path
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rotateIfNeeded(); err != nil {
		return 0, err
	}

	f, err := os.OpenFile(r.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o600)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(p)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (r *RotatingFile) rotateIfNeeded() error {
	info, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() <= r.maxSize {
		return nil
	}

	ext := filepath.Ext(r.path)
	stem := strings.TrimSuffix(r.path, ext)
	stamp := r.now().Format("20060102_150405")

	archived := fmt.Sprintf("%s_%s%s", stem, stamp, ext)
	for i := 1; fileExists(archived); i++ {
		archived = fmt.Sprintf("%s_%s_%d%s", stem, stamp, i, ext)
	}
	return os.Rename(r.path, archived)
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
