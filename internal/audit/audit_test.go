package audit

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Events(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf)

	l.AppStart("1.2.3")
	l.EncryptSuccess("/home/alice/private/taxes.pdf", true, 2048)
	l.DecryptFailure("/home/alice/private/taxes.pdf.svlt", "AUTHENTICATION")
	l.EncryptFailure("/home/alice/private/huge", "RESOURCE_LIMIT")
	l.AppExit()

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)

	assert.Contains(t, lines[0], "msg=APP_START")
	assert.Contains(t, lines[0], "version=1.2.3")
	assert.Contains(t, lines[1], "msg=ENCRYPT_SUCCESS")
	assert.Contains(t, lines[1], "file=taxes.pdf")
	assert.Contains(t, lines[1], "size=2048")
	assert.Contains(t, lines[2], "reason=AUTHENTICATION")
	assert.Contains(t, lines[3], "msg=ENCRYPT_FAILED")
	assert.Contains(t, lines[3], "file=huge")
	assert.Contains(t, lines[3], "reason=RESOURCE_LIMIT")
	assert.Contains(t, lines[4], "msg=APP_EXIT")
	assert.Contains(t, out, "UTC")
	assert.NotContains(t, out, "/home/alice")
}

func TestLogger_Nil(t *testing.T) {
	var l *Logger
	l.AppStart("x")
	l.DecryptSuccess("a")
	assert.Equal(t, "", l.Path())
}

func TestNew_FileBacked(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, LogName), l.Path())

	l.DecryptSuccess("notes.txt")
	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "DECRYPT_SUCCESS")
}

func TestRotatingFile_Rotates(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRotatingFile(dir, "security.log", 10)
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local) }

	_, err = r.Write([]byte("first line that is long\n"))
	require.NoError(t, err)
	_, err = r.Write([]byte("second line here\n"))
	require.NoError(t, err)
	_, err = r.Write([]byte("third line, also long\n"))
	require.NoError(t, err)

	archived, err := os.ReadFile(filepath.Join(dir, "security_20260102_030405.log"))
	require.NoError(t, err)
	assert.Equal(t, "first line that is long\n", string(archived))

	current, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Equal(t, "third line, also long\n", string(current))

	second, err := os.ReadFile(filepath.Join(dir, "security_20260102_030405_1.log"))
	require.NoError(t, err)
	assert.Equal(t, "second line here\n", string(second))
}

func TestRotatingFile_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir)
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.DecryptSuccess("file.txt")
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, writers)
	for _, line := range lines {
		assert.Contains(t, line, "msg=DECRYPT_SUCCESS")
	}
}
