package pathsafe

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "securevault/internal/errors"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd", "passwd"},
		{`..\..\Windows\system.ini`, "system.ini"},
		{"/abs/path/name.txt", "name.txt"},
		{`a<b>c:d"e|f?g*h.txt`, "abcdefgh.txt"},
		{"tab\there", "tabhere"},
		{"  spaced.txt  ", "spaced.txt"},
		{"..", ""},
		{"dir/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

func TestEnsureWithin(t *testing.T) {
	base := t.TempDir()

	got, err := EnsureWithin(base, filepath.Join(base, "sub", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "sub", "file.txt"), got)

	escapes := []string{
		filepath.Join(base, "..", "evil.txt"),
		filepath.Join(base, "a", "..", "..", "evil.txt"),
		base,
		"/etc/passwd",
		base + "-sibling/file",
	}
	for _, c := range escapes {
		_, err := EnsureWithin(base, c)
		assert.True(t, apperrors.Is(err, apperrors.ErrCodePathSafety), "candidate %q", c)
	}
}

func TestCreateUnique_NoOverwrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "name.ext")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o600))

	first, err := WriteUnique(target, []byte("one"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "name (1).ext"), first)

	second, err := WriteUnique(target, []byte("two"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "name (2).ext"), second)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestCreateUnique_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "taken"), 0o700))

	f, name, err := CreateUnique(filepath.Join(dir, "taken"))
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, filepath.Join(dir, "taken (1)"), name)
}

func TestCreateUnique_EmptyStem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), nil, 0o600))

	name, err := WriteUnique(filepath.Join(dir, ".hidden"), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file (1).hidden"), name)
}

func TestCreateUnique_MissingParent(t *testing.T) {
	_, _, err := CreateUnique(filepath.Join(t.TempDir(), "missing", "f.txt"))
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeIO))
}

func TestCreateUnique_Exhausted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "busy.txt")
	for n := 0; n < MaxUniqueAttempts; n++ {
		require.NoError(t, os.WriteFile(candidate(path, n), nil, 0o600))
	}

	f, name, err := CreateUnique(path)
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Empty(t, name)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUniquePathExhausted))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, MaxUniqueAttempts)
}

func TestCreateUnique_Concurrent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "race.bin")

	const writers = 16
	var wg sync.WaitGroup
	names := make([]string, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name, err := WriteUnique(target, []byte{byte(i)})
			assert.NoError(t, err)
			names[i] = name
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate output %s", n)
		seen[n] = true
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, writers)
}
