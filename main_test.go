package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securevault/internal/audit"
	"securevault/internal/config"
	"securevault/internal/container"
	apperrors "securevault/internal/errors"
)

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{
		"--keyfile=/k.bin", "-o=/out", "--secure-delete", "-y", "-x", "--verbose", "--log-dir=/logs", "file.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, Options{
		Path:         "file.txt",
		KeyfilePath:  "/k.bin",
		OutPath:      "/out",
		LogDir:       "/logs",
		SecureDelete: true,
		AssumeYes:    true,
		Extract:      true,
		Verbose:      true,
	}, opts)
}

func TestParseOptions_Errors(t *testing.T) {
	tests := map[string][]string{
		"no path":        {"--yes"},
		"unknown option": {"--bogus", "a"},
		"two paths":      {"a", "b"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseOptions(args)
			assert.Error(t, err)
		})
	}
}

func TestParseYes(t *testing.T) {
	for in, want := range map[string]bool{
		"y\n":   true,
		"YES\n": true,
		" yes":  true,
		"n\n":   false,
		"\n":    false,
		"":      false,
	} {
		got, err := parseYes(strings.NewReader(in))
		require.NoError(t, err)
		assert.Equal(t, want, got, "%q", in)
	}
}

func TestReadKeyfile(t *testing.T) {
	data, err := readKeyfile("")
	require.NoError(t, err)
	assert.Nil(t, data)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = readKeyfile(empty)
	assert.Error(t, err)

	kf := filepath.Join(dir, "key.bin")
	require.NoError(t, os.WriteFile(kf, []byte{1, 2, 3}, 0o600))
	data, err = readKeyfile(kf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestErrorMessage(t *testing.T) {
	err := apperrors.New(apperrors.ErrCodeAuthentication, "x").WithUserMessage(container.AuthFailureMessage)
	assert.Equal(t, container.AuthFailureMessage, errorMessage(err))
	assert.Equal(t, "plain", errorMessage(plainError("plain")))
}

type plainError string

func (e plainError) Error() string { return string(e) }

func TestRun_Commands(t *testing.T) {
	assert.Error(t, run(nil))
	assert.Error(t, run([]string{"--frobnicate", "x"}))
	assert.NoError(t, run([]string{"--help"}))
	assert.NoError(t, run([]string{"--version"}))
}

func TestRun_EncryptDecrypt(t *testing.T) {
	t.Setenv(config.EnvPassphrase, "correct horse")
	logDir := t.TempDir()
	dir := t.TempDir()

	src := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("meeting at noon"), 0o600))
	kf := filepath.Join(dir, "key.bin")
	require.NoError(t, os.WriteFile(kf, []byte("second factor"), 0o600))

	require.NoError(t, run([]string{"-e", "-k=" + kf, "--secure-delete", "--log-dir=" + logDir, src}))
	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	locked := src + container.Extension
	require.NoError(t, run([]string{"--info", "--log-dir=" + logDir, locked}))

	// missing keyfile fails without output
	out := t.TempDir()
	err = run([]string{"-d", "-o=" + out, "--log-dir=" + logDir, locked})
	require.Error(t, err)
	assert.Equal(t, container.AuthFailureMessage, errorMessage(err))
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, run([]string{"-d", "-k=" + kf, "-o=" + out, "--log-dir=" + logDir, locked}))
	got, err := os.ReadFile(filepath.Join(out, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "meeting at noon", string(got))

	logData, err := os.ReadFile(filepath.Join(logDir, audit.LogName))
	require.NoError(t, err)
	log := string(logData)
	assert.Contains(t, log, audit.EventAppStart)
	assert.Contains(t, log, audit.EventEncryptSuccess)
	assert.Contains(t, log, audit.EventDecryptFailed)
	assert.Contains(t, log, audit.EventDecryptSuccess)
	assert.NotContains(t, log, "correct horse")
	assert.NotContains(t, log, dir)
}

func TestRun_DecryptRejectsPlainFile(t *testing.T) {
	t.Setenv(config.EnvPassphrase, "pw")
	plain := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("hello"), 0o600))

	err := run([]string{"-d", "--log-dir=" + t.TempDir(), plain})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not a SecureVault file")
}
