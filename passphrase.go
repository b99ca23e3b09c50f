package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"syscall"

	"golang.org/x/term"

	"securevault/internal/config"
	"securevault/internal/keys"
)

func (a *app) getPassphrase(prompt string) ([]byte, error) {
	// First check environment variable
	if a.cfg.Passphrase != "" {
		return []byte(a.cfg.Passphrase), nil
	}

	return readPassword(prompt)
}

func (a *app) getPassphraseWithConfirm(prompt, confirmPrompt string) ([]byte, error) {
	if a.cfg.Passphrase != "" {
		return []byte(a.cfg.Passphrase), nil
	}

	passphrase, err := readPassword(prompt)
	if err != nil {
		return nil, err
	}

	confirm, err := readPassword(confirmPrompt)
	if err != nil {
		keys.Zero(passphrase)
		return nil, err
	}
	defer keys.Zero(confirm)

	if !bytes.Equal(passphrase, confirm) {
		keys.Zero(passphrase)
		return nil, fmt.Errorf("passphrases do not match")
	}
	return passphrase, nil
}

// readKeyfile returns the keyfile content, or nil when no keyfile was given.
// Only the content matters; renaming a keyfile does not change the key.
func readKeyfile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyfile: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("keyfile is empty")
	}
	return data, nil
}

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)

	var passphrase []byte
	var err error

	if term.IsTerminal(int(syscall.Stdin)) {
		passphrase, err = term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
	} else {
		// STDIN is not a terminal (piped), try to read from /dev/tty
		tty, ttyErr := openTTY()
		if ttyErr != nil {
			return nil, ttyErr
		}
		defer tty.Close()

		passphrase, err = term.ReadPassword(int(tty.Fd()))
		fmt.Fprintln(os.Stderr)
	}

	if err != nil {
		return nil, err
	}
	return passphrase, nil
}

// confirm asks a yes/no question, defaulting to no
func confirm(question string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)

	var in io.Reader = os.Stdin
	if !term.IsTerminal(int(syscall.Stdin)) {
		tty, err := openTTY()
		if err != nil {
			return false, err
		}
		defer tty.Close()
		in = tty
	}
	return parseYes(in)
}

func parseYes(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func openTTY() (*os.File, error) {
	tty, err := os.Open("/dev/tty")
	if err != nil {
		if runtime.GOOS == "windows" {
			return nil, fmt.Errorf("passphrase must be set via %s environment variable when STDIN is piped", config.EnvPassphrase)
		}
		return nil, fmt.Errorf("cannot read from terminal: STDIN is piped and /dev/tty is not available. Set %s environment variable", config.EnvPassphrase)
	}
	return tty, nil
}
