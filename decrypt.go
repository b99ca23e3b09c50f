package main

import (
	"fmt"
	"os"

	"securevault/internal/container"
	"securevault/internal/keys"
	"securevault/internal/vault"
)

func (a *app) decrypt(opts Options) error {
	md := a.vault.Inspect(opts.Path)
	if !md.IsValid() {
		return fmt.Errorf("%s: %s", opts.Path, md.Describe())
	}

	keyfile, err := readKeyfile(opts.KeyfilePath)
	if err != nil {
		return err
	}
	defer keys.Zero(keyfile)

	passphrase, err := a.getPassphrase("Enter passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to get passphrase: %w", err)
	}
	defer keys.Zero(passphrase)

	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase cannot be empty")
	}

	a.logger.WithField("version", md.Version).Debug("Decrypting")

	written, err := a.vault.Unlock(vault.UnlockRequest{
		Password:    string(passphrase),
		Keyfile:     keyfile,
		Source:      opts.Path,
		Destination: opts.OutPath,
		Extract:     opts.Extract,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Decrypted to %s\n", written)
	return nil
}

func (a *app) info(opts Options) error {
	md := a.vault.Inspect(opts.Path)
	if !md.IsValid() {
		fmt.Println(md.Describe())
		return nil
	}
	fmt.Printf("%s (format v%d)\n", md.Describe(), md.Version)
	if md.Version < container.CurrentVersion {
		fmt.Println("Legacy format: the filename is stored unencrypted. Re-encrypt to upgrade.")
	}
	return nil
}

func (a *app) analyze(opts Options) error {
	analysis := a.vault.Analyze(opts.Path)
	if !analysis.Valid {
		return analysis.Err()
	}

	fmt.Printf("Files: %d\nSize:  %s\n", analysis.FileCount, analysis.SizeFormatted())
	if analysis.RequiresConfirmation {
		fmt.Println(analysis.Warning)
	}
	return nil
}
