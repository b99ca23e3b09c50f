package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"securevault/internal/archive"
	"securevault/internal/keys"
	"securevault/internal/vault"
)

func (a *app) encrypt(opts Options) error {
	keyfile, err := readKeyfile(opts.KeyfilePath)
	if err != nil {
		return err
	}
	defer keys.Zero(keyfile)

	passphrase, err := a.getPassphraseWithConfirm("Enter passphrase: ", "Confirm passphrase: ")
	if err != nil {
		return fmt.Errorf("failed to get passphrase: %w", err)
	}
	defer keys.Zero(passphrase)

	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase cannot be empty")
	}

	req := vault.LockRequest{
		Password:     string(passphrase),
		Keyfile:      keyfile,
		Source:       opts.Path,
		Destination:  opts.OutPath,
		SecureDelete: opts.SecureDelete,
		ConfirmLarge: a.confirmLarge(opts.AssumeYes),
	}

	a.logger.WithFields(logrus.Fields{
		"source":  opts.Path,
		"keyfile": opts.KeyfilePath != "",
	}).Debug("Encrypting")

	written, err := a.vault.Lock(req)
	if err != nil {
		if written != "" {
			fmt.Fprintf(os.Stderr, "Encrypted to %s\n", written)
		}
		return err
	}

	fmt.Fprintf(os.Stderr, "Encrypted to %s\n", written)
	if opts.SecureDelete {
		fmt.Fprintln(os.Stderr, "Original securely deleted")
	}
	return nil
}

func (a *app) confirmLarge(assumeYes bool) func(archive.Analysis) bool {
	return func(analysis archive.Analysis) bool {
		if assumeYes {
			a.logger.WithField("size", analysis.SizeFormatted()).Info("Large folder, continuing")
			return true
		}
		ok, err := confirm(analysis.Warning)
		if err != nil {
			a.logger.WithError(err).Warn("Could not read confirmation")
			return false
		}
		return ok
	}
}
