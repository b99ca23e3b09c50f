package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"securevault/internal/audit"
	"securevault/internal/config"
	apperrors "securevault/internal/errors"
	"securevault/internal/vault"
)

const Version = "3.0.0"

// app carries what every command needs
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	audit  *audit.Logger
	vault  *vault.Service
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("no command specified")
	}

	command := args[0]
	switch command {
	case "--help", "-h":
		printUsage()
		return nil
	case "--version", "-v":
		fmt.Fprintf(os.Stderr, "securevault version %s\n", Version)
		return nil
	case "--encrypt", "-e", "--decrypt", "-d", "--info", "--analyze":
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", command)
	}

	opts, err := parseOptions(args[1:])
	if err != nil {
		return err
	}

	cfg := config.Load()
	if opts.LogDir != "" {
		cfg.LogDir = opts.LogDir
	}
	if opts.Verbose {
		cfg.LogLevel = "debug"
	}

	a := newApp(cfg)
	a.audit.AppStart(Version)
	defer a.audit.AppExit()

	switch command {
	case "--encrypt", "-e":
		return a.encrypt(opts)
	case "--decrypt", "-d":
		return a.decrypt(opts)
	case "--info":
		return a.info(opts)
	default:
		return a.analyze(opts)
	}
}

// errorMessage prefers the safe user message of a typed error
func errorMessage(err error) string {
	return apperrors.UserMessageOr(err, err.Error())
}

func newApp(cfg *config.Config) *app {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	auditLog, err := audit.New(cfg.LogDir)
	if err != nil {
		// the security log is best effort
		logger.WithError(err).Warn("Security log unavailable")
		auditLog = nil
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		audit:  auditLog,
		vault:  vault.NewService(auditLog, logger),
	}
}

// parseOptions reads the flags after the command. Exactly one positional
// path is required.
func parseOptions(args []string) (Options, error) {
	var opts Options

	for _, arg := range args {
		switch {
		case arg == "--secure-delete":
			opts.SecureDelete = true
		case arg == "--yes" || arg == "-y":
			opts.AssumeYes = true
		case arg == "--extract" || arg == "-x":
			opts.Extract = true
		case arg == "--verbose":
			opts.Verbose = true
		case strings.HasPrefix(arg, "--keyfile="):
			opts.KeyfilePath = strings.TrimPrefix(arg, "--keyfile=")
		case strings.HasPrefix(arg, "-k="):
			opts.KeyfilePath = strings.TrimPrefix(arg, "-k=")
		case strings.HasPrefix(arg, "--out="):
			opts.OutPath = strings.TrimPrefix(arg, "--out=")
		case strings.HasPrefix(arg, "-o="):
			opts.OutPath = strings.TrimPrefix(arg, "-o=")
		case strings.HasPrefix(arg, "--log-dir="):
			opts.LogDir = strings.TrimPrefix(arg, "--log-dir=")
		case strings.HasPrefix(arg, "-"):
			return opts, fmt.Errorf("unknown option: %s", arg)
		default:
			if opts.Path != "" {
				return opts, fmt.Errorf("unexpected argument: %s", arg)
			}
			opts.Path = arg
		}
	}

	if opts.Path == "" {
		return opts, fmt.Errorf("no path specified")
	}
	return opts, nil
}

func printUsage() {
	usage := `securevault - Password and keyfile protected file and folder encryption

USAGE:
    securevault <command> [options] <path>

COMMANDS:
    --encrypt, -e       Lock a file or folder
    --decrypt, -d       Unlock a .svlt container
    --info              Check whether a file is a SecureVault container
    --analyze           Check whether a folder can be locked
    --help, -h          Show this help message
    --version, -v       Show version information

OPTIONS:
    --keyfile=PATH, -k=PATH   Use a keyfile as second factor
    --out=PATH, -o=PATH       Output file or directory
    --secure-delete           Overwrite and remove the original after locking
    --yes, -y                 Do not ask before locking a large folder
    --extract, -x             Unpack a decrypted folder archive
    --log-dir=DIR             Security log directory
    --verbose                 Show debug messages

PASSPHRASE:
    Set SECUREVAULT_PASSPHRASE environment variable, or enter interactively.

EXAMPLES:
    # Lock a file with a keyfile (writes report.pdf.svlt)
    securevault -e -k=~/usb/key.bin report.pdf

    # Lock a folder and erase the original (writes Photos.zip.svlt)
    securevault -e --secure-delete Photos

    # Unlock and unpack a folder (writes Photos_decrypted/)
    securevault -d -x Photos.zip.svlt

SECURITY:
    - AES-256-GCM, header authenticated as associated data
    - Key derived using Argon2id (64MB, 3 iterations)
    - Filename stored inside the encrypted payload
    - Outputs never overwrite existing files
`
	fmt.Fprint(os.Stderr, usage)
}
