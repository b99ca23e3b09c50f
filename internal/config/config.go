package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Environment variables
const (
	EnvPassphrase = "SECUREVAULT_PASSPHRASE"
	EnvLogDir     = "SECUREVAULT_LOG_DIR"
	EnvLogLevel   = "SECUREVAULT_LOG_LEVEL"
)

// AppDirName is the per-user directory holding the security log
const AppDirName = "SecureVault"

// Config holds settings that do not come from the command line
type Config struct {
	Passphrase string `json:"-"`
	LogDir     string `json:"log_dir"`
	LogLevel   string `json:"log_level"`
}

// Load reads the environment and fills defaults
func Load() *Config {
	cfg := &Config{
		Passphrase: os.Getenv(EnvPassphrase),
		LogDir:     strings.TrimSpace(os.Getenv(EnvLogDir)),
		LogLevel:   strings.TrimSpace(os.Getenv(EnvLogLevel)),
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

// DefaultLogDir is the user cache directory, or the temp directory when the
// platform has none
func DefaultLogDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, AppDirName)
	}
	return filepath.Join(os.TempDir(), AppDirName)
}

// Level parses LogLevel, falling back to info
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
