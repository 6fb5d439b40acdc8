// Package config resolves file locations for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// appDirName is the per-application directory under the XDG base directories.
const appDirName = "shekelsync"

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DefaultDatabasePath returns the database location used when none is
// configured: $XDG_DATA_HOME/shekelsync/shekelsync.db, falling back to
// ~/.local/share/shekelsync/shekelsync.db.
func DefaultDatabasePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "shekelsync.db"), nil
}

// DefaultConfigDir returns the directory searched for config.yaml:
// $XDG_CONFIG_HOME/shekelsync, falling back to ~/.config/shekelsync.
func DefaultConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appDirName), nil
}

func dataDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", appDirName), nil
}
