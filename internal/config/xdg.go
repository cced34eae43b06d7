// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appName = "typerush"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultDBPath returns the default path for the local SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, "typerush.db")
}

// DefaultServerDBPath returns the default path for the server database.
func DefaultServerDBPath() string {
	return filepath.Join(XDGDataHome(), appName, "server.db")
}

// DefaultLogPath returns the client log file.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), appName, "typerush.log")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
