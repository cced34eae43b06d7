// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Race   RaceConfig   `toml:"race"`
	Sync   SyncConfig   `toml:"sync"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// RaceConfig maps gameplay settings.
type RaceConfig struct {
	Corpus  *string `toml:"corpus"`
	Rewards *string `toml:"rewards"`
}

// SyncConfig maps client synchronization settings.
type SyncConfig struct {
	ServerURL *string `toml:"server-url"`
	Timeout   *string `toml:"timeout"`
	PullLimit *int    `toml:"pull-limit"`
	Offline   *bool   `toml:"offline"`
}

// ServerConfig maps settings of the serve command.
type ServerConfig struct {
	Addr           *string  `toml:"addr"`
	DB             *string  `toml:"db"`
	TokenKey       *string  `toml:"token-key"`
	TokenTTL       *string  `toml:"token-ttl"`
	AllowedOrigins []string `toml:"allowed-origins"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// Template is written when the config file is first opened for editing.
const Template = `# typerush configuration

[race]
# corpus = "/path/to/quotes.toml"
# rewards = "/path/to/rewards.txt"

[sync]
# server-url = "http://localhost:8080"
# timeout = "10s"
# pull-limit = 1000
# offline = false

[server]
# addr = ":8080"
# db = "/path/to/server.db"
# token-key = "64 hex characters"
# token-ttl = "168h"
# allowed-origins = ["http://localhost:5173"]

[log]
# level = "info"
# file = "/path/to/typerush.log"
`

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// EnsureConfig writes the template when no config file exists yet.
func EnsureConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
