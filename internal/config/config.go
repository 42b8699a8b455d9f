// Package config loads the engine configuration from a YAML file with
// environment variable overrides.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Hooks HooksConfig `koanf:"hooks"`
	Flags FlagsConfig `koanf:"flags"`
	Audit AuditConfig `koanf:"audit"`
}

type HooksConfig struct {
	// Root is the directory whose subdirectories are the hook points.
	Root string `koanf:"root"`

	// ScriptTimeout bounds the wait for a single script ("30s", "2m").
	// Empty or zero disables the bound.
	ScriptTimeout string `koanf:"script_timeout"`
}

type FlagsConfig struct {
	// Dir holds one launch-flag file per entity identifier.
	Dir string `koanf:"dir"`
}

type AuditConfig struct {
	// Type selects the run-audit store: sqlite, memory, none.
	Type   string       `koanf:"type"`
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ScriptTimeoutDuration parses the configured script timeout. Invalid or
// empty values disable the bound.
func (c *Config) ScriptTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Hooks.ScriptTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// Load reads the default config file ("config.yaml" in the working
// directory) when present, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile reads the given YAML file when present, then applies environment
// overrides with the VIRTHOOKS_ prefix (VIRTHOOKS_HOOKS__ROOT → hooks.root).
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars and defaults.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("VIRTHOOKS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VIRTHOOKS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	if !k.Exists("hooks.root") {
		k.Set("hooks.root", "/usr/libexec/virthooks/hooks")
	}
	if !k.Exists("flags.dir") {
		k.Set("flags.dir", "/run/virthooks/launchflags")
	}
	if !k.Exists("audit.type") {
		k.Set("audit.type", "none")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
