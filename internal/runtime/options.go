package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/virthooks/internal/config"
	"github.com/tjfontaine/virthooks/internal/core/ports"
	"github.com/tjfontaine/virthooks/internal/storage/memory"
	"github.com/tjfontaine/virthooks/internal/storage/sqlite"
)

// Option is a functional option for configuring an Engine.
type Option func(*Engine) error

// WithConfig applies a loaded configuration: hooks root, flags directory,
// script timeout, and the audit store selection.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) error {
		if cfg.Hooks.Root != "" {
			e.hooksRoot = cfg.Hooks.Root
		}
		if cfg.Flags.Dir != "" {
			e.flagsDir = cfg.Flags.Dir
		}
		e.scriptTimeout = cfg.ScriptTimeoutDuration()

		switch cfg.Audit.Type {
		case "", "none":
		case "memory":
			e.store = memory.New()
		case "sqlite":
			store, err := sqlite.New(cfg.Audit.SQLite.Path)
			if err != nil {
				return fmt.Errorf("create sqlite audit store: %w", err)
			}
			e.store = store
		default:
			return fmt.Errorf("unknown audit store type %q", cfg.Audit.Type)
		}
		return nil
	}
}

// WithFileConfig loads the given YAML config file (with environment
// overrides) and applies it.
func WithFileConfig(path string) Option {
	return func(e *Engine) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
		return WithConfig(cfg)(e)
	}
}

// WithHooksRoot sets the directory whose subdirectories are the hook points.
func WithHooksRoot(root string) Option {
	return func(e *Engine) error {
		e.hooksRoot = root
		return nil
	}
}

// WithFlagsDir sets the launch-flag storage directory.
func WithFlagsDir(dir string) Option {
	return func(e *Engine) error {
		e.flagsDir = dir
		return nil
	}
}

// WithScriptTimeout bounds the wait for a single hook script. Zero disables
// the bound.
func WithScriptTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		e.scriptTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithSQLiteAudit records every pipeline run to a SQLite database.
func WithSQLiteAudit(path string) Option {
	return func(e *Engine) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite audit store: %w", err)
		}
		e.store = store
		return nil
	}
}

// WithMemoryAudit records pipeline runs in memory only.
func WithMemoryAudit() Option {
	return func(e *Engine) error {
		e.store = memory.New()
		return nil
	}
}

// WithRunStore sets a custom audit store.
func WithRunStore(store ports.RunStore) Option {
	return func(e *Engine) error {
		e.store = store
		return nil
	}
}
