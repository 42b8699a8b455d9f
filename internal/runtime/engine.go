// Package runtime assembles the hook engine from its components and exposes
// the embedding API re-exported by pkg/hooks.
package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/tjfontaine/virthooks/internal/core/domain"
	"github.com/tjfontaine/virthooks/internal/core/ports"
	"github.com/tjfontaine/virthooks/internal/flags"
	"github.com/tjfontaine/virthooks/internal/pipeline"
	"github.com/tjfontaine/virthooks/internal/registry"
)

// Engine is the extension-point execution engine: it runs hook-point
// pipelines, fingerprints installed scripts, and persists per-entity launch
// flags. Independent pipeline invocations may run concurrently; each run
// owns its own staged file and environment.
type Engine struct {
	logger        *slog.Logger
	hooksRoot     string
	flagsDir      string
	scriptTimeout time.Duration
	store         ports.RunStore

	registry *registry.Registry
	executor *pipeline.Executor
	flags    *flags.Store
}

// New creates an engine with the given options. Without options the engine
// uses the packaged default paths, the default slog logger, and no run
// auditing.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		hooksRoot: "/usr/libexec/virthooks/hooks",
		flagsDir:  "/run/virthooks/launchflags",
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	e.registry = registry.New(e.hooksRoot)
	e.flags = flags.New(e.flagsDir)
	e.executor = pipeline.NewExecutor(pipeline.Config{
		Registry:      e.registry,
		Logger:        e.logger,
		Store:         e.store,
		ScriptTimeout: e.scriptTimeout,
	})
	return e, nil
}

// Run executes one hook-point pipeline. See pipeline.Executor for the exit
// status taxonomy and the strict/lenient contract.
func (e *Engine) Run(ctx context.Context, req pipeline.Request) (*domain.RunResult, error) {
	return e.executor.Run(ctx, req)
}

// ScriptInfo returns the content fingerprint for one script path.
func (e *Engine) ScriptInfo(path string) domain.Fingerprint {
	return e.registry.ScriptInfo(path)
}

// HookInfo returns the fingerprints of every executable script installed at
// the hook point, keyed by script name.
func (e *Engine) HookInfo(hookPoint string) (map[string]domain.Fingerprint, error) {
	return e.registry.HookInfo(hookPoint)
}

// SaveLaunchFlags persists the launch flag for an entity.
func (e *Engine) SaveLaunchFlags(entityID string, flag int) error {
	return e.flags.Save(entityID, flag)
}

// LoadLaunchFlags reads an entity's persisted launch flag, failing
// explicitly when absent or malformed.
func (e *Engine) LoadLaunchFlags(entityID string) (int, error) {
	return e.flags.Load(entityID)
}

// RemoveLaunchFlags deletes an entity's launch flag file. Idempotent.
func (e *Engine) RemoveLaunchFlags(entityID string) error {
	return e.flags.Remove(entityID)
}

// ListRuns lists audited pipeline runs, newest first. Returns nil when no
// audit store is configured.
func (e *Engine) ListRuns(ctx context.Context, opts ports.RunListOptions) ([]*ports.RunRecord, error) {
	if e.store == nil {
		return nil, nil
	}
	return e.store.ListRuns(ctx, opts)
}

// Close releases the audit store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}
