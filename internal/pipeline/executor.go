package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/virthooks/internal/core/domain"
	"github.com/tjfontaine/virthooks/internal/core/ports"
	"github.com/tjfontaine/virthooks/internal/hookenv"
	"github.com/tjfontaine/virthooks/internal/registry"
	"github.com/tjfontaine/virthooks/internal/stager"
)

const tracerName = "github.com/tjfontaine/virthooks/internal/pipeline"

// Executor runs the scripts of one hook point strictly sequentially,
// chaining the payload through the staged file and classifying each exit
// status into the continue/abort state machine.
type Executor struct {
	registry *registry.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	store    ports.RunStore
	timeout  time.Duration
}

// Config configures an executor.
type Config struct {
	Registry *registry.Registry
	Logger   *slog.Logger

	// Store receives one audit record per run. Optional; nil disables
	// recording.
	Store ports.RunStore

	// ScriptTimeout bounds the wait for a single script. Zero disables it.
	ScriptTimeout time.Duration
}

// NewExecutor creates an executor from configuration.
func NewExecutor(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: cfg.Registry,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		store:    cfg.Store,
		timeout:  cfg.ScriptTimeout,
	}
}

// Request describes one hook-point invocation.
type Request struct {
	HookPoint string
	Payload   domain.Payload
	Entity    domain.EntityConfig
	Params    map[string]string

	// Mode defaults to strict: faults raise an aggregate *PipelineError.
	Mode domain.FailureMode

	// Output defaults to staged-file chaining.
	Output domain.OutputMode
}

// Run executes the hook point's scripts in sorted-name order. The staged
// payload file is owned by this run and removed on every exit path.
//
// The call blocks until every script has exited or the pipeline aborts; no
// partial result is exposed mid-run.
func (e *Executor) Run(ctx context.Context, req Request) (*domain.RunResult, error) {
	if req.Mode == "" {
		req.Mode = domain.ModeStrict
	}
	if req.Output == "" {
		req.Output = domain.OutputStaged
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "hooks.run",
		trace.WithAttributes(
			attribute.String("hook.point", req.HookPoint),
			attribute.String("hook.mode", string(req.Mode)),
		))
	defer span.End()

	scripts, err := e.registry.Scripts(req.HookPoint)
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return &domain.RunResult{Payload: req.Payload}, nil
	}

	staged, err := stager.Stage(req.Payload)
	if err != nil {
		return nil, err
	}
	defer staged.Close()

	var diags []domain.Diagnostic
	fatal := false
	for _, script := range scripts {
		diag, abort := e.runScript(ctx, script, staged, req)
		if diag != nil {
			diags = append(diags, *diag)
		}
		if abort {
			fatal = true
			break
		}
	}

	payload, err := staged.Reload()
	if err != nil {
		e.record(ctx, req, len(scripts), diags, ports.RunStatusFatal, time.Since(start))
		return nil, err
	}

	result := &domain.RunResult{Payload: payload, Diagnostics: diags}
	status := ports.RunStatusOK
	switch {
	case fatal:
		status = ports.RunStatusFatal
	case result.Faulted():
		status = ports.RunStatusFaults
	}
	e.record(ctx, req, len(scripts), diags, status, time.Since(start))

	if req.Mode == domain.ModeStrict && (fatal || result.Faulted()) {
		return nil, &domain.PipelineError{
			HookPoint:   req.HookPoint,
			Diagnostics: diags,
			Fatal:       fatal,
			Payload:     payload,
		}
	}
	return result, nil
}

// runScript launches one script and classifies its exit status. It returns
// the recorded diagnostic, if any, and whether the pipeline must abort.
func (e *Executor) runScript(ctx context.Context, script domain.HookScript, staged *stager.StagedFile, req Request) (*domain.Diagnostic, bool) {
	ctx, span := e.tracer.Start(ctx, "hooks.script",
		trace.WithAttributes(attribute.String("hook.script", script.Name)))
	defer span.End()

	cancel := func() {}
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, script.Path)
	cmd.Env = hookenv.Build(os.Environ(), req.Entity, req.Params, staged.Path(), staged.Kind())

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	if req.Output == domain.OutputDirect {
		cmd.Stdout = &stdout
	}

	runErr := cmd.Run()
	e.logStderr(script.Name, stderr.String())

	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			launchErr := domain.ErrLaunch(script.Name, runErr.Error())
			e.logger.Error("hook could not be started",
				slog.String("script", script.Name),
				slog.String("error", runErr.Error()))
			return &domain.Diagnostic{
				Script:     script.Name,
				Severity:   domain.SeverityFatal,
				Detail:     launchErr.Error(),
				ExitStatus: -1,
			}, true
		}
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &domain.Diagnostic{
			Script:     script.Name,
			Severity:   domain.SeverityFatal,
			Detail:     fmt.Sprintf("killed after exceeding the %s script timeout", e.timeout),
			ExitStatus: -1,
		}, true
	}

	// Stdout chaining applies regardless of exit status, matching the
	// staged file where a failing script's edits still reach later stages.
	if req.Output == domain.OutputDirect && staged.Kind() == domain.KindDomainXML && stdout.Len() > 0 {
		if err := staged.Replace(stdout.Bytes()); err != nil {
			return &domain.Diagnostic{
				Script:     script.Name,
				Severity:   domain.SeverityFatal,
				Detail:     err.Error(),
				ExitStatus: -1,
			}, true
		}
	}

	detail := strings.TrimSpace(stderr.String())
	switch code := cmd.ProcessState.ExitCode(); code {
	case 0:
		return nil, false
	case 1:
		if detail == "" {
			detail = "exit status 1"
		}
		return &domain.Diagnostic{
			Script:     script.Name,
			Severity:   domain.SeverityError,
			Detail:     detail,
			ExitStatus: 1,
		}, false
	case 2:
		if detail == "" {
			detail = "exit status 2"
		}
		return &domain.Diagnostic{
			Script:     script.Name,
			Severity:   domain.SeverityFatal,
			Detail:     detail,
			ExitStatus: 2,
		}, true
	default:
		e.logger.Warn("hook returned invalid exit status",
			slog.String("script", script.Name),
			slog.Int("exit_status", code))
		return &domain.Diagnostic{
			Script:     script.Name,
			Severity:   domain.SeverityWarning,
			Detail:     fmt.Sprintf("invalid exit status %d", code),
			ExitStatus: code,
		}, false
	}
}

// logStderr logs every captured stderr line at Info, attributed to the
// script. Diagnostic visibility only; stderr is not an error signal.
func (e *Executor) logStderr(script, output string) {
	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}
		e.logger.Info("hook stderr",
			slog.String("script", script),
			slog.String("line", line))
	}
}

// record writes the audit record, decoupled from the request lifecycle so a
// cancelled caller context cannot lose the record.
func (e *Executor) record(ctx context.Context, req Request, scripts int, diags []domain.Diagnostic, status string, duration time.Duration) {
	if e.store == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	rec := &ports.RunRecord{
		ID:          "run_" + uuid.New().String(),
		HookPoint:   req.HookPoint,
		EntityID:    req.Entity.ID,
		Mode:        string(req.Mode),
		Status:      status,
		Scripts:     scripts,
		Diagnostics: diags,
		Duration:    duration,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.RecordRun(persistCtx, rec); err != nil {
		e.logger.Error("failed to record hook run",
			slog.String("hook_point", req.HookPoint),
			slog.String("error", err.Error()))
	}
}
