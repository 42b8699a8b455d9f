package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tjfontaine/virthooks/internal/core/domain"
	"github.com/tjfontaine/virthooks/internal/core/ports"
	"github.com/tjfontaine/virthooks/internal/hookenv"
	"github.com/tjfontaine/virthooks/internal/registry"
	"github.com/tjfontaine/virthooks/internal/storage/memory"
)

const hookPoint = "before_vm_start"

// fixture creates a hooks root with one hook-point directory and returns an
// executor over it plus the directory to install scripts into.
func fixture(t *testing.T, logger *slog.Logger, store ports.RunStore) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, hookPoint)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	e := NewExecutor(Config{
		Registry: registry.New(root),
		Logger:   logger,
		Store:    store,
	})
	return e, dir
}

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("Chmod(%s) error = %v", name, err)
	}
}

// appender appends its own name to the staged payload, echoes it to stderr,
// and exits with the given status. Mirrors the canonical hook shape.
func appender(t *testing.T, dir, name string, exitCode int) {
	writeScript(t, dir, name, fmt.Sprintf(`myname="$(basename "$0")"
printf '%%s\n' "$myname" >> "$_hook_domxml"
echo "$myname" >&2
exit %d
`, exitCode))
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_NoScriptsReturnsPayloadUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		payload domain.Payload
	}{
		{"raw text", domain.DomainXMLPayload("algo")},
		{"empty raw text", domain.DomainXMLPayload("")},
		{"structured", domain.JSONPayload(map[string]any{"abc": "def"})},
		{"absent structured", domain.JSONPayload(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := fixture(t, discard(), nil)
			res, err := e.Run(context.Background(), Request{HookPoint: hookPoint, Payload: tt.payload})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Payload.Text != tt.payload.Text {
				t.Errorf("Text = %q, want %q", res.Payload.Text, tt.payload.Text)
			}
			if len(res.Payload.Data) != len(tt.payload.Data) {
				t.Errorf("Data = %v, want %v", res.Payload.Data, tt.payload.Data)
			}
			if len(res.Diagnostics) != 0 {
				t.Errorf("Diagnostics = %v, want none", res.Diagnostics)
			}
		})
	}
}

func TestRun_SingleHookAppendsToPayload(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	appender(t, dir, "myhook.sh", 0)

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload("123"),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Payload.Text != "123myhook.sh\n" {
		t.Errorf("Text = %q, want %q", res.Payload.Text, "123myhook.sh\n")
	}
}

func TestRun_ScriptsChainInSortedNameOrder(t *testing.T) {
	// Install in non-sorted order; execution order must not depend on it.
	for _, names := range [][]string{
		{"1.sh", "2.sh", "3.sh"},
		{"3.sh", "1.sh", "2.sh"},
		{"2.sh", "3.sh", "1.sh"},
	} {
		t.Run(strings.Join(names, "-"), func(t *testing.T) {
			e, dir := fixture(t, discard(), nil)
			for _, name := range names {
				appender(t, dir, name, 0)
			}
			res, err := e.Run(context.Background(), Request{
				HookPoint: hookPoint,
				Payload:   domain.DomainXMLPayload(""),
			})
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Payload.Text != "1.sh\n2.sh\n3.sh\n" {
				t.Errorf("Text = %q, want scripts chained in sorted order", res.Payload.Text)
			}
		})
	}
}

func TestRun_NonFatalFaultContinues(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	appender(t, dir, "1.sh", 0)
	appender(t, dir, "2.sh", 1)
	appender(t, dir, "3.sh", 0)

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeLenient,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Payload.Text != "1.sh\n2.sh\n3.sh\n" {
		t.Errorf("Text = %q, want all scripts to have run", res.Payload.Text)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one", res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Script != "2.sh" || d.Severity != domain.SeverityError || d.ExitStatus != 1 {
		t.Errorf("Diagnostic = %+v", d)
	}
}

func TestRun_FatalFaultAbortsRemainingScripts(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	appender(t, dir, "1.sh", 0)
	appender(t, dir, "2.sh", 2)
	appender(t, dir, "3.sh", 0)

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeLenient,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Payload.Text != "1.sh\n2.sh\n" {
		t.Errorf("Text = %q, want 3.sh skipped", res.Payload.Text)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one", res.Diagnostics)
	}
	if res.Diagnostics[0].Severity != domain.SeverityFatal || res.Diagnostics[0].ExitStatus != 2 {
		t.Errorf("Diagnostic = %+v", res.Diagnostics[0])
	}
}

func TestRun_StrictModeAggregatesAllFaults(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	appender(t, dir, "1.sh", 0)
	appender(t, dir, "2.sh", 1)
	appender(t, dir, "3.sh", 1)

	_, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeStrict,
	})
	if err == nil {
		t.Fatal("Run() expected error")
	}
	var pipeErr *domain.PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error = %T, want *PipelineError", err)
	}
	if len(pipeErr.Diagnostics) != 2 {
		t.Fatalf("Diagnostics = %v, want two", pipeErr.Diagnostics)
	}
	if pipeErr.Diagnostics[0].Script != "2.sh" || pipeErr.Diagnostics[1].Script != "3.sh" {
		t.Errorf("diagnostic order = %s, %s", pipeErr.Diagnostics[0].Script, pipeErr.Diagnostics[1].Script)
	}
	for _, script := range []string{"2.sh", "3.sh"} {
		if !strings.Contains(err.Error(), script) {
			t.Errorf("error %q does not name %s", err.Error(), script)
		}
	}
	// Payload state up to the abort point travels with the aggregate.
	if pipeErr.Payload.Text != "1.sh\n2.sh\n3.sh\n" {
		t.Errorf("Payload.Text = %q", pipeErr.Payload.Text)
	}
	if pipeErr.Fatal {
		t.Error("Fatal = true, want false for exit status 1 faults")
	}
}

func TestRun_StrictModeRaisesOnFatal(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	appender(t, dir, "1.sh", 2)

	_, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeStrict,
	})
	var pipeErr *domain.PipelineError
	if !errors.As(err, &pipeErr) {
		t.Fatalf("error = %v, want *PipelineError", err)
	}
	if !pipeErr.Fatal {
		t.Error("Fatal = false, want true")
	}
}

func TestRun_InvalidExitStatusWarnsAndContinues(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	e, dir := fixture(t, logger, nil)
	appender(t, dir, "1.sh", 111)
	appender(t, dir, "2.sh", 0)

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeLenient,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Payload.Text != "1.sh\n2.sh\n" {
		t.Errorf("Text = %q, want both scripts to have run", res.Payload.Text)
	}

	if len(res.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one warning", res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Severity != domain.SeverityWarning || d.ExitStatus != 111 || !strings.Contains(d.Detail, "111") {
		t.Errorf("Diagnostic = %+v", d)
	}
	if !strings.Contains(logBuf.String(), "111") || !strings.Contains(logBuf.String(), "WARN") {
		t.Errorf("log output missing warning for status 111: %s", logBuf.String())
	}
}

func TestRun_InvalidExitStatusNeverRaisesInStrictMode(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	appender(t, dir, "1.sh", 111)

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeStrict,
	})
	if err != nil {
		t.Fatalf("Run() error = %v, want warning-only success", err)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != domain.SeverityWarning {
		t.Errorf("Diagnostics = %v", res.Diagnostics)
	}
}

func TestRun_StderrIsLoggedPerScript(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuf, nil))

	e, dir := fixture(t, logger, nil)
	appender(t, dir, "1.sh", 0)

	if _, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := logBuf.String()
	if !strings.Contains(out, "hook stderr") || !strings.Contains(out, "script=1.sh") {
		t.Errorf("stderr not logged with script attribution: %s", out)
	}
}

func TestRun_EnvironmentAssembly(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	dump := filepath.Join(t.TempDir(), "env_dump")
	writeScript(t, dir, "env_dump.sh", "env > "+dump+"\n")

	_, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Entity: domain.EntityConfig{
			ID:     "myvm",
			Custom: map[string]string{"abc": "geh"},
		},
		Params: map[string]string{"abc": "def", "other": "x"},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	content, err := os.ReadFile(dump)
	if err != nil {
		t.Fatalf("ReadFile(dump) error = %v", err)
	}
	env := string(content)
	for _, want := range []string{"vmId=myvm\n", "abc=geh\n", "other=x\n"} {
		if !strings.Contains(env, want) {
			t.Errorf("script environment missing %q:\n%s", want, env)
		}
	}
	if strings.Contains(env, "abc=def") {
		t.Error("explicit parameter not overridden by entity configuration")
	}
	if !strings.Contains(env, hookenv.DomXMLVar+"=") {
		t.Errorf("script environment missing %s", hookenv.DomXMLVar)
	}
}

func TestRun_StagedFileRemovedAfterRun(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	pathDump := filepath.Join(t.TempDir(), "staged_path")
	writeScript(t, dir, "dump_path.sh", `printf '%s' "$_hook_domxml" > `+pathDump+"\n")

	if _, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload("x"),
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stagedPath, err := os.ReadFile(pathDump)
	if err != nil {
		t.Fatalf("ReadFile(pathDump) error = %v", err)
	}
	if len(stagedPath) == 0 {
		t.Fatal("script saw no staged file path")
	}
	if _, err := os.Stat(string(stagedPath)); !os.IsNotExist(err) {
		t.Errorf("staged file %s still exists after run", stagedPath)
	}
}

func TestRun_JSONPayloadChaining(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	writeScript(t, dir, "rewrite.sh", `printf '{"abc":"def"}' > "$_hook_json"`+"\n")

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.JSONPayload(map[string]any{"old": "value"}),
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Payload.Data["abc"] != "def" {
		t.Errorf("Data = %v", res.Payload.Data)
	}
	if _, ok := res.Payload.Data["old"]; ok {
		t.Error("rewritten payload still carries the old key")
	}
}

func TestRun_CorruptJSONIsFatalEvenInLenientMode(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	writeScript(t, dir, "corrupt.sh", `printf 'not json' > "$_hook_json"`+"\n")

	_, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.JSONPayload(map[string]any{"abc": "def"}),
		Mode:      domain.ModeLenient,
	})
	if err == nil {
		t.Fatal("Run() expected error")
	}
	var hookErr *domain.HookError
	if !errors.As(err, &hookErr) || hookErr.Type != domain.ErrorTypePayloadDecode {
		t.Errorf("error = %v, want payload_decode", err)
	}
}

func TestRun_DirectOutputChainsStdout(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	writeScript(t, dir, "1.sh", `cat "$_hook_domxml"
echo extra
`)
	appender(t, dir, "2.sh", 0)

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload("base\n"),
		Output:    domain.OutputDirect,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Payload.Text != "base\nextra\n2.sh\n" {
		t.Errorf("Text = %q, want stdout chained into the next stage", res.Payload.Text)
	}
}

func TestRun_LaunchFailureAbortsWithFatalDiagnostic(t *testing.T) {
	e, dir := fixture(t, discard(), nil)
	appender(t, dir, "1.sh", 0)
	// Unstartable: interpreter does not exist.
	path := filepath.Join(dir, "2.sh")
	if err := os.WriteFile(path, []byte("#!/nonexistent/interpreter\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	appender(t, dir, "3.sh", 0)

	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeLenient,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Payload.Text != "1.sh\n" {
		t.Errorf("Text = %q, want later scripts skipped", res.Payload.Text)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("Diagnostics = %v, want one", res.Diagnostics)
	}
	d := res.Diagnostics[0]
	if d.Script != "2.sh" || d.Severity != domain.SeverityFatal {
		t.Errorf("Diagnostic = %+v", d)
	}
}

func TestRun_ScriptTimeoutAborts(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, hookPoint)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}
	e := NewExecutor(Config{
		Registry:      registry.New(root),
		Logger:        discard(),
		ScriptTimeout: 100 * time.Millisecond,
	})
	writeScript(t, dir, "hang.sh", "sleep 10\n")

	start := time.Now()
	res, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Mode:      domain.ModeLenient,
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("timeout did not bound the wait")
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != domain.SeverityFatal {
		t.Errorf("Diagnostics = %v, want one fatal timeout record", res.Diagnostics)
	}
}

func TestRun_RecordsAuditRecord(t *testing.T) {
	store := memory.New()
	e, dir := fixture(t, discard(), store)
	appender(t, dir, "1.sh", 1)

	if _, err := e.Run(context.Background(), Request{
		HookPoint: hookPoint,
		Payload:   domain.DomainXMLPayload(""),
		Entity:    domain.EntityConfig{ID: "myvm"},
		Mode:      domain.ModeLenient,
	}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	runs, err := store.ListRuns(context.Background(), ports.RunListOptions{})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() count = %d, want 1", len(runs))
	}
	rec := runs[0]
	if rec.HookPoint != hookPoint || rec.EntityID != "myvm" || rec.Status != ports.RunStatusFaults {
		t.Errorf("RunRecord = %+v", rec)
	}
	if rec.Scripts != 1 || len(rec.Diagnostics) != 1 {
		t.Errorf("RunRecord counts = %d scripts, %d diagnostics", rec.Scripts, len(rec.Diagnostics))
	}
	if !strings.HasPrefix(rec.ID, "run_") {
		t.Errorf("ID = %q", rec.ID)
	}
}

func TestRun_InvalidHookPointRaisesImmediately(t *testing.T) {
	e, _ := fixture(t, discard(), nil)
	for _, mode := range []domain.FailureMode{domain.ModeStrict, domain.ModeLenient} {
		_, err := e.Run(context.Background(), Request{
			HookPoint: "../escape",
			Payload:   domain.DomainXMLPayload(""),
			Mode:      mode,
		})
		var hookErr *domain.HookError
		if !errors.As(err, &hookErr) || hookErr.Type != domain.ErrorTypeInvalidHookPoint {
			t.Errorf("mode %s: error = %v, want invalid_hook_point", mode, err)
		}
	}
}
