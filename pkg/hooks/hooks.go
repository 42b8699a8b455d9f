// Package hooks provides the public API for embedding the hook execution
// engine. This is the stable API for external consumers.
package hooks

import (
	"github.com/tjfontaine/virthooks/internal/core/domain"
	"github.com/tjfontaine/virthooks/internal/pipeline"
	"github.com/tjfontaine/virthooks/internal/runtime"
)

// Engine is the main entry point for running hook-point pipelines.
// See internal/runtime.Engine for full documentation.
type Engine = runtime.Engine

// Option is a functional option for configuring an Engine.
type Option = runtime.Option

// Request describes one hook-point invocation.
type Request = pipeline.Request

// Core domain types threaded through the API.
type (
	Payload      = domain.Payload
	PayloadKind  = domain.PayloadKind
	FailureMode  = domain.FailureMode
	OutputMode   = domain.OutputMode
	EntityConfig = domain.EntityConfig
	Diagnostic   = domain.Diagnostic
	RunResult    = domain.RunResult
	Fingerprint  = domain.Fingerprint

	// HookError is the canonical single-failure error; PipelineError is
	// the strict-mode aggregate.
	HookError     = domain.HookError
	PipelineError = domain.PipelineError
)

// Payload constructors and kinds.
var (
	DomainXMLPayload = domain.DomainXMLPayload
	JSONPayload      = domain.JSONPayload
)

const (
	KindDomainXML = domain.KindDomainXML
	KindJSON      = domain.KindJSON

	ModeStrict  = domain.ModeStrict
	ModeLenient = domain.ModeLenient

	OutputStaged = domain.OutputStaged
	OutputDirect = domain.OutputDirect

	LaunchFlagNone        = domain.LaunchFlagNone
	LaunchFlagStartPaused = domain.LaunchFlagStartPaused
)

// New creates a new Engine with the given options.
// Example:
//
//	eng, err := hooks.New(
//	    hooks.WithHooksRoot("/usr/libexec/virthooks/hooks"),
//	    hooks.WithSQLiteAudit("./data/hookruns.db"),
//	)
var New = runtime.New

// Configuration options
var (
	WithConfig     = runtime.WithConfig
	WithFileConfig = runtime.WithFileConfig
	WithHooksRoot  = runtime.WithHooksRoot
	WithFlagsDir   = runtime.WithFlagsDir

	WithScriptTimeout = runtime.WithScriptTimeout
	WithLogger        = runtime.WithLogger

	// Run auditing
	WithSQLiteAudit = runtime.WithSQLiteAudit
	WithMemoryAudit = runtime.WithMemoryAudit
	WithRunStore    = runtime.WithRunStore
)
