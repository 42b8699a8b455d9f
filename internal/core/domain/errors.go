// Package domain provides the canonical types and error taxonomy for the
// hook execution engine.
package domain

import (
	"fmt"
	"strings"
)

// ErrorType represents the category of a hook engine error.
type ErrorType string

const (
	// ErrorTypeInvalidHookPoint indicates an unsafe or malformed hook-point name.
	ErrorTypeInvalidHookPoint ErrorType = "invalid_hook_point"

	// ErrorTypeLaunch indicates a script could not be started at all
	// (missing interpreter, permission denied at launch time).
	ErrorTypeLaunch ErrorType = "launch"

	// ErrorTypeFault indicates a non-fatal script failure (exit status 1).
	ErrorTypeFault ErrorType = "fault"

	// ErrorTypeFatalFault indicates a pipeline-aborting script failure
	// (exit status 2).
	ErrorTypeFatalFault ErrorType = "fatal_fault"

	// ErrorTypeInvalidExitStatus indicates an unrecognized exit status.
	// It is always recorded as a warning and never raised.
	ErrorTypeInvalidExitStatus ErrorType = "invalid_exit_status"

	// ErrorTypePayloadDecode indicates staged content that is unparsable
	// for the declared payload kind.
	ErrorTypePayloadDecode ErrorType = "payload_decode"

	// ErrorTypeLaunchFlag indicates a missing or corrupt persisted launch
	// flag, or an unsafe entity identifier.
	ErrorTypeLaunchFlag ErrorType = "launch_flag"
)

// HookError is the canonical error for a single engine failure.
type HookError struct {
	// Type is the category of error.
	Type ErrorType

	// Script is the base name of the hook script involved, if any.
	Script string

	// Message is the human-readable detail.
	Message string

	// ExitStatus carries the offending exit status for fault errors.
	ExitStatus int
}

// Error implements the error interface.
func (e *HookError) Error() string {
	if e.Script != "" {
		return fmt.Sprintf("%s: %s: %s", e.Type, e.Script, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// WithScript attributes the error to a script name.
func (e *HookError) WithScript(script string) *HookError {
	e.Script = script
	return e
}

// WithExitStatus records the exit status that produced the error.
func (e *HookError) WithExitStatus(status int) *HookError {
	e.ExitStatus = status
	return e
}

// NewHookError creates a new hook error.
func NewHookError(errType ErrorType, message string) *HookError {
	return &HookError{Type: errType, Message: message}
}

// ErrInvalidHookPoint creates an invalid hook-point name error.
func ErrInvalidHookPoint(message string) *HookError {
	return NewHookError(ErrorTypeInvalidHookPoint, message)
}

// ErrLaunch creates a script launch error.
func ErrLaunch(script, message string) *HookError {
	return NewHookError(ErrorTypeLaunch, message).WithScript(script)
}

// ErrPayloadDecode creates a payload decode error.
func ErrPayloadDecode(message string) *HookError {
	return NewHookError(ErrorTypePayloadDecode, message)
}

// ErrLaunchFlag creates a launch-flag storage error.
func ErrLaunchFlag(message string) *HookError {
	return NewHookError(ErrorTypeLaunchFlag, message)
}

// PipelineError is the aggregate failure raised in strict mode when one or
// more scripts recorded a fault. Diagnostics are in pipeline order and the
// payload reflects the chained state up to the point the pipeline stopped.
type PipelineError struct {
	HookPoint   string
	Diagnostics []Diagnostic
	Fatal       bool
	Payload     Payload
}

// Error enumerates every contributing script in pipeline order.
func (e *PipelineError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hook point %s failed:", e.HookPoint)
	for _, d := range e.Diagnostics {
		fmt.Fprintf(&b, " [%s: %s]", d.Script, d.Detail)
	}
	return b.String()
}

// FaultDiagnostics returns the diagnostics that count as pipeline faults,
// excluding warning-severity records.
func (e *PipelineError) FaultDiagnostics() []Diagnostic {
	var out []Diagnostic
	for _, d := range e.Diagnostics {
		if d.Severity != SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}
