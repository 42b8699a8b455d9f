package domain

// Severity classifies a recorded diagnostic.
type Severity string

const (
	// SeverityWarning marks informational diagnostics (unrecognized exit
	// statuses). Warnings never cause a strict-mode raise.
	SeverityWarning Severity = "warning"

	// SeverityError marks a non-fatal fault (exit status 1).
	SeverityError Severity = "error"

	// SeverityFatal marks a pipeline-aborting fault (exit status 2 or a
	// failed launch).
	SeverityFatal Severity = "fatal"
)

// Diagnostic is one recorded (script, detail) pair from a pipeline run.
type Diagnostic struct {
	// Script is the base name of the hook script.
	Script string `json:"script"`

	// Severity classifies the record.
	Severity Severity `json:"severity"`

	// Detail is the captured standard-error output or a description of
	// what went wrong.
	Detail string `json:"detail"`

	// ExitStatus is the script's exit status, when it ran at all.
	ExitStatus int `json:"exit_status"`
}

// RunResult is the successful outcome of a pipeline run: the final chained
// payload plus any diagnostics recorded along the way.
type RunResult struct {
	Payload     Payload
	Diagnostics []Diagnostic
}

// Faulted reports whether the run recorded at least one non-warning
// diagnostic.
func (r *RunResult) Faulted() bool {
	for _, d := range r.Diagnostics {
		if d.Severity != SeverityWarning {
			return true
		}
	}
	return false
}
