// Package pipeline provides the hook-point pipeline execution engine.
//
// For each hook point the executor runs the installed scripts strictly
// sequentially in sorted-name order, hands each one the staged payload file
// through its environment, re-reads the file after every stage so later
// scripts observe earlier edits, and classifies exit statuses:
//
//	0     success, advance
//	1     non-fatal fault, record and advance
//	2     fatal fault, record and abort
//	other invalid status, warn and advance
//
// In strict mode any recorded fault raises an aggregate *PipelineError
// enumerating the contributing scripts in pipeline order; in lenient mode
// the diagnostics are returned as data alongside the final payload.
package pipeline
