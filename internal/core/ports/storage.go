// Package ports defines the interfaces between the engine core and its
// pluggable adapters.
package ports

import (
	"context"
	"time"

	"github.com/tjfontaine/virthooks/internal/core/domain"
)

// RunRecord is one audited pipeline run.
type RunRecord struct {
	ID          string              `json:"id"`
	HookPoint   string              `json:"hook_point"`
	EntityID    string              `json:"entity_id,omitempty"`
	Mode        string              `json:"mode"`
	Status      string              `json:"status"`
	Scripts     int                 `json:"scripts"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
	Duration    time.Duration       `json:"duration"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Run statuses recorded by the executor.
const (
	RunStatusOK     = "ok"
	RunStatusFaults = "faults"
	RunStatusFatal  = "fatal"
)

// RunListOptions filters and paginates run listings.
type RunListOptions struct {
	HookPoint string
	EntityID  string
	Limit     int
	Offset    int
}

// RunStore persists pipeline run records for auditing. The pipeline never
// reads it back; it exists for operators and external tooling.
type RunStore interface {
	// RecordRun stores one completed pipeline run.
	RecordRun(ctx context.Context, rec *RunRecord) error

	// ListRuns lists recorded runs, newest first.
	ListRuns(ctx context.Context, opts RunListOptions) ([]*RunRecord, error)

	// Close closes the storage connection.
	Close() error
}
