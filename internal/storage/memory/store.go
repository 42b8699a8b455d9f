// Package memory provides an in-memory RunStore for tests and for callers
// that want auditing without persistence.
package memory

import (
	"context"
	"sync"

	"github.com/tjfontaine/virthooks/internal/core/ports"
)

// Store is an in-memory implementation of RunStore.
type Store struct {
	mu   sync.RWMutex
	runs []*ports.RunRecord
}

var _ ports.RunStore = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) RecordRun(ctx context.Context, rec *ports.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *rec
	s.runs = append(s.runs, &copied)
	return nil
}

func (s *Store) ListRuns(ctx context.Context, opts ports.RunListOptions) ([]*ports.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ports.RunRecord
	// Newest first
	for i := len(s.runs) - 1; i >= 0; i-- {
		rec := s.runs[i]
		if opts.HookPoint != "" && rec.HookPoint != opts.HookPoint {
			continue
		}
		if opts.EntityID != "" && rec.EntityID != opts.EntityID {
			continue
		}
		result = append(result, rec)
	}

	start := opts.Offset
	if start >= len(result) {
		return []*ports.RunRecord{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (s *Store) Close() error {
	return nil
}
