// Package stager materializes the pipeline payload into a temporary file so
// hook scripts can read and rewrite it across the process boundary.
package stager

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tjfontaine/virthooks/internal/core/domain"
)

// StagedFile is the live, externally-mutable representation of a payload
// during one pipeline run. It is owned exclusively by that run and must be
// released with Close on every exit path.
type StagedFile struct {
	path string
	kind domain.PayloadKind
}

// Stage writes the payload's initial serialized form to a fresh file with an
// unpredictable name, so concurrent pipeline runs can never collide.
func Stage(payload domain.Payload) (*StagedFile, error) {
	content, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(os.TempDir(), "hook-payload-"+uuid.New().String())
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create staged payload file: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write staged payload file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("close staged payload file: %w", err)
	}

	return &StagedFile{path: path, kind: payload.Kind}, nil
}

// Path returns the filesystem reference handed to hook scripts.
func (s *StagedFile) Path() string {
	return s.path
}

// Kind returns the payload kind the file was staged for.
func (s *StagedFile) Kind() domain.PayloadKind {
	return s.kind
}

// Reload re-reads the file's current content and decodes it, so later stages
// observe prior stages' edits. An unparsable structured payload is a fatal
// pipeline condition surfaced as a payload_decode error.
func (s *StagedFile) Reload() (domain.Payload, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("read staged payload file: %w", err)
	}
	return domain.DecodePayload(s.kind, content)
}

// Replace overwrites the staged content, used when a script hands the
// next-stage payload over standard output instead of editing the file.
func (s *StagedFile) Replace(content []byte) error {
	if err := os.WriteFile(s.path, content, 0o600); err != nil {
		return fmt.Errorf("replace staged payload file: %w", err)
	}
	return nil
}

// Close removes the staged file. It is safe to call more than once.
func (s *StagedFile) Close() error {
	err := os.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
