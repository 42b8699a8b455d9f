// Package flags persists one scalar launch flag per entity identifier,
// surviving process restarts independently of the pipeline.
package flags

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tjfontaine/virthooks/internal/core/domain"
)

// Store keeps one file per entity identifier under a fixed directory. There
// is no caching and no locking; callers needing atomicity across operations
// for one identifier must serialize themselves.
type Store struct {
	dir string
}

// New creates a store rooted at the given directory.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the configured flags directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file that persists the given entity's flag.
func (s *Store) Path(entityID string) (string, error) {
	if err := validateEntityID(entityID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, entityID), nil
}

// Save writes the flag to the entity's dedicated file, creating or
// truncating it.
func (s *Store) Save(entityID string, flag int) error {
	path, err := s.Path(entityID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create launch flags directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(flag)), 0o644); err != nil {
		return fmt.Errorf("write launch flags for %s: %w", entityID, err)
	}
	return nil
}

// Load reads and parses the stored flag. A missing or malformed file fails
// explicitly; there is no implicit default.
func (s *Store) Load(entityID string) (int, error) {
	path, err := s.Path(entityID)
	if err != nil {
		return 0, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, domain.ErrLaunchFlag("no launch flags stored for " + entityID)
		}
		return 0, fmt.Errorf("read launch flags for %s: %w", entityID, err)
	}
	flag, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return 0, domain.ErrLaunchFlag(fmt.Sprintf("corrupt launch flags for %s: %q", entityID, content))
	}
	return flag, nil
}

// Remove deletes the entity's flag file, succeeding idempotently when it is
// already absent.
func (s *Store) Remove(entityID string) error {
	path, err := s.Path(entityID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove launch flags for %s: %w", entityID, err)
	}
	return nil
}

// validateEntityID rejects identifiers that would resolve outside the flags
// directory.
func validateEntityID(entityID string) error {
	if entityID == "" {
		return domain.ErrLaunchFlag("entity identifier is empty")
	}
	if strings.ContainsAny(entityID, `/\`) || entityID == ".." {
		return domain.ErrLaunchFlag("unsafe entity identifier: " + entityID)
	}
	return nil
}
