// Package registry discovers executable hook scripts for named hook points
// and computes per-script content fingerprints.
package registry

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tjfontaine/virthooks/internal/core/domain"
)

// Registry resolves hook-point names against a configured root directory.
// The root is explicit so isolated instances (and tests) need no
// process-wide state.
type Registry struct {
	root string
}

// New creates a registry rooted at the given directory.
func New(root string) *Registry {
	return &Registry{root: root}
}

// Root returns the configured hooks root.
func (r *Registry) Root() string {
	return r.root
}

// ValidateHookPoint rejects hook-point names that could escape the root:
// absolute names, empty names, and names containing a parent-directory
// segment.
func (r *Registry) ValidateHookPoint(name string) error {
	if name == "" {
		return domain.ErrInvalidHookPoint("hook point name is empty")
	}
	if filepath.IsAbs(name) {
		return domain.ErrInvalidHookPoint("hook point name must not be absolute: " + name)
	}
	for _, seg := range strings.Split(filepath.ToSlash(name), "/") {
		if seg == ".." {
			return domain.ErrInvalidHookPoint("hook point name must not contain '..': " + name)
		}
	}
	return nil
}

// Scripts returns the executable entries directly inside the hook point's
// directory, sorted lexicographically by name. Non-executable entries and
// directories are excluded; a missing directory yields an empty list.
func (r *Registry) Scripts(hookPoint string) ([]domain.HookScript, error) {
	if err := r.ValidateHookPoint(hookPoint); err != nil {
		return nil, err
	}

	dir := filepath.Join(r.root, hookPoint)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var scripts []domain.HookScript
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		scripts = append(scripts, domain.HookScript{
			Name: entry.Name(),
			Path: filepath.Join(dir, entry.Name()),
		})
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})
	return scripts, nil
}

// ScriptInfo computes the content fingerprint for one script path. A missing
// file yields an empty checksum rather than an error; repeated calls on
// unchanged content are stable.
func (r *Registry) ScriptInfo(path string) domain.Fingerprint {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Fingerprint{}
	}
	sum := md5.Sum(content)
	return domain.Fingerprint{Checksum: hex.EncodeToString(sum[:])}
}

// HookInfo returns the fingerprint record for every executable script in
// the hook point's directory, keyed by script name. Used for
// change-detection and auditing by the caller, not by the pipeline.
func (r *Registry) HookInfo(hookPoint string) (map[string]domain.Fingerprint, error) {
	scripts, err := r.Scripts(hookPoint)
	if err != nil {
		return nil, err
	}

	info := make(map[string]domain.Fingerprint, len(scripts))
	for _, s := range scripts {
		info[s.Name] = r.ScriptInfo(s.Path)
	}
	return info, nil
}
