package mediaengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Canonical per-project file names.
const (
	originalBaseName = "original"
	audioFileName    = "audio.wav"
)

// ProjectPaths is the canonical on-disk placement of one project's files
// under a storage root.
type ProjectPaths struct {
	Dir      string
	Original string
	Audio    string
}

// PathResolver maps (storage root, project identifier) pairs to canonical
// paths and back. All functions are pure path computations except EnsureDir.
type PathResolver struct{}

// NewPathResolver returns a PathResolver.
func NewPathResolver() *PathResolver {
	return &PathResolver{}
}

// Resolve computes the canonical per-project paths for a project whose
// original file carries the given extension (with or without leading dot).
// Calling it twice with the same inputs yields the same paths.
func (r *PathResolver) Resolve(root string, id ProjectID, ext string) ProjectPaths {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	dir := filepath.Join(root, id.String())
	original := filepath.Join(dir, originalBaseName)
	if ext != "" {
		original += "." + ext
	}
	return ProjectPaths{
		Dir:      dir,
		Original: original,
		Audio:    filepath.Join(dir, audioFileName),
	}
}

// EnsureDir creates the project directory if missing. Safe to call
// repeatedly.
func (r *PathResolver) EnsureDir(p ProjectPaths) error {
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("ensure project dir %s: %w", p.Dir, err)
	}
	return nil
}

// ReverseMatch is the result of mapping a file path back to a project.
type ReverseMatch struct {
	ProjectID ProjectID
	Root      string
}

// ReverseResolve infers the owning project and storage root from an arbitrary
// file path by matching the parent directory name against the identifier
// union and verifying the grandparent directory exists. Unparseable paths
// return (nil): the caller must treat that as legacy/flat layout, never as a
// fabricated identifier.
func (r *PathResolver) ReverseResolve(path string) *ReverseMatch {
	dir := filepath.Dir(path)
	id, ok := ParseProjectID(filepath.Base(dir))
	if !ok {
		return nil
	}

	root := filepath.Dir(dir)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil
	}

	return &ReverseMatch{ProjectID: id, Root: root}
}

// IsCanonical reports whether path conforms to the canonical per-project
// layout for the given project: it lives in a directory named after the
// identifier and uses one of the canonical file names. The migration engine
// uses this to decide between a pure relocation and a structure conversion.
func (r *PathResolver) IsCanonical(path string, id ProjectID) bool {
	dir := filepath.Dir(path)
	if filepath.Base(dir) != id.String() {
		return false
	}
	base := filepath.Base(path)
	if base == audioFileName {
		return true
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem == originalBaseName
}

// Ext returns the original-file extension (without dot) recorded in a path,
// empty when there is none.
func (r *PathResolver) Ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
