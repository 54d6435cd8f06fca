// Package workspace confines files written by browser tools to a single
// output directory. It rejects path traversal and symlinks that lead
// outside the directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Guard enforces directory boundary restrictions on file paths.
type Guard struct {
	dir string // Absolute, symlink-free path to the output root
}

// NewGuard creates a guard for dir. The directory is created when missing,
// then converted to an absolute path with symlinks evaluated.
func NewGuard(dir string) (*Guard, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory cannot be empty")
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Evaluate any symlinks in the directory path itself
	evalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate output directory symlinks: %w", err)
	}

	return &Guard{dir: evalPath}, nil
}

// ResolvePath converts a path relative to the output directory into an
// absolute path inside it. Absolute paths are accepted only when they
// already point inside the directory.
func (g *Guard) ResolvePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	absPath := filepath.Clean(path)
	if !filepath.IsAbs(absPath) {
		absPath = filepath.Join(g.dir, absPath)
	}

	resolved := resolveSymlinks(absPath)
	if !g.Contains(resolved) {
		return "", fmt.Errorf("path '%s' is outside the output directory", path)
	}
	return resolved, nil
}

// Contains reports whether absPath is the output directory or lies below it.
func (g *Guard) Contains(absPath string) bool {
	evalPath := resolveSymlinks(absPath)
	return evalPath == g.dir || strings.HasPrefix(evalPath+string(filepath.Separator), g.dir+string(filepath.Separator))
}

// Dir returns the absolute path of the output directory.
func (g *Guard) Dir() string {
	return g.dir
}

// resolveSymlinks resolves symlinks in a path, handling non-existent paths
// by resolving the deepest existing parent and re-appending the rest.
func resolveSymlinks(path string) string {
	// Try direct resolution first
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	var components []string
	currentPath := path

	// Walk up the directory tree collecting components until we find something that exists
	for {
		if resolved, err := filepath.EvalSymlinks(currentPath); err == nil {
			result := resolved
			for i := len(components) - 1; i >= 0; i-- {
				result = filepath.Join(result, components[i])
			}
			return result
		}

		dir := filepath.Dir(currentPath)
		if dir == currentPath || dir == "." || dir == "/" {
			// Reached root without finding existing path, return original
			return path
		}

		components = append(components, filepath.Base(currentPath))
		currentPath = dir
	}
}
