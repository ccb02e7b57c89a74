package tools

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrAccessDenied is returned for paths outside every allowed directory
var ErrAccessDenied = errors.New("access denied")

// Sandbox restricts the file tools to a set of allowed directories
type Sandbox struct {
	roots []string
}

// NewSandbox creates a sandbox over dirs. Relative dirs are resolved against
// the working directory; "~" expands to the home directory.
func NewSandbox(dirs ...string) *Sandbox {
	s := &Sandbox{}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if p, err := resolvePath(expandHome(dir)); err == nil {
			s.roots = append(s.roots, p)
		}
	}
	return s
}

// Roots returns the resolved allowed directories
func (s *Sandbox) Roots() []string {
	return append([]string(nil), s.roots...)
}

// Resolve returns the absolute, symlink-free form of path if it lies inside
// an allowed directory.
func (s *Sandbox) Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path cannot be empty")
	}
	resolved, err := resolvePath(expandHome(path))
	if err != nil {
		return "", err
	}
	for _, root := range s.roots {
		rel, err := filepath.Rel(root, resolved)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s is not in an allowed directory", ErrAccessDenied, path)
}

// resolvePath makes path absolute and evaluates symlinks on the longest
// existing prefix, so paths that do not exist yet can still be checked.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	existing := abs
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}

	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{resolved}, rest...)...), nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// fileFailure maps filesystem errors onto tool errors
func fileFailure(action, path string, err error) Result {
	switch {
	case errors.Is(err, ErrAccessDenied):
		return Fail(CodeAccessDenied, fmt.Sprintf("Access denied: %s is not in an allowed directory", path))
	case errors.Is(err, fs.ErrNotExist):
		return Fail(CodeNotFound, "File not found: "+path)
	case errors.Is(err, fs.ErrPermission):
		return Fail(CodeAccessDenied, "Permission denied: "+path)
	}
	return Failf(CodeExecutionFailed, "Error "+action, err)
}
