package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/hoangtm-lab/r2s-detect/internal/shared/errors"
)

// ResolvePath normalizes a raw filesystem target into an absolute path with
// symlinks and relative segments resolved. When allowedRoot is non-empty the
// resolved path must stay inside it. Raw inputs using ".." to climb out of
// the working directory are rejected even without an allowed root.
func ResolvePath(input, allowedRoot string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("%w: empty path", errs.ErrPathNotFound)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", input, err)
	}

	if containsDotDot(input) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		if escapes(cwd, abs) {
			return "", fmt.Errorf("%w: %s resolves outside %s", errs.ErrPathTraversal, input, cwd)
		}
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", errs.ErrPathNotFound, abs)
		}
		return "", fmt.Errorf("resolve symlinks for %s: %w", abs, err)
	}

	if allowedRoot != "" {
		root, err := filepath.Abs(allowedRoot)
		if err != nil {
			return "", fmt.Errorf("resolve allowed root %q: %w", allowedRoot, err)
		}
		if r, err := filepath.EvalSymlinks(root); err == nil {
			root = r
		}
		if escapes(root, resolved) {
			return "", fmt.Errorf("%w: %s resolves outside %s", errs.ErrPathTraversal, input, root)
		}
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", fmt.Errorf("%w: %s", errs.ErrPathNotFound, resolved)
	}

	return resolved, nil
}

func containsDotDot(path string) bool {
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == os.PathSeparator
	}) {
		if seg == ".." {
			return true
		}
	}
	return false
}

// escapes reports whether target lies outside base.
func escapes(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return true
	}
	return rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}
