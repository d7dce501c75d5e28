// Package pathguard enforces that every caller-supplied path argument
// resolves within a declared root before a handler is allowed to touch
// it.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEscapesRoot is returned by Validate when a path resolves outside
// its declared root.
var ErrEscapesRoot = errors.New("pathguard: path escapes declared root")

// ErrInvalidPath is returned by Sanitize when a path is longer than
// 4096 bytes.
var ErrInvalidPath = errors.New("pathguard: invalid path")

const maxPathBytes = 4096

// Sanitize strips NUL, CR, and LF from path and rejects paths longer
// than 4096 bytes.
func Sanitize(path string) (string, error) {
	if len(path) > maxPathBytes {
		return "", ErrInvalidPath
	}
	cleaned := strings.NewReplacer("\x00", "", "\r", "", "\n", "").Replace(path)
	return cleaned, nil
}

// Validate implements validate_path_within_root(path, root, op_name):
// it canonicalizes root, resolves path against it (joining if relative),
// resolves symlinks, and accepts the result iff it equals root or begins
// with root + separator.
func Validate(path, root, opName string) (string, error) {
	path, err := Sanitize(path)
	if err != nil {
		return "", err
	}

	canonicalRoot, err := canonicalize(root)
	if err != nil {
		return "", fmt.Errorf("pathguard: resolve root %s: %w", root, err)
	}

	var candidate string
	if filepath.IsAbs(path) {
		candidate = path
	} else {
		candidate = filepath.Join(canonicalRoot, path)
	}

	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("pathguard: resolve %s: %w", candidate, err)
	}

	if !Contains(canonicalRoot, resolved) {
		return "", fmt.Errorf("%w: %s escapes %s (op=%s)", ErrEscapesRoot, path, root, opName)
	}
	return resolved, nil
}

// Contains reports whether resolved equals root or is nested under it.
// Both arguments must already be absolute, canonical paths.
func Contains(root, resolved string) bool {
	if root == resolved {
		return true
	}
	sep := string(os.PathSeparator)
	return strings.HasPrefix(resolved, strings.TrimSuffix(root, sep)+sep)
}

func canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}
	return abs, nil
}

// resolveExisting resolves symlinks on candidate. When candidate (or a
// trailing component of it) does not yet exist, such as a file about to
// be created, it walks up to the nearest existing ancestor, resolves it,
// and rejoins the remaining (not-yet-created) components.
func resolveExisting(candidate string) (string, error) {
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", err
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		return real, nil
	}

	dir := filepath.Dir(abs)
	var tail []string
	tail = append(tail, filepath.Base(abs))
	for {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				real = filepath.Join(real, tail[i])
			}
			return real, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		tail = append(tail, filepath.Base(dir))
		dir = parent
	}
}
