package errors

import (
	"strings"
	"unicode"
)

// ValidatePath validates a snapshot path for safety and correctness.
// It rejects paths that could be used for traversal outside the snapshot
// root or that would break '/'-delimited breadcrumb derivation.
//
// The validation rules are intentionally conservative:
//   - No empty paths
//   - Must be absolute ('/'-prefixed)
//   - No control characters or null bytes
//   - No parent-directory or double-slash sequences
//   - Maximum length of 4096 characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if !strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be absolute: %q", path)
	}

	if len(path) > 4096 {
		return New(ErrCodeInvalidPath, "path too long (max 4096 characters)")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "//", "\x00", "\\"} {
		if strings.Contains(path, pattern) {
			return New(ErrCodeInvalidPath, "path contains invalid sequence: %q", pattern)
		}
	}

	return nil
}

// ValidateViewport validates viewport dimensions for layout computation.
func ValidateViewport(width, height float64) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidViewport, "viewport dimensions must be positive: %gx%g", width, height)
	}
	return nil
}
