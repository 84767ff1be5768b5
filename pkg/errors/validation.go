package errors

import (
	"strings"
	"unicode"
)

// ValidateNodeID validates a hierarchy node identifier.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters
//   - Maximum length of 256 characters
//
// Structural validation (duplicates, shared children) is done by the
// hierarchy package during forest validation.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidForest, "node id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidForest, "node id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidForest, "node id contains invalid control characters")
		}
	}

	return nil
}

// ValidateOutputPath validates an output file path for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
