package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateSetName validates a user-supplied name for a saved set.
// Names end up in file names and database documents, so the rules are
// conservative:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators
//   - Maximum length of 128 characters
func ValidateSetName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "set name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "set name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "set name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "set name cannot contain path separators")
	}

	return nil
}

// setIDRegex matches the canonical textual form of a UUID.
var setIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateSetID validates a saved set identifier before it is used to
// build a storage path or query.
func ValidateSetID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "set id cannot be empty")
	}
	if !setIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid set id: %q", id)
	}
	return nil
}

// ValidatePlaylistPath validates a playlist file path given on the command
// line or in a config file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 1024 characters
//   - No null bytes or control characters
//   - Extension must be .json, .toml, .yaml or .yml
func ValidatePlaylistPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 1024
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	lower := strings.ToLower(path)
	for _, ext := range []string{".json", ".toml", ".yaml", ".yml"} {
		if strings.HasSuffix(lower, ext) {
			return nil
		}
	}
	return New(ErrCodeInvalidPath, "unsupported playlist format: %q (want .json, .toml or .yaml)", path)
}
