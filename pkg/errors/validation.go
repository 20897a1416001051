package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateName validates a pathway or rule name.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - Maximum length of 256 characters
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}

	return nil
}

// idRegex matches the identifiers Elicit generates (UUIDs) and accepts the
// short hex forms older exports used.
var idRegex = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// ValidateID validates a pathway, rule, or node identifier.
func ValidateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "identifier cannot be empty")
	}
	if !idRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid identifier: %q", id)
	}
	return nil
}

// ValidateStoragePath validates a file path handed to the storage layer.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidateStoragePath(path string) error {
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

// ValidateRuleText validates the textual form of a diagnostic rule: it must
// carry an IF part and a THEN part for the structured parser to work with.
func ValidateRuleText(text string) error {
	if strings.TrimSpace(text) == "" {
		return New(ErrCodeInvalidRule, "rule text cannot be empty")
	}

	upper := strings.ToUpper(text)
	if !strings.Contains(upper, "IF ") {
		return New(ErrCodeInvalidRule, "rule text has no IF part")
	}
	if !strings.Contains(upper, "THEN") {
		return New(ErrCodeInvalidRule, "rule text has no THEN part")
	}

	return nil
}

// ValidateEffectiveness validates an action's 1-5 effectiveness score.
func ValidateEffectiveness(value int) error {
	if value < 1 || value > 5 {
		return New(ErrCodeInvalidInput, "effectiveness must be between 1 and 5, got %d", value)
	}
	return nil
}
