package errors

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// nodeIDRegex matches identifiers the grammar can carry without quoting:
// letters, digits, underscore, dot and dash, starting with a letter,
// digit or underscore.
var nodeIDRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// ValidateNodeID validates a node identifier for grammar safety.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters
//   - Maximum length of 256 characters
//   - Only characters the text grammar round-trips without quoting
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "node id too long (max 256 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node id contains invalid control characters")
		}
	}

	if !nodeIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid node id: %q", id)
	}

	return nil
}

// ValidateDraftID validates a draft identifier. Draft IDs are UUIDs.
func ValidateDraftID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "draft id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid draft id: %q", id)
	}
	return nil
}

// ValidateDiagramText performs cheap pre-parse checks on incoming text.
// Full syntax validation is the parser's job; this guards transport
// surfaces against junk payloads.
func ValidateDiagramText(text string) error {
	const maxTextLength = 1 << 20
	if len(text) > maxTextLength {
		return New(ErrCodeInvalidInput, "diagram text too long (max %d bytes)", maxTextLength)
	}

	if strings.ContainsRune(text, '\x00') {
		return New(ErrCodeInvalidInput, "diagram text contains null bytes")
	}

	return nil
}

// ValidateStoreKey validates a storage key: a simple token without path
// separators or control characters.
func ValidateStoreKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "store key cannot be empty")
	}

	if len(key) > 512 {
		return New(ErrCodeInvalidInput, "store key too long (max 512 characters)")
	}

	if strings.ContainsAny(key, "/\\") {
		return New(ErrCodeInvalidInput, "store key cannot contain path separators")
	}

	if strings.Contains(key, "..") {
		return New(ErrCodeInvalidInput, "store key cannot contain traversal sequences (..)")
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "store key contains invalid characters")
		}
	}

	return nil
}
