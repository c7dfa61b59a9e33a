package errors

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "A", false},
		{"alphanumeric", "node42", false},
		{"with underscore", "start_node", false},
		{"with dot", "a.b", false},
		{"with dash", "retry-loop", false},
		{"empty", "", true},
		{"leading dash", "-bad", true},
		{"space", "a b", true},
		{"bracket", "a[b]", true},
		{"control character", "a\x01b", true},
		{"too long", strings.Repeat("x", 257), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNodeID(tc.id)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tc.id, err, tc.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("validation errors must carry ErrCodeInvalidInput, got %q", GetCode(err))
			}
		})
	}
}

func TestValidateDraftID(t *testing.T) {
	if err := ValidateDraftID(uuid.NewString()); err != nil {
		t.Errorf("valid UUID rejected: %v", err)
	}
	if err := ValidateDraftID(""); err == nil {
		t.Error("empty draft id must be rejected")
	}
	if err := ValidateDraftID("not-a-uuid"); err == nil {
		t.Error("malformed draft id must be rejected")
	}
}

func TestValidateDiagramText(t *testing.T) {
	if err := ValidateDiagramText("flowchart TB\n    A --> B\n"); err != nil {
		t.Errorf("valid text rejected: %v", err)
	}
	if err := ValidateDiagramText("flow\x00chart"); err == nil {
		t.Error("null bytes must be rejected")
	}
	if err := ValidateDiagramText(strings.Repeat("A --> B\n", 1<<18)); err == nil {
		t.Error("oversized text must be rejected")
	}
}

func TestValidateStoreKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"simple", "draft:abc", false},
		{"uuid key", "draft:" + uuid.NewString(), false},
		{"empty", "", true},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"traversal", "..secret", true},
		{"control character", "a\nb", true},
		{"too long", strings.Repeat("k", 513), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateStoreKey(tc.key)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateStoreKey(%q) error = %v, wantErr %v", tc.key, err, tc.wantErr)
			}
		})
	}
}
