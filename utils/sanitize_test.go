package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims", "  Coffee shop guide  ", "Coffee shop guide"},
		{"collapses spaces", "Coffee   shop\t\tguide", "Coffee shop guide"},
		{"drops control chars", "Coffee\x00 shop\x1b guide", "Coffee shop guide"},
		{"keeps newlines", "line one\nline two", "line one\nline two"},
		{"keeps unicode", "Guía del café", "Guía del café"},
		{"whitespace only", " \t ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeInput(tt.input))
		})
	}
}

func TestFormatFileName(t *testing.T) {
	assert.Equal(t, "market-analysis", FormatFileName("Market Analysis"))
	assert.Equal(t, "q3-results-2024", FormatFileName("  Q3 Results (2024)! "))
	assert.Equal(t, "untitled", FormatFileName("???"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "caf", TruncateString("café au lait", 3))
}
