package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	whitespaceRun = regexp.MustCompile(`[ \t]+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9]+`)
)

// SanitizeInput strips control characters, collapses runs of spaces and trims the result.
// Newlines are kept so multi-line instructions survive.
func SanitizeInput(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)

	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// FormatFileName turns a chapter or document title into a lowercase, hyphenated file name stem.
func FormatFileName(name string) string {
	formatted := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	formatted = strings.Trim(formatted, "-")

	if formatted == "" {
		formatted = "untitled"
	}

	return formatted
}

// TruncateString truncates a string to the specified number of runes, adding an ellipsis if truncated
func TruncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return string(runes[:maxLength])
	}
	return string(runes[:maxLength-3]) + "..."
}
