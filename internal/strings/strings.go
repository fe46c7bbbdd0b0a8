// Package strings provides common string utilities shared by the render,
// tui, and workspace packages.
package strings

import (
	"strings"
	"unicode"
)

// Truncate shortens a string to n characters with ellipsis.
// If n < 4, uses n = 4 to ensure room for "...".
func Truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// TruncateNoEllipsis shortens a string to n characters without ellipsis.
// Used where exact length limits are required.
func TruncateNoEllipsis(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Slug converts a conversation title into a safe filename fragment:
// lowercase, spaces to dashes, everything but alphanumerics and dashes
// removed, runs of dashes collapsed, trimmed to maxLen.
func Slug(title string, maxLen int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
		}
	}

	s := b.String()
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")

	if len(s) > maxLen {
		s = strings.TrimRight(s[:maxLen], "-")
	}
	if s == "" {
		s = "untitled"
	}
	return s
}
