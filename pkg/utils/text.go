// Package utils provides shared helpers for text, vectors and logging.
package utils

import "strings"

// Truncate returns s cut to maxLen characters with "..." appended when it was
// shortened. maxLen <= 0 returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// Preview collapses all whitespace in s to single spaces and truncates the
// result, for one-line display of a segment.
func Preview(s string, maxLen int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), maxLen)
}
