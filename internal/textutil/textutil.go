// Package textutil has small text-shaping helpers for presenting
// conversation content in terminals and tool output.
package textutil

import "strings"

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// TruncateRunes shortens s to at most n runes, appending an ellipsis when
// anything was cut. n must leave room for the ellipsis; values below 1
// return an empty string.
func TruncateRunes(s string, n int) string {
	if n < 1 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
