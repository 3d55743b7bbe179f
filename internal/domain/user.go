// Package domain contains entities without transport logic, just meta-data
package domain

import (
	"strings"
	"unicode"
)

const (
	MaxDisplayNameLen = 36
	AnonymousName     = "Anonymous"
)

// SanitizeDisplayName makes an unauthenticated, client-supplied name safe to
// echo back to other members: control characters are stripped, surrounding
// space trimmed and the result cut to MaxDisplayNameLen runes.
func SanitizeDisplayName(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)

	runes := []rune(cleaned)
	if len(runes) > MaxDisplayNameLen {
		cleaned = strings.TrimSpace(string(runes[:MaxDisplayNameLen]))
	}
	if cleaned == "" {
		return AnonymousName
	}
	return cleaned
}
