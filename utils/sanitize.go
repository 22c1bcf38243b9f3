package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	sanitizer = bluemonday.UGCPolicy()
	stripper  = bluemonday.StrictPolicy()
)

// Sanitize cleans HTML content to prevent XSS attacks.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}

// PlainText strips all markup, trims and caps s at maxRunes runes.
func PlainText(s string, maxRunes int) string {
	s = strings.TrimSpace(stripper.Sanitize(s))
	if rs := []rune(s); maxRunes > 0 && len(rs) > maxRunes {
		s = string(rs[:maxRunes])
	}
	return s
}
