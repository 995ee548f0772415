// Package textutil normalises untrusted text before it reaches logs, JSON envelopes or pages.
package textutil

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var markupPolicy = bluemonday.StrictPolicy()

// Clean trims value, turns control characters into spaces and keeps at most limit runes.
// A non-positive limit keeps everything.
func Clean(value string, limit int) string {
	value = strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, value))
	if limit <= 0 {
		return value
	}
	n := 0
	for i := range value {
		if n == limit {
			return value[:i]
		}
		n++
	}
	return value
}

// StripMarkup removes every HTML element from raw and returns plain text. Callers that
// render the result must still escape it.
func StripMarkup(raw string) string {
	return strings.TrimSpace(html.UnescapeString(markupPolicy.Sanitize(raw)))
}
