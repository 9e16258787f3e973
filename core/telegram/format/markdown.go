// Package format renders Telegram Markdown.
package format

import (
	"regexp"
	"strings"
)

// Telegram legacy Markdown only knows four markers.
var mdV1Re = regexp.MustCompile("([_*`\\[])")

// V1 escapes text for legacy Markdown (ParseMode "Markdown").
func V1(text string) string {
	return mdV1Re.ReplaceAllString(text, `\$1`)
}

// Bold wraps text in legacy Markdown bold markers. Legacy Markdown has no escapes
// inside an entity, so a literal "*" closes the entity, is escaped, and reopens it.
func Bold(text string) string {
	return wrap(text, "*")
}

// Italic wraps text in legacy Markdown italic markers.
func Italic(text string) string {
	return wrap(text, "_")
}

func wrap(text, marker string) string {
	if strings.TrimSpace(text) == "" {
		return V1(text)
	}
	inner := strings.ReplaceAll(text, marker, marker+`\`+marker+marker)
	return marker + inner + marker
}
