package textutil

import (
	"strings"
	"unicode"
)

// NormalizeSpace collapses runs of whitespace into single spaces and trims
// leading and trailing whitespace. Non-space control runes are dropped.
func NormalizeSpace(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	pending := false
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			pending = true
		case unicode.IsControl(r):
		default:
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CleanQuery joins the provided parts into a single search query. Each part
// is whitespace-normalized and empty parts are skipped.
func CleanQuery(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = NormalizeSpace(part)
		if part == "" {
			continue
		}
		cleaned = append(cleaned, part)
	}
	return strings.Join(cleaned, " ")
}
