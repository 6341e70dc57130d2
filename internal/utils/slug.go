package utils

import (
	"strings"
	"unicode"
)

// Slugify converts a name into a URL-safe slug: lowercase ASCII letters,
// digits and hyphens, with runs of anything else collapsed to a single
// hyphen and the result trimmed.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
