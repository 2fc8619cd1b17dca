package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims, collapses runs of whitespace and caps the result at
// maxRunes characters without splitting a multi-byte rune.
func SanitizeString(input string, maxRunes int) string {
	out := strings.Join(strings.Fields(input), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(out) <= maxRunes {
		return out
	}
	runes := []rune(out)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
