package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input, drops invalid UTF-8, and caps it at maxLen
// characters so multi-byte runes are never split.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.ToValidUTF8(strings.TrimSpace(input), "")
	if maxLen <= 0 || utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}
	runes := 0
	for i := range trimmed {
		if runes == maxLen {
			return trimmed[:i]
		}
		runes++
	}
	return trimmed
}
