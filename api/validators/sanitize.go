package validators

import "strings"

// SanitizeString collapses runs of whitespace and cuts the result to at most
// maxLen runes. A maxLen of zero keeps the full value.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxLen <= 0 {
		return cleaned
	}
	runes := []rune(cleaned)
	if len(runes) <= maxLen {
		return cleaned
	}
	return strings.TrimSpace(string(runes[:maxLen]))
}
