package utils

import (
	"strings"
	"unicode"
)

// MaxLogStringLength defines the maximum length for user-provided strings in logs
const MaxLogStringLength = 120

// SanitizeLogString makes a user-controlled value, such as a gym name typed on
// the command line or passed as a query parameter, safe to put in a log field.
// Control characters become spaces, invisible format runes are dropped and the
// result is truncated on a rune boundary.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	input = strings.ReplaceAll(input, "\r\n", "\n")

	var b strings.Builder
	count := 0
	for _, r := range input {
		if count == MaxLogStringLength {
			b.WriteString("... (truncated)")
			break
		}
		switch {
		case unicode.IsControl(r):
			b.WriteRune(' ')
		case unicode.Is(unicode.Cf, r):
			continue
		default:
			b.WriteRune(r)
		}
		count++
	}
	return b.String()
}

// SanitizeLogStrings applies SanitizeLogString to every element
func SanitizeLogStrings(inputs []string) []string {
	out := make([]string, len(inputs))
	for i, s := range inputs {
		out[i] = SanitizeLogString(s)
	}
	return out
}
