package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLogString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Gym name",
			input:    "San Carlos",
			expected: "San Carlos",
		},
		{
			name:     "Format specifiers are kept for structured fields",
			input:    "dublin %s",
			expected: "dublin %s",
		},
		{
			name:     "String with newlines",
			input:    "campbell\nmilpitas\r\nsunnyvale",
			expected: "campbell milpitas sunnyvale",
		},
		{
			name:     "Long string truncation",
			input:    strings.Repeat("A", 300),
			expected: strings.Repeat("A", MaxLogStringLength) + "... (truncated)",
		},
		{
			name:     "Control characters",
			input:    "gym\twith\x00control\x1Fchars",
			expected: "gym with control chars",
		},
		{
			name:     "Zero width and bidi runes are dropped",
			input:    "dub​lin‮",
			expected: "dublin",
		},
		{
			name:     "Multibyte runes are not split",
			input:    strings.Repeat("é", MaxLogStringLength+1),
			expected: strings.Repeat("é", MaxLogStringLength) + "... (truncated)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeLogString(tt.input))
		})
	}
}

func TestSanitizeLogStrings(t *testing.T) {
	assert.Equal(t, []string{"a b", "c"}, SanitizeLogStrings([]string{"a\nb", "c"}))
	assert.Empty(t, SanitizeLogStrings(nil))
}
