package caption

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostProcess(t *testing.T) {
	tcs := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "clean text untouched",
			input:    "let's sync on the roadmap tomorrow",
			expected: "let's sync on the roadmap tomorrow",
		},
		{
			name:     "bracketed tags stripped",
			input:    "[BLANK_AUDIO] hello there [Music]",
			expected: "hello there",
		},
		{
			name:     "parenthesized tags stripped",
			input:    "(applause) welcome back",
			expected: "welcome back",
		},
		{
			name:     "outro phrase stripped case-insensitively",
			input:    "that's all. Thanks For Watching!",
			expected: "that's all. !",
		},
		{
			name:     "whitespace normalized",
			input:    "  too   many\tspaces \n here ",
			expected: "too many spaces here",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, PostProcess(tc.input))
		})
	}
}

func TestCollapseRepeats(t *testing.T) {
	tcs := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "three word phrase repeated four times collapses",
			input:    "I don't know I don't know I don't know I don't know",
			expected: "I don't know",
		},
		{
			name:     "two repeats left untouched",
			input:    "I don't know I don't know",
			expected: "I don't know I don't know",
		},
		{
			name:     "two word phrase repeated three times collapses",
			input:    "go on go on go on",
			expected: "go on",
		},
		{
			name:     "two word phrase repeated six times collapses to one",
			input:    "go on go on go on go on go on go on",
			expected: "go on",
		},
		{
			name:     "repeat run in surrounding text",
			input:    "well you know you know you know then",
			expected: "well you know then",
		},
		{
			name:     "case-insensitive repeats collapse",
			input:    "Thank you thank you Thank You",
			expected: "Thank you",
		},
		{
			name:     "no repeats",
			input:    "every word here is different",
			expected: "every word here is different",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, collapseRepeats(tc.input))
		})
	}
}
