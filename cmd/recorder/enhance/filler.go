// Package enhance holds the post-processing services applied to final
// transcripts: filler word removal, snippet expansion and AI summaries.
// Services are explicitly constructed and injected, never process-wide
// singletons.
package enhance

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultFillerWords are the fillers removed when no custom list is
// configured.
var DefaultFillerWords = []string{
	"um", "uh", "uhm", "hmm", "mhm", "you know", "I mean", "like, you know",
}

// FillerFilter removes configured filler words and phrases from text with
// word boundary matching.
type FillerFilter struct {
	re *regexp.Regexp
}

func NewFillerFilter(words []string) (*FillerFilter, error) {
	if len(words) == 0 {
		words = DefaultFillerWords
	}

	quoted := make([]string, len(words))
	for i, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			return nil, fmt.Errorf("filler words should not be empty")
		}
		quoted[i] = regexp.QuoteMeta(w)
	}

	// Longest alternative first so multi-word fillers win over their
	// prefixes. Trailing commas after a filler go with it.
	sort.Slice(quoted, func(i, j int) bool {
		return len(quoted[i]) > len(quoted[j])
	})
	re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b,?`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}

	return &FillerFilter{
		re: re,
	}, nil
}

// Apply strips fillers and renormalizes whitespace.
func (f *FillerFilter) Apply(text string) string {
	text = f.re.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
