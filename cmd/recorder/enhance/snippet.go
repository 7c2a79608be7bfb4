package enhance

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// SnippetExpander replaces configured trigger words in a transcript with
// their expansions, e.g. dictating "myaddr" to insert a full mailing
// address.
type SnippetExpander struct {
	re        *regexp.Regexp
	expansion map[string]string
}

func NewSnippetExpander(snippets map[string]string) (*SnippetExpander, error) {
	if len(snippets) == 0 {
		return &SnippetExpander{}, nil
	}

	quoted := make([]string, 0, len(snippets))
	expansion := make(map[string]string, len(snippets))
	for trigger, text := range snippets {
		trigger = strings.TrimSpace(trigger)
		if trigger == "" {
			return nil, fmt.Errorf("snippet trigger should not be empty")
		}
		quoted = append(quoted, regexp.QuoteMeta(trigger))
		expansion[strings.ToLower(trigger)] = text
	}
	sort.Slice(quoted, func(i, j int) bool {
		return len(quoted[i]) > len(quoted[j])
	})

	re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile pattern: %w", err)
	}

	return &SnippetExpander{
		re:        re,
		expansion: expansion,
	}, nil
}

// Expand replaces every trigger occurrence, matching case-insensitively.
func (e *SnippetExpander) Expand(text string) string {
	if e.re == nil {
		return text
	}
	return e.re.ReplaceAllStringFunc(text, func(m string) string {
		return e.expansion[strings.ToLower(m)]
	})
}
