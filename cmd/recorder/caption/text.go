package caption

import (
	"regexp"
	"strings"
)

// Bracketed engine tags like [BLANK_AUDIO], [Music] or (applause).
var tagRE = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)

// Canned outro phrases small models hallucinate over silence.
var outroPhrases = []string{
	"thanks for watching",
	"thank you for watching",
	"thank you so much for watching",
	"please subscribe",
	"don't forget to subscribe",
	"see you in the next video",
	"subtitles by the amara.org community",
}

// PostProcess cleans raw engine output for display: strips artifacts,
// collapses hallucinated phrase repeats and normalizes whitespace.
func PostProcess(text string) string {
	text = tagRE.ReplaceAllString(text, " ")
	text = stripOutros(text)
	text = collapseRepeats(text)
	return strings.Join(strings.Fields(text), " ")
}

func stripOutros(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range outroPhrases {
		for {
			idx := strings.Index(lower, phrase)
			if idx < 0 {
				break
			}
			text = text[:idx] + " " + text[idx+len(phrase):]
			lower = lower[:idx] + " " + lower[idx+len(phrase):]
		}
	}
	return text
}

// minRepeats is the threshold beyond which consecutive phrase repetition
// is treated as a model artifact rather than intentional speech.
const minRepeats = 3

// collapseRepeats keeps a single occurrence of any 2 to 4 word phrase that
// repeats minRepeats or more times consecutively. Shorter phrases are
// collapsed first so a repeated short phrase doesn't survive as two
// occurrences of a longer self-similar one.
func collapseRepeats(text string) string {
	words := strings.Fields(text)
	for n := 2; n <= 4; n++ {
		words = collapseN(words, n)
	}
	return strings.Join(words, " ")
}

func collapseN(words []string, n int) []string {
	out := make([]string, 0, len(words))
	for i := 0; i < len(words); {
		if i+n > len(words) {
			out = append(out, words[i:]...)
			break
		}

		reps := 1
		for j := i + n; j+n <= len(words) && phraseEqual(words[i:i+n], words[j:j+n]); j += n {
			reps++
		}

		if reps >= minRepeats {
			out = append(out, words[i:i+n]...)
			i += reps * n
		} else {
			out = append(out, words[i])
			i++
		}
	}
	return out
}

func phraseEqual(a, b []string) bool {
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
