package transcribe

import (
	"log/slog"
	"sort"
)

// Segments closer than this are considered part of the same utterance.
const mergeGapSec = 1.0

// Merge combines the mic and system transcripts into a single chronological
// conversation. Consecutive segments are joined when:
// - The speaker hasn't changed.
// - They come from the same capture channel.
// - There's less than mergeGapSec of pause between the end of the previous
//   segment and the start of the next one.
// The joined segment keeps the earlier segment's label and confidence.
func Merge(mic, system []Segment) Conversation {
	all := make(Conversation, 0, len(mic)+len(system))
	all = append(all, mic...)
	all = append(all, system...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartSec < all[j].StartSec
	})

	if len(all) < 2 {
		return all
	}

	out := Conversation{all[0]}
	for i := 1; i < len(all); i++ {
		currSeg := all[i]
		prevSeg := &out[len(out)-1]

		if currSeg.Speaker == prevSeg.Speaker &&
			currSeg.Source == prevSeg.Source &&
			currSeg.StartSec-prevSeg.EndSec < mergeGapSec {
			prevSeg.Text += " " + currSeg.Text
			prevSeg.EndSec = currSeg.EndSec
		} else {
			out = append(out, currSeg)
		}
	}

	slog.Debug("merge done", slog.Int("inLen", len(all)), slog.Int("outLen", len(out)))

	return out
}
