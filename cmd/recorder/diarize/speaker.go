package diarize

import (
	"hash/fnv"
	"regexp"
	"strconv"

	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
)

var trailingIntRE = regexp.MustCompile(`(\d+)$`)

// ParseSpeakerID extracts the integer id from diarization backend labels
// like "SPEAKER_0". Labels without a trailing integer fall back to a hash
// of the string mod 100; collisions across speakers are possible but
// tolerated given the low speaker cardinality of a meeting.
func ParseSpeakerID(id string) int {
	if m := trailingIntRE.FindString(id); m != "" {
		n, err := strconv.Atoi(m)
		if err == nil {
			return n
		}
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % 100)
}

// AssignSpeakers attributes each transcribed system segment to a speaker
// by locating which diarized interval contains the segment's temporal
// midpoint. The scan is linear and first match wins; with no containing
// interval (a diarization coverage gap) the segment defaults to speaker 0.
func AssignSpeakers(segments []transcribe.TimedSegment, intervals []SpeakerSegment) []transcribe.Segment {
	out := make([]transcribe.Segment, 0, len(segments))
	for _, seg := range segments {
		mid := (seg.StartSec + seg.EndSec) / 2

		var speaker int
		var confidence float64
		for _, iv := range intervals {
			// Interval ends are inclusive so midpoints landing exactly on
			// a boundary still match.
			if iv.StartSec <= mid && mid <= iv.EndSec {
				speaker = iv.Speaker
				confidence = iv.Confidence
				break
			}
		}

		out = append(out, transcribe.Segment{
			Speaker:    speaker,
			Text:       seg.Text,
			StartSec:   seg.StartSec,
			EndSec:     seg.EndSec,
			Confidence: confidence,
			Source:     transcribe.SourceSystem,
		})
	}

	return out
}
