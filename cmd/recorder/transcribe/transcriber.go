package transcribe

import (
	"context"
	"fmt"
)

// Source identifies the capture channel a segment came from.
type Source string

const (
	SourceMic    Source = "mic"
	SourceSystem Source = "system"
)

// Transcriber converts 16KHz mono PCM samples into timed text segments.
type Transcriber interface {
	Transcribe(samples []float32) ([]TimedSegment, error)
	Destroy() error
}

// Engine is a file level transcription capability, used by the offline
// processing pipeline.
type Engine interface {
	Transcribe(ctx context.Context, path string) (string, error)
	TranscribeWithTimestamps(ctx context.Context, path string) ([]TimedSegment, error)
}

// TimedSegment is a raw engine output span. Times are seconds from the
// start of the transcribed audio.
type TimedSegment struct {
	Text     string  `json:"text"`
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// Segment is a speaker attributed span of a conversation.
type Segment struct {
	Speaker    int     `json:"speaker"`
	Label      string  `json:"label"`
	Text       string  `json:"text"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Confidence float64 `json:"confidence"`
	Source     Source  `json:"source"`
}

// DisplayName returns the segment's speaker label, falling back to a
// generic name derived from the speaker id.
func (s Segment) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return fmt.Sprintf("Speaker %d", s.Speaker)
}

// Conversation is a chronological, speaker attributed transcript.
type Conversation []Segment
