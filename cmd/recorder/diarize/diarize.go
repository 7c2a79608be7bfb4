// Package diarize orchestrates speaker diarization of meeting recordings:
// it runs a diarization model over the system audio track, assigns speaker
// ids to transcribed segments and synthesizes the local speaker's side.
package diarize

import (
	"context"
	"errors"
)

var (
	ErrModelNotFound = errors.New("diarization model not found")
	ErrInvalidAudio  = errors.New("invalid audio input")
)

// SpeakerSegment is a time interval attributed to one speaker.
type SpeakerSegment struct {
	Speaker    int     `json:"speaker"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Confidence float64 `json:"confidence"`
}

// Result is the immutable output of one diarization run.
type Result struct {
	Segments      []SpeakerSegment `json:"segments"`
	SpeakerCount  int              `json:"speaker_count"`
	ProcessingSec float64          `json:"processing_sec"`
}

// Diarizer is the model capability the orchestration consumes. Model
// acquisition and caching are entirely the implementation's concern.
type Diarizer interface {
	// PrepareModels makes sure model weights are available. It's
	// idempotent and may download.
	PrepareModels(ctx context.Context) error
	Process(ctx context.Context, path string) (*Result, error)
}
