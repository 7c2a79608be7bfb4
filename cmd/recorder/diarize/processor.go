package diarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

// MicSpeakerLabel is the label attributed to the local (microphone) side
// of the conversation.
const MicSpeakerLabel = "Me"

// ProgressFunc receives fractional pipeline progress in (0, 1].
type ProgressFunc func(frac float64)

// Processor runs the offline meeting pipeline: transcribe both tracks,
// diarize the system track, attribute speakers and synthesize the local
// side. It's a CPU-bound batch operation meant to run off any
// UI/interactive path; progress is published as coarse per-stage fractions.
type Processor struct {
	diarizer Diarizer
	engine   transcribe.Engine

	mut        sync.Mutex
	progress   float64
	onProgress ProgressFunc
}

func NewProcessor(diarizer Diarizer, engine transcribe.Engine) (*Processor, error) {
	if diarizer == nil {
		return nil, fmt.Errorf("diarizer is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	return &Processor{
		diarizer: diarizer,
		engine:   engine,
	}, nil
}

func (p *Processor) SetProgressFunc(f ProgressFunc) {
	p.mut.Lock()
	p.onProgress = f
	p.mut.Unlock()
}

// Progress returns the last published fraction.
func (p *Processor) Progress() float64 {
	p.mut.Lock()
	defer p.mut.Unlock()
	return p.progress
}

func (p *Processor) setProgress(frac float64) {
	p.mut.Lock()
	p.progress = frac
	onProgress := p.onProgress
	p.mut.Unlock()

	if onProgress != nil {
		onProgress(frac)
	}
}

// ProcessMeetingRecording runs the five stage pipeline over a session's
// mic and system tracks, returning the two speaker-attributed segment
// slices ready for merging. Cancellation is cooperative and checked at
// stage boundaries only.
func (p *Processor) ProcessMeetingRecording(ctx context.Context, micPath, sysPath string) (mic, system []transcribe.Segment, result *Result, err error) {
	// Stage 1: the mic track transcribed in full, always attributed to
	// the local speaker.
	p.setProgress(0.1)
	micText, err := p.engine.Transcribe(ctx, micPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("transcription failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	// Stage 2: the system track transcribed with per-segment timestamps.
	p.setProgress(0.25)
	sysSegments, err := p.engine.TranscribeWithTimestamps(ctx, sysPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("transcription failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	// Stage 3: speaker separation of the system track.
	p.setProgress(0.45)
	result, err = p.diarizer.Process(ctx, sysPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("diarization failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	slog.Debug("diarization done", slog.Int("speakers", result.SpeakerCount),
		slog.Int("segments", len(result.Segments)),
		slog.Float64("processingSec", result.ProcessingSec))

	// Stage 4: speaker attribution by interval midpoint.
	p.setProgress(0.7)
	system = AssignSpeakers(sysSegments, result.Segments)

	// Stage 5: the local side as a single segment spanning the mic
	// track. No intra-mic speaker splitting.
	p.setProgress(0.9)
	if text := strings.TrimSpace(micText); text != "" {
		dur, err := wav.FileDuration(micPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %s", ErrInvalidAudio, err.Error())
		}
		mic = []transcribe.Segment{
			{
				Label:    MicSpeakerLabel,
				Text:     text,
				StartSec: 0,
				EndSec:   dur.Seconds(),
				Source:   transcribe.SourceMic,
			},
		}
	}

	p.setProgress(1.0)

	return mic, system, result, nil
}
