// Package engine instantiates the configured transcription backend and
// adapts it to both the offline (file level) and live (sample level)
// transcription surfaces.
package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/soundbench/meeting-recorder/cmd/recorder/apis/azure"
	"github.com/soundbench/meeting-recorder/cmd/recorder/apis/openai"
	whisper "github.com/soundbench/meeting-recorder/cmd/recorder/apis/whisper.cpp"
	"github.com/soundbench/meeting-recorder/cmd/recorder/audio"
	"github.com/soundbench/meeting-recorder/cmd/recorder/config"
	"github.com/soundbench/meeting-recorder/cmd/recorder/models"
	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

// liveAudioContext trades accuracy for latency on short caption windows.
// See https://github.com/ggerganov/whisper.cpp/pull/141
const liveAudioContext = 512

// Engine is a destroyable file level transcription backend.
type Engine interface {
	transcribe.Engine
	Destroy() error
}

// New returns the file level engine selected by cfg.TranscribeAPI.
func New(cfg config.RecorderConfig) (Engine, error) {
	switch cfg.TranscribeAPI {
	case config.TranscribeAPIWhisperCPP:
		t, err := whisper.NewContext(whisper.Config{
			ModelFile:  models.WhisperModelPath(cfg.ModelsDir, cfg.ModelSize),
			NumThreads: cfg.NumThreads,
			Language:   cfg.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create whisper context: %w", err)
		}
		return FromTranscriber(t), nil
	case config.TranscribeAPIAzure:
		t, err := azure.NewSpeechRecognizer(azure.SpeechRecognizerConfig{
			SpeechKey:    cfg.Azure.SpeechKey,
			SpeechRegion: cfg.Azure.SpeechRegion,
			Language:     cfg.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create speech recognizer: %w", err)
		}
		return FromTranscriber(t), nil
	case config.TranscribeAPIOpenAIWhisper:
		client, err := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return &remoteEngine{client: client}, nil
	default:
		return nil, fmt.Errorf("unsupported transcribe API %q", string(cfg.TranscribeAPI))
	}
}

// NewLiveTranscriber returns the sample level transcriber used for live
// captioning, selected by cfg.TranscribeAPI.
func NewLiveTranscriber(cfg config.RecorderConfig) (transcribe.Transcriber, error) {
	switch cfg.TranscribeAPI {
	case config.TranscribeAPIWhisperCPP:
		t, err := whisper.NewContext(whisper.Config{
			ModelFile:     models.WhisperModelPath(cfg.ModelsDir, cfg.ModelSize),
			NumThreads:    cfg.NumThreads,
			Language:      cfg.Language,
			NoContext:     true,
			AudioContext:  liveAudioContext,
			SingleSegment: true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create whisper context: %w", err)
		}
		return t, nil
	case config.TranscribeAPIAzure:
		t, err := azure.NewSpeechRecognizer(azure.SpeechRecognizerConfig{
			SpeechKey:    cfg.Azure.SpeechKey,
			SpeechRegion: cfg.Azure.SpeechRegion,
			Language:     cfg.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create speech recognizer: %w", err)
		}
		return t, nil
	case config.TranscribeAPIOpenAIWhisper:
		client, err := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return &fileTranscriber{engine: client}, nil
	default:
		return nil, fmt.Errorf("unsupported transcribe API %q", string(cfg.TranscribeAPI))
	}
}

// JoinText flattens timed segments into a single transcript string.
func JoinText(segments []transcribe.TimedSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// fileEngine adapts a sample level transcriber to the file level surface
// by importing the audio up front.
type fileEngine struct {
	t transcribe.Transcriber
}

// FromTranscriber wraps a sample level transcriber into an Engine.
func FromTranscriber(t transcribe.Transcriber) Engine {
	return &fileEngine{
		t: t,
	}
}

func (e *fileEngine) Transcribe(ctx context.Context, path string) (string, error) {
	segments, err := e.TranscribeWithTimestamps(ctx, path)
	if err != nil {
		return "", err
	}
	return JoinText(segments), nil
}

func (e *fileEngine) TranscribeWithTimestamps(ctx context.Context, path string) ([]transcribe.TimedSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples, err := audio.ImportFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to import file: %w", err)
	}

	segments, err := e.t.Transcribe(samples)
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe: %w", err)
	}

	return segments, nil
}

func (e *fileEngine) Destroy() error {
	return e.t.Destroy()
}

// remoteEngine wraps an API backed engine with a no-op Destroy.
type remoteEngine struct {
	client *openai.Client
}

func (e *remoteEngine) Transcribe(ctx context.Context, path string) (string, error) {
	return e.client.Transcribe(ctx, path)
}

func (e *remoteEngine) TranscribeWithTimestamps(ctx context.Context, path string) ([]transcribe.TimedSegment, error) {
	return e.client.TranscribeWithTimestamps(ctx, path)
}

func (e *remoteEngine) Destroy() error {
	return nil
}

// liveRequestTimeout bounds a single caption window round trip.
const liveRequestTimeout = 30 * time.Second

// fileTranscriber adapts a file level engine to the sample level surface
// by staging each window as a temporary WAV file.
type fileTranscriber struct {
	engine transcribe.Engine
}

func (t *fileTranscriber) Transcribe(samples []float32) ([]transcribe.TimedSegment, error) {
	f, err := os.CreateTemp("", "caption-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := wav.WriteFile(path, wav.FromFloat32(samples)); err != nil {
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), liveRequestTimeout)
	defer cancel()

	text, err := t.engine.Transcribe(ctx, path)
	if err != nil {
		return nil, err
	}

	return []transcribe.TimedSegment{
		{
			Text:   text,
			EndSec: float64(len(samples)) / float64(wav.SampleRate),
		},
	}, nil
}

func (t *fileTranscriber) Destroy() error {
	return nil
}
