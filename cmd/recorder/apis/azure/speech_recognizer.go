// Package azure implements cloud transcription through the Azure speech
// SDK.
package azure

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

const recognizeTimeout = 10 * time.Second

type SpeechRecognizerConfig struct {
	SpeechKey    string
	SpeechRegion string
	Language     string
}

func (c SpeechRecognizerConfig) IsValid() error {
	if c.SpeechKey == "" {
		return fmt.Errorf("invalid SpeechKey: should not be empty")
	}

	if c.SpeechRegion == "" {
		return fmt.Errorf("invalid SpeechRegion: should not be empty")
	}

	return nil
}

// SpeechRecognizer implements transcribe.Transcriber against the Azure
// continuous recognition API, pushing samples as a canonical WAV stream.
type SpeechRecognizer struct {
	cfg SpeechRecognizerConfig
}

func NewSpeechRecognizer(cfg SpeechRecognizerConfig) (*SpeechRecognizer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &SpeechRecognizer{
		cfg: cfg,
	}, nil
}

func (s *SpeechRecognizer) Transcribe(samples []float32) ([]transcribe.TimedSegment, error) {
	cfg, err := speech.NewSpeechConfigFromSubscription(s.cfg.SpeechKey, s.cfg.SpeechRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech config: %w", err)
	}
	defer cfg.Close()

	stream, err := audio.CreatePushAudioInputStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create audio stream: %w", err)
	}
	defer stream.Close()

	audioConfig, err := audio.NewAudioConfigFromStreamInput(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to create audio config: %w", err)
	}

	speechRecognizer, err := speech.NewSpeechRecognizerFromConfig(cfg, audioConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	defer speechRecognizer.Close()

	speechRecognizer.SessionStarted(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session started", slog.String("sessionID", event.SessionID))
	})
	speechRecognizer.SessionStopped(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session stopped", slog.String("sessionID", event.SessionID))
	})

	speechRecognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		defer event.Close()
		slog.Info("transcription canceled", slog.String("details", event.ErrorDetails))
	})

	if err := stream.Write(wav.Encode(wav.FromFloat32(samples))); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}

	segmentsCh := make(chan []transcribe.TimedSegment, 1)
	errCh := make(chan error, 1)

	speechRecognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		defer event.Close()

		if event.Result.Reason == common.NoMatch {
			errCh <- fmt.Errorf("no match")
			return
		}

		if event.Result.Reason == common.Canceled {
			errCh <- fmt.Errorf("canceled")
			return
		}

		slog.Debug("transcription completed",
			slog.Any("inputLen", float32(len(samples))/float32(wav.SampleRate)))

		segmentsCh <- []transcribe.TimedSegment{
			{
				Text:     event.Result.Text,
				StartSec: event.Result.Offset.Seconds(),
				EndSec:   event.Result.Offset.Seconds() + event.Result.Duration.Seconds(),
			},
		}
	})

	err = <-speechRecognizer.StartContinuousRecognitionAsync()
	if err != nil {
		return nil, fmt.Errorf("failed to start recognizer: %w", err)
	}
	defer func() {
		err := <-speechRecognizer.StopContinuousRecognitionAsync()
		if err != nil {
			slog.Error("failed to stop recognizer", slog.String("err", err.Error()))
		}
	}()

	// This is important as it flushes out any remaining audio data.
	stream.CloseStream()

	select {
	case segments := <-segmentsCh:
		return segments, nil
	case <-time.After(recognizeTimeout):
		return nil, fmt.Errorf("timed out waiting for transcription")
	case err := <-errCh:
		return nil, fmt.Errorf("transcription failed: %w", err)
	}
}

func (s *SpeechRecognizer) Destroy() error {
	return nil
}
