package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soundbench/meeting-recorder/cmd/recorder/config"
	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

type fakeTranscriber struct {
	segments  []transcribe.TimedSegment
	err       error
	sampleLen int
	destroyed bool
}

func (t *fakeTranscriber) Transcribe(samples []float32) ([]transcribe.TimedSegment, error) {
	t.sampleLen = len(samples)
	return t.segments, t.err
}

func (t *fakeTranscriber) Destroy() error {
	t.destroyed = true
	return nil
}

func TestJoinText(t *testing.T) {
	tcs := []struct {
		name     string
		segments []transcribe.TimedSegment
		expected string
	}{
		{
			name:     "empty",
			segments: nil,
			expected: "",
		},
		{
			name: "single",
			segments: []transcribe.TimedSegment{
				{Text: " hello there "},
			},
			expected: "hello there",
		},
		{
			name: "joins and skips blanks",
			segments: []transcribe.TimedSegment{
				{Text: "first part."},
				{Text: "   "},
				{Text: " second part."},
			},
			expected: "first part. second part.",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, JoinText(tc.segments))
		})
	}
}

func TestFileEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.wav")
	samples := make([]int16, wav.SampleRate)
	require.NoError(t, wav.WriteFile(path, samples))

	t.Run("transcribe joins segments", func(t *testing.T) {
		ft := &fakeTranscriber{
			segments: []transcribe.TimedSegment{
				{Text: "hello", StartSec: 0, EndSec: 0.5},
				{Text: "world", StartSec: 0.5, EndSec: 1},
			},
		}
		e := FromTranscriber(ft)

		text, err := e.Transcribe(context.Background(), path)
		require.NoError(t, err)
		require.Equal(t, "hello world", text)
		require.Equal(t, wav.SampleRate, ft.sampleLen)
	})

	t.Run("transcriber error", func(t *testing.T) {
		ft := &fakeTranscriber{err: fmt.Errorf("model failure")}
		e := FromTranscriber(ft)

		_, err := e.TranscribeWithTimestamps(context.Background(), path)
		require.ErrorContains(t, err, "model failure")
	})

	t.Run("missing file", func(t *testing.T) {
		e := FromTranscriber(&fakeTranscriber{})
		_, err := e.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
		require.ErrorContains(t, err, "failed to import file")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		e := FromTranscriber(&fakeTranscriber{})
		_, err := e.TranscribeWithTimestamps(ctx, path)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("destroy propagates", func(t *testing.T) {
		ft := &fakeTranscriber{}
		e := FromTranscriber(ft)
		require.NoError(t, e.Destroy())
		require.True(t, ft.destroyed)
	})
}

type fakeEngine struct {
	text string
}

func (e *fakeEngine) Transcribe(_ context.Context, _ string) (string, error) {
	return e.text, nil
}

func (e *fakeEngine) TranscribeWithTimestamps(_ context.Context, _ string) ([]transcribe.TimedSegment, error) {
	return nil, nil
}

func TestFileTranscriber(t *testing.T) {
	ft := &fileTranscriber{engine: &fakeEngine{text: "caption text"}}

	samples := make([]float32, 2*wav.SampleRate)
	segments, err := ft.Transcribe(samples)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	require.Equal(t, "caption text", segments[0].Text)
	require.Equal(t, 2.0, segments[0].EndSec)

	require.NoError(t, ft.Destroy())
}

func TestNew(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		cfg := config.RecorderConfig{
			TranscribeAPI: config.TranscribeAPIOpenAIWhisper,
			OpenAI: config.OpenAIConfig{
				APIKey:  "key",
				BaseURL: "http://localhost:8080/v1",
				Model:   "whisper-1",
			},
		}
		e, err := New(cfg)
		require.NoError(t, err)
		require.NoError(t, e.Destroy())
	})

	t.Run("azure missing key", func(t *testing.T) {
		cfg := config.RecorderConfig{
			TranscribeAPI: config.TranscribeAPIAzure,
		}
		_, err := New(cfg)
		require.ErrorContains(t, err, "failed to create speech recognizer")
	})

	t.Run("unsupported API", func(t *testing.T) {
		_, err := New(config.RecorderConfig{TranscribeAPI: "bogus"})
		require.ErrorContains(t, err, "unsupported transcribe API")
	})
}
