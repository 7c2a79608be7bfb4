package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soundbench/meeting-recorder/cmd/recorder/audio"
	"github.com/soundbench/meeting-recorder/cmd/recorder/record"
)

type fakeStream struct{}

func (s *fakeStream) SampleRate() int { return 16000 }
func (s *fakeStream) Channels() int   { return 1 }
func (s *fakeStream) Stop() error     { return nil }

type fakeBackend struct{}

func (b *fakeBackend) Open(_ audio.DeviceType, _ audio.StreamConfig, _ audio.DataFunc) (audio.Stream, error) {
	return &fakeStream{}, nil
}

func (b *fakeBackend) Close() error { return nil }

func newTestRecorder(t *testing.T) (*record.Recorder, string) {
	t.Helper()
	backend := &fakeBackend{}
	dataDir := t.TempDir()
	recorder, err := record.NewRecorder(dataDir, audio.NewMicCapture(backend), audio.NewSystemCapture(backend))
	require.NoError(t, err)
	return recorder, dataDir
}

func TestCancelOnSecondInterrupt(t *testing.T) {
	t.Run("stop completes first", func(t *testing.T) {
		recorder, _ := newTestRecorder(t)

		exitCode := -1
		sig := make(chan os.Signal, 1)
		stopped := make(chan struct{})
		close(stopped)

		cancelOnSecondInterrupt(recorder, sig, stopped, func(code int) { exitCode = code })
		require.Equal(t, -1, exitCode)
	})

	t.Run("interrupt discards the session", func(t *testing.T) {
		recorder, dataDir := newTestRecorder(t)

		_, err := recorder.StartRecording()
		require.NoError(t, err)

		exitCode := -1
		sig := make(chan os.Signal, 1)
		sig <- os.Interrupt

		cancelOnSecondInterrupt(recorder, sig, make(chan struct{}), func(code int) { exitCode = code })
		require.Equal(t, 130, exitCode)

		entries, err := os.ReadDir(dataDir)
		require.NoError(t, err)
		require.Empty(t, entries)
	})

	t.Run("interrupt after the session was saved", func(t *testing.T) {
		recorder, dataDir := newTestRecorder(t)

		_, err := recorder.StartRecording()
		require.NoError(t, err)
		session, err := recorder.StopRecording()
		require.NoError(t, err)

		exitCode := -1
		sig := make(chan os.Signal, 1)
		sig <- os.Interrupt

		cancelOnSecondInterrupt(recorder, sig, make(chan struct{}), func(code int) { exitCode = code })
		require.Equal(t, -1, exitCode)
		require.DirExists(t, session.Dir)

		entries, err := os.ReadDir(dataDir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	})
}
