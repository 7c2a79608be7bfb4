package pyannote

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soundbench/meeting-recorder/cmd/recorder/diarize"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		URL:           server.URL,
		ReadyAttempts: 3,
		ReadyInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	return c
}

func TestConfigIsValid(t *testing.T) {
	tcs := []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "empty config",
			err:  "invalid URL: should not be empty",
		},
		{
			name: "missing attempts",
			cfg: Config{
				URL: "http://localhost:8388",
			},
			err: "invalid ReadyAttempts: should be greater than zero",
		},
		{
			name: "missing interval",
			cfg: Config{
				URL:           "http://localhost:8388",
				ReadyAttempts: 10,
			},
			err: "invalid ReadyInterval: should be greater than zero",
		},
		{
			name: "valid",
			cfg: Config{
				URL:           "http://localhost:8388",
				ReadyAttempts: 10,
				ReadyInterval: time.Second,
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.IsValid()
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPrepareModels(t *testing.T) {
	t.Run("ready on first attempt", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		require.NoError(t, c.PrepareModels(context.Background()))
	})

	t.Run("ready after polling", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		require.NoError(t, c.PrepareModels(context.Background()))
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("bounded attempts", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		err := c.PrepareModels(context.Background())
		require.ErrorIs(t, err, diarize.ErrModelNotFound)
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("cancellation", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.ErrorIs(t, c.PrepareModels(ctx), context.Canceled)
	})
}

func TestProcess(t *testing.T) {
	audioPath := filepath.Join(t.TempDir(), "system.wav")
	require.NoError(t, wav.WriteFile(audioPath, make([]int16, wav.SampleRate)))

	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/diarize", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, hdr, err := r.FormFile("audio")
			require.NoError(t, err)
			require.Equal(t, "system.wav", hdr.Filename)

			fmt.Fprint(w, `{
				"segments": [
					{"speaker_id": "SPEAKER_0", "start_time": 0, "end_time": 4.5, "confidence": 0.93},
					{"speaker_id": "SPEAKER_1", "start_time": 4.5, "end_time": 9, "confidence": 0.81}
				],
				"num_speakers": 2,
				"processing_time": 12.4
			}`)
		}))

		result, err := c.Process(context.Background(), audioPath)
		require.NoError(t, err)
		require.Equal(t, 2, result.SpeakerCount)
		require.Equal(t, 12.4, result.ProcessingSec)
		require.Equal(t, []diarize.SpeakerSegment{
			{Speaker: 0, StartSec: 0, EndSec: 4.5, Confidence: 0.93},
			{Speaker: 1, StartSec: 4.5, EndSec: 9, Confidence: 0.81},
		}, result.Segments)
	})

	t.Run("missing file", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		_, err := c.Process(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
		require.ErrorIs(t, err, diarize.ErrInvalidAudio)
	})

	t.Run("bad request maps to invalid audio", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unsupported codec", http.StatusBadRequest)
		}))
		_, err := c.Process(context.Background(), audioPath)
		require.ErrorIs(t, err, diarize.ErrInvalidAudio)
	})

	t.Run("sidecar error payload", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"error": "model crashed"}`)
		}))
		_, err := c.Process(context.Background(), audioPath)
		require.ErrorContains(t, err, "model crashed")
	})
}
