package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "whisper-1",
	})
	require.NoError(t, err)

	return c
}

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.wav")
	require.NoError(t, wav.WriteFile(path, make([]int16, wav.SampleRate)))
	return path
}

func TestConfigIsValid(t *testing.T) {
	tcs := []struct {
		name string
		cfg  Config
		err  string
	}{
		{
			name: "empty config",
			err:  "invalid APIKey: should not be empty",
		},
		{
			name: "missing base URL",
			cfg: Config{
				APIKey: "key",
			},
			err: "invalid BaseURL: should not be empty",
		},
		{
			name: "missing model",
			cfg: Config{
				APIKey:  "key",
				BaseURL: "https://api.openai.com/v1",
			},
			err: "invalid Model: should not be empty",
		},
		{
			name: "valid",
			cfg: Config{
				APIKey:  "key",
				BaseURL: "https://api.openai.com/v1",
				Model:   "whisper-1",
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

func TestTranscribe(t *testing.T) {
	path := writeAudio(t)

	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/audio/transcriptions", r.URL.Path)
			require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			require.Equal(t, "whisper-1", r.FormValue("model"))
			require.Equal(t, "json", r.FormValue("response_format"))

			fmt.Fprint(w, `{"text": "hello from the cloud"}`)
		}))

		text, err := c.Transcribe(context.Background(), path)
		require.NoError(t, err)
		require.Equal(t, "hello from the cloud", text)
	})

	t.Run("http error", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
		}))

		_, err := c.Transcribe(context.Background(), path)
		require.ErrorContains(t, err, "request failed with status 429")
	})

	t.Run("missing file", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
		require.ErrorContains(t, err, "failed to open file")
	})
}

func TestTranscribeWithTimestamps(t *testing.T) {
	path := writeAudio(t)

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "verbose_json", r.FormValue("response_format"))

		fmt.Fprint(w, `{
			"text": "hi there all good",
			"segments": [
				{"text": "hi there", "start": 0, "end": 2.2},
				{"text": "all good", "start": 2.4, "end": 4}
			]
		}`)
	}))

	segments, err := c.TranscribeWithTimestamps(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, []transcribe.TimedSegment{
		{Text: "hi there", StartSec: 0, EndSec: 2.2},
		{Text: "all good", StartSec: 2.4, EndSec: 4},
	}, segments)
}
