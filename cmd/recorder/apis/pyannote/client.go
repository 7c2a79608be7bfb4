// Package pyannote implements the diarize.Diarizer capability on top of a
// pyannote HTTP sidecar.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/soundbench/meeting-recorder/cmd/recorder/diarize"
)

const defaultRequestTimeout = 5 * time.Minute

type Config struct {
	// URL is the sidecar base URL.
	URL string
	// ReadyAttempts and ReadyInterval bound the readiness polling loop in
	// PrepareModels. The interval is fixed, there's no backoff: model
	// preparation is a one-time local step, not a network-sensitive retry.
	ReadyAttempts  int
	ReadyInterval  time.Duration
	RequestTimeout time.Duration
}

func (c Config) IsValid() error {
	if c.URL == "" {
		return fmt.Errorf("invalid URL: should not be empty")
	}

	if c.ReadyAttempts <= 0 {
		return fmt.Errorf("invalid ReadyAttempts: should be greater than zero")
	}

	if c.ReadyInterval <= 0 {
		return fmt.Errorf("invalid ReadyInterval: should be greater than zero")
	}

	return nil
}

type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}, nil
}

// PrepareModels polls the sidecar's health endpoint until the model is
// loaded. The sidecar downloads and caches weights on its own; all this
// does is wait for readiness within the configured bounds.
func (c *Client) PrepareModels(ctx context.Context) error {
	for i := 0; i < c.cfg.ReadyAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ReadyInterval):
			}
		}

		ok, err := c.healthy(ctx)
		if err != nil {
			slog.Debug("diarizer not ready", slog.Int("attempt", i+1),
				slog.String("err", err.Error()))
			continue
		}
		if ok {
			return nil
		}
	}

	return fmt.Errorf("timed out waiting for diarizer readiness: %w", diarize.ErrModelNotFound)
}

func (c *Client) healthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

type diarizeResponse struct {
	Segments []struct {
		SpeakerID  string  `json:"speaker_id"`
		StartTime  float64 `json:"start_time"`
		EndTime    float64 `json:"end_time"`
		Confidence float64 `json:"confidence"`
	} `json:"segments"`
	NumSpeakers    int     `json:"num_speakers"`
	ProcessingTime float64 `json:"processing_time"`
	Error          string  `json:"error,omitempty"`
}

// Process sends the audio file to the sidecar and normalizes its output.
func (c *Client) Process(ctx context.Context, path string) (*diarize.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", diarize.ErrInvalidAudio, err.Error())
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+"/diarize", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s", diarize.ErrInvalidAudio, string(body))
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var dr diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if dr.Error != "" {
		return nil, fmt.Errorf("diarizer returned an error: %s", dr.Error)
	}

	result := &diarize.Result{
		Segments:      make([]diarize.SpeakerSegment, len(dr.Segments)),
		SpeakerCount:  dr.NumSpeakers,
		ProcessingSec: dr.ProcessingTime,
	}
	if result.ProcessingSec == 0 {
		result.ProcessingSec = time.Since(start).Seconds()
	}

	for i, seg := range dr.Segments {
		result.Segments[i] = diarize.SpeakerSegment{
			Speaker:    diarize.ParseSpeakerID(seg.SpeakerID),
			StartSec:   seg.StartTime,
			EndSec:     seg.EndTime,
			Confidence: seg.Confidence,
		}
	}

	return result, nil
}
