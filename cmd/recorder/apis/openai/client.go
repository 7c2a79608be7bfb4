// Package openai implements file level transcription through an
// OpenAI-compatible audio transcriptions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
)

const defaultRequestTimeout = 10 * time.Minute

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

func (c Config) IsValid() error {
	if c.APIKey == "" {
		return fmt.Errorf("invalid APIKey: should not be empty")
	}

	if c.BaseURL == "" {
		return fmt.Errorf("invalid BaseURL: should not be empty")
	}

	if c.Model == "" {
		return fmt.Errorf("invalid Model: should not be empty")
	}

	return nil
}

// Client implements transcribe.Engine.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}, nil
}

func (c *Client) Transcribe(ctx context.Context, path string) (string, error) {
	var resp struct {
		Text string `json:"text"`
	}
	if err := c.transcribeRequest(ctx, path, "json", &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *Client) TranscribeWithTimestamps(ctx context.Context, path string) ([]transcribe.TimedSegment, error) {
	var resp struct {
		Segments []struct {
			Text  string  `json:"text"`
			Start float64 `json:"start"`
			End   float64 `json:"end"`
		} `json:"segments"`
		Text string `json:"text"`
	}
	if err := c.transcribeRequest(ctx, path, "verbose_json", &resp); err != nil {
		return nil, err
	}

	segments := make([]transcribe.TimedSegment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcribe.TimedSegment{
			Text:     seg.Text,
			StartSec: seg.Start,
			EndSec:   seg.End,
		}
	}

	return segments, nil
}

func (c *Client) transcribeRequest(ctx context.Context, path, format string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", c.cfg.Model); err != nil {
		return fmt.Errorf("failed to write field: %w", err)
	}
	if err := mw.WriteField("response_format", format); err != nil {
		return fmt.Errorf("failed to write field: %w", err)
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
