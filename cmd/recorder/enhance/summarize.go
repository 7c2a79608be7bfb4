package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
)

const (
	summarizeTimeout = 2 * time.Minute

	systemPrompt = "You are a meeting assistant. Produce a concise markdown summary " +
		"of the following conversation transcript: key points, decisions, and " +
		"action items. Do not invent content that is not in the transcript."
)

type SummarizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

func (c SummarizerConfig) IsValid() error {
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

// Summarizer produces a meeting summary from a merged conversation through
// an OpenAI-compatible chat completions API. Failures are meant to be
// non-fatal for callers: a recording without a summary is still a
// recording.
type Summarizer struct {
	cfg    SummarizerConfig
	client *http.Client
}

func NewSummarizer(cfg SummarizerConfig) (*Summarizer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &Summarizer{
		cfg: cfg,
		client: &http.Client{
			Timeout: summarizeTimeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Summarizer) Summarize(ctx context.Context, c transcribe.Conversation) (string, error) {
	if len(c) == 0 {
		return "", fmt.Errorf("conversation should not be empty")
	}

	var sb strings.Builder
	for _, seg := range c {
		fmt.Fprintf(&sb, "%s: %s\n", seg.DisplayName(), seg.Text)
	}

	payload := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: sb.String()},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(data))
	}

	var cr struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("response contains no choices")
	}

	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
