// Package models fetches the local model files the recorder depends on:
// whisper GGML weights for transcription and the silero VAD network used
// to gate live captioning.
package models

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/soundbench/meeting-recorder/cmd/recorder/config"
)

const (
	whisperModelURLTmpl = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-%s.bin"
	vadModelURL         = "https://raw.githubusercontent.com/snakers4/silero-vad/v4.0/files/silero_vad.onnx"

	// VADModelName is the on-disk file name of the VAD network.
	VADModelName = "silero_vad.onnx"

	downloadTimeout = 30 * time.Minute
)

// WhisperModelPath returns the on-disk path of the GGML weights for size.
func WhisperModelPath(modelsDir string, size config.ModelSize) string {
	return filepath.Join(modelsDir, fmt.Sprintf("ggml-%s.bin", string(size)))
}

// VADModelPath returns the on-disk path of the VAD network.
func VADModelPath(modelsDir string) string {
	return filepath.Join(modelsDir, VADModelName)
}

// DownloadWhisperModel fetches the GGML weights for size into modelsDir,
// skipping the download when the file already exists.
func DownloadWhisperModel(ctx context.Context, modelsDir string, size config.ModelSize) error {
	if !size.IsValid() {
		return fmt.Errorf("invalid model size %q", string(size))
	}
	return download(ctx, fmt.Sprintf(whisperModelURLTmpl, string(size)), WhisperModelPath(modelsDir, size))
}

// DownloadVADModel fetches the silero VAD network into modelsDir.
func DownloadVADModel(ctx context.Context, modelsDir string) error {
	return download(ctx, vadModelURL, VADModelPath(modelsDir))
}

// download writes to a temp file first and renames on completion so a
// partially fetched model never shadows a good one.
func download(ctx context.Context, url, dst string) error {
	if info, err := os.Stat(dst); err == nil && info.Size() > 0 {
		slog.Debug("model already exists, skipping download", slog.String("path", dst))
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return fmt.Errorf("failed to create models dir: %w", err)
	}

	slog.Info("downloading model", slog.String("url", url), slog.String("path", dst))

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	tmpPath := dst + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = io.Copy(f, resp.Body)
	if cErr := f.Close(); cErr != nil && err == nil {
		err = cErr
	}
	if err != nil {
		if rErr := os.Remove(tmpPath); rErr != nil {
			slog.Error("failed to remove temp file", slog.String("err", rErr.Error()))
		}
		return fmt.Errorf("failed to write model file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("failed to rename model file: %w", err)
	}

	slog.Info("model downloaded", slog.String("path", dst))

	return nil
}
