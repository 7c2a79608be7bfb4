package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gowav "github.com/go-audio/wav"

	"github.com/soundbench/meeting-recorder/cmd/recorder/ogg"
	"github.com/soundbench/meeting-recorder/cmd/recorder/opus"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

// opusFrameSize is the largest Opus frame at 16KHz (120ms).
const opusFrameSize = 1920

// ImportFile loads an audio file and normalizes it to 16KHz mono float32
// samples. Canonical WAV files are decoded directly; other WAV formats go
// through a full decode, downmix and resample; Ogg Opus tracks are decoded
// page by page.
func ImportFile(path string) ([]float32, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		samples, err := wav.ReadFile(path)
		if err == nil {
			return wav.ToFloat32(samples), nil
		}
		slog.Debug("not a canonical WAV file, falling back to full decode",
			slog.String("path", path), slog.String("err", err.Error()))
		return importWAV(path)
	case ".ogg", ".opus":
		return importOgg(path)
	default:
		return nil, fmt.Errorf("unsupported file format %q", filepath.Ext(path))
	}
}

func importWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	dec := gowav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("invalid channels count %d", channels)
	}

	scale := float32(int(1) << (dec.BitDepth - 1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}

	mono := Downmix(nil, samples, channels)

	if buf.Format.SampleRate == wav.SampleRate {
		return mono, nil
	}

	return NewResampler(buf.Format.SampleRate, wav.SampleRate).Resample(mono), nil
}

func importOgg(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	oggReader, _, err := ogg.NewReaderWith(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create ogg reader: %w", err)
	}

	opusDec, err := opus.NewDecoder(wav.SampleRate, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}
	defer func() {
		if err := opusDec.Destroy(); err != nil {
			slog.Error("failed to destroy decoder", slog.String("err", err.Error()))
		}
	}()

	var samples []float32
	pcmBuf := make([]float32, opusFrameSize)
	for {
		data, hdr, err := oggReader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			slog.Error("failed to parse ogg page", slog.String("err", err.Error()))
			continue
		}

		// First page only contains metadata.
		if hdr.GranulePosition == 0 {
			continue
		}

		n, err := opusDec.Decode(data, pcmBuf)
		if err != nil {
			slog.Error("failed to decode audio data", slog.String("err", err.Error()))
			continue
		}

		samples = append(samples, pcmBuf[:n]...)
	}

	return samples, nil
}
