package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/streamer45/silero-vad-go/speech"

	"github.com/soundbench/meeting-recorder/cmd/recorder/apis/pyannote"
	"github.com/soundbench/meeting-recorder/cmd/recorder/audio"
	"github.com/soundbench/meeting-recorder/cmd/recorder/caption"
	"github.com/soundbench/meeting-recorder/cmd/recorder/config"
	"github.com/soundbench/meeting-recorder/cmd/recorder/diarize"
	"github.com/soundbench/meeting-recorder/cmd/recorder/engine"
	"github.com/soundbench/meeting-recorder/cmd/recorder/enhance"
	"github.com/soundbench/meeting-recorder/cmd/recorder/models"
	"github.com/soundbench/meeting-recorder/cmd/recorder/record"
	"github.com/soundbench/meeting-recorder/cmd/recorder/transcribe"
	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

const (
	micTrackName    = "mic.wav"
	systemTrackName = "system.wav"

	defaultConfigPath = "~/.config/meeting-recorder/config.yaml"

	// VAD tuning for live captioning. WindowSize of 512 gives as
	// fine-grained detection as possible for windows whose length doesn't
	// cleanly divide.
	vadWindowSizeInSamples  = 512
	vadThreshold            = 0.5
	vadMinSilenceDurationMs = 150
	vadMinSpeechDurationMs  = 200
	vadSilencePadMs         = 32
)

func slogReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		if source.File == "" {
			// Log from a dependency (e.g. malgo).
			if pc, file, line, ok := runtime.Caller(7); ok {
				if f := runtime.FuncForPC(pc); f != nil {
					source.File = filepath.Base(filepath.Dir(file)) + "/" + filepath.Base(file)
					source.Line = line
				}
			}
		} else {
			source.File = filepath.Base(source.File)
		}
	}
	return a
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelInfo,
		ReplaceAttr: slogReplaceAttr,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", defaultConfigPath, "path to the YAML config file")
	flag.Usage = usage
	flag.Parse()

	var cfg config.RecorderConfig
	if err := cfg.Load(*configPath); err != nil {
		slog.Error("failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}
	cfg.FromEnv()
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		slog.Error("failed to validate config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	var err error
	switch cmd := flag.Arg(0); cmd {
	case "record":
		err = runRecord(cfg)
	case "process":
		switch flag.NArg() {
		case 2:
			dir := flag.Arg(1)
			err = runProcess(cfg, filepath.Join(dir, micTrackName), filepath.Join(dir, systemTrackName))
		case 3:
			err = runProcess(cfg, flag.Arg(1), flag.Arg(2))
		default:
			usage()
			os.Exit(2)
		}
	case "download":
		err = runDownload(cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: recorder [flags] <command>

commands:
  record                            start a recording session, stop with an interrupt
  process <sessionDir>              transcribe, diarize and render a recorded session
  process <mic.wav> <system.wav>    same, with explicit track files
  download                          fetch the transcription and VAD models

flags:
`)
	flag.PrintDefaults()
}

// runRecord captures mic and system audio until the first interrupt, then
// stops and saves the session. Live captions, when enabled, are printed to
// stdout as they are produced.
func runRecord(cfg config.RecorderConfig) error {
	backend, err := audio.NewMalgoBackend()
	if err != nil {
		return fmt.Errorf("failed to create audio backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			slog.Error("failed to close audio backend", slog.String("err", err.Error()))
		}
	}()

	mic := audio.NewMicCapture(backend)
	system := audio.NewSystemCapture(backend)

	recorder, err := record.NewRecorder(cfg.DataDir, mic, system)
	if err != nil {
		return fmt.Errorf("failed to create recorder: %w", err)
	}

	var captions *caption.Service
	if cfg.Captions.Enabled {
		captions, err = setupCaptions(cfg, mic)
		if err != nil {
			return err
		}
	}

	id, err := recorder.StartRecording()
	if err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}

	slog.Info("recording, interrupt to stop and save", slog.String("sessionID", id))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	slog.Info("stopping recording")

	// A second interrupt while stopping discards the session instead of
	// saving it.
	stopped := make(chan struct{})
	go cancelOnSecondInterrupt(recorder, sig, stopped, os.Exit)

	if captions != nil {
		captions.Stop()
	}

	session, err := recorder.StopRecording()
	close(stopped)
	if err != nil {
		return fmt.Errorf("failed to stop recording: %w", err)
	}

	fmt.Printf("session saved to %s\n", session.Dir)

	return nil
}

// cancelOnSecondInterrupt discards the active session when another
// interrupt arrives before stopping completes. If the stop already saved
// the session, the interrupt is ignored.
func cancelOnSecondInterrupt(recorder *record.Recorder, sig <-chan os.Signal, stopped <-chan struct{}, exit func(int)) {
	select {
	case <-stopped:
		return
	case <-sig:
	}

	slog.Warn("second interrupt, cancelling recording")
	if err := recorder.CancelRecording(); err != nil {
		if errors.Is(err, record.ErrNotRecording) {
			// Stop won the race and the session was saved.
			return
		}
		slog.Error("failed to cancel recording", slog.String("err", err.Error()))
	}
	exit(130)
}

func setupCaptions(cfg config.RecorderConfig, mic *audio.MicCapture) (*caption.Service, error) {
	t, err := engine.NewLiveTranscriber(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create live transcriber: %w", err)
	}

	transcribeFn := func(samples []float32) (string, error) {
		segments, err := t.Transcribe(samples)
		if err != nil {
			return "", err
		}
		return engine.JoinText(segments), nil
	}

	captions, err := caption.NewService(transcribeFn, func(c caption.Chunk) {
		fmt.Printf("[%6.1fs] %s\n", c.StartSec, c.Text)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create caption service: %w", err)
	}

	if cfg.Captions.EnableVAD {
		sd, err := speech.NewDetector(speech.DetectorConfig{
			ModelPath:            models.VADModelPath(cfg.ModelsDir),
			SampleRate:           caption.SampleRate,
			WindowSize:           vadWindowSizeInSamples,
			Threshold:            vadThreshold,
			MinSilenceDurationMs: vadMinSilenceDurationMs,
			MinSpeechDurationMs:  vadMinSpeechDurationMs,
			SilencePadMs:         vadSilencePadMs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create speech detector: %w", err)
		}
		captions.SetDetector(sd)
	}

	if err := captions.Start(); err != nil {
		return nil, fmt.Errorf("failed to start captions: %w", err)
	}
	mic.SetSampleFunc(captions.FeedSamples)

	return captions, nil
}

// runProcess runs the offline pipeline over a recorded session and renders
// the configured output formats next to the mic track.
func runProcess(cfg config.RecorderConfig, micPath, sysPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() {
		if err := eng.Destroy(); err != nil {
			slog.Error("failed to destroy engine", slog.String("err", err.Error()))
		}
	}()

	diarizer, err := pyannote.NewClient(pyannote.Config{
		URL:           cfg.Diarizer.URL,
		ReadyAttempts: cfg.Diarizer.ReadyAttempts,
		ReadyInterval: time.Duration(cfg.Diarizer.ReadyIntervalMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to create diarizer: %w", err)
	}

	if err := diarizer.PrepareModels(ctx); err != nil {
		return fmt.Errorf("failed to prepare diarization models: %w", err)
	}

	processor, err := diarize.NewProcessor(diarizer, eng)
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}
	processor.SetProgressFunc(func(frac float64) {
		slog.Info("processing", slog.Int("percent", int(frac*100)))
	})

	mic, system, result, err := processor.ProcessMeetingRecording(ctx, micPath, sysPath)
	if err != nil {
		return fmt.Errorf("failed to process recording: %w", err)
	}

	conversation := transcribe.Merge(mic, system)
	if err := enhanceConversation(cfg, conversation); err != nil {
		return err
	}

	slog.Info("processing done", slog.Int("speakers", result.SpeakerCount),
		slog.Int("segments", len(conversation)))

	var summary string
	if cfg.Enhance.Summarize && cfg.OpenAI.APIKey != "" {
		summary = summarize(ctx, cfg, conversation)
	}

	return renderOutputs(cfg, filepath.Dir(micPath), micPath, conversation, summary)
}

func enhanceConversation(cfg config.RecorderConfig, conversation transcribe.Conversation) error {
	filter, err := enhance.NewFillerFilter(cfg.Enhance.FillerWords)
	if err != nil {
		return fmt.Errorf("failed to create filler filter: %w", err)
	}
	expander, err := enhance.NewSnippetExpander(cfg.Enhance.Snippets)
	if err != nil {
		return fmt.Errorf("failed to create snippet expander: %w", err)
	}

	for i := range conversation {
		conversation[i].Text = expander.Expand(filter.Apply(conversation[i].Text))
	}

	return nil
}

// summarize is best effort: a transcript without a summary is still a
// transcript.
func summarize(ctx context.Context, cfg config.RecorderConfig, conversation transcribe.Conversation) string {
	summarizer, err := enhance.NewSummarizer(enhance.SummarizerConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.Enhance.Model,
	})
	if err != nil {
		slog.Error("failed to create summarizer", slog.String("err", err.Error()))
		return ""
	}

	summary, err := summarizer.Summarize(ctx, conversation)
	if err != nil {
		slog.Error("failed to summarize", slog.String("err", err.Error()))
		return ""
	}

	return summary
}

func renderOutputs(cfg config.RecorderConfig, dir, micPath string, conversation transcribe.Conversation, summary string) error {
	var duration time.Duration
	if dur, err := wav.FileDuration(micPath); err == nil {
		duration = dur
	}

	for _, format := range cfg.OutputFormats {
		path := filepath.Join(dir, "transcript."+outputExt(format))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}

		switch format {
		case config.OutputFormatVTT:
			err = conversation.WebVTT(f, transcribe.WebVTTOptions{})
		case config.OutputFormatText:
			err = conversation.Text(f)
		case config.OutputFormatMarkdown:
			opts := transcribe.MarkdownOptions{
				Date:     time.Now(),
				Duration: duration,
				Summary:  summary,
			}
			opts.SetDefaults()
			err = conversation.Markdown(f, opts)
		case config.OutputFormatJSON:
			err = conversation.JSON(f)
		}
		if cErr := f.Close(); cErr != nil && err == nil {
			err = cErr
		}
		if err != nil {
			return fmt.Errorf("failed to render %s output: %w", string(format), err)
		}

		slog.Info("output written", slog.String("path", path))
	}

	return nil
}

func outputExt(format config.OutputFormat) string {
	switch format {
	case config.OutputFormatText:
		return "txt"
	case config.OutputFormatMarkdown:
		return "md"
	default:
		return string(format)
	}
}

// runDownload fetches the whisper weights and the VAD network ahead of
// time so the first recording doesn't pay the download cost.
func runDownload(cfg config.RecorderConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TranscribeAPI == config.TranscribeAPIWhisperCPP {
		if err := models.DownloadWhisperModel(ctx, cfg.ModelsDir, cfg.ModelSize); err != nil {
			return fmt.Errorf("failed to download whisper model: %w", err)
		}
	}

	if err := models.DownloadVADModel(ctx, cfg.ModelsDir); err != nil {
		return fmt.Errorf("failed to download VAD model: %w", err)
	}

	return nil
}
