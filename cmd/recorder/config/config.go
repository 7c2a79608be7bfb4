package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// defaults
	ModelSizeDefault     = ModelSizeBase
	TranscribeAPIDefault = TranscribeAPIWhisperCPP

	defaultDiarizerURL     = "http://localhost:8388"
	defaultOpenAIURL       = "https://api.openai.com/v1"
	defaultOpenAIModel     = "whisper-1"
	defaultSummarizerModel = "gpt-4o-mini"
)

type OutputFormat string

const (
	OutputFormatVTT      OutputFormat = "vtt"
	OutputFormatText     OutputFormat = "text"
	OutputFormatMarkdown OutputFormat = "markdown"
	OutputFormatJSON     OutputFormat = "json"
)

type ModelSize string

const (
	ModelSizeTiny   ModelSize = "tiny"
	ModelSizeBase             = "base"
	ModelSizeSmall            = "small"
	ModelSizeMedium           = "medium"
	ModelSizeLarge            = "large"
)

type TranscribeAPI string

const (
	TranscribeAPIWhisperCPP    = "whisper.cpp"
	TranscribeAPIAzure         = "azure"
	TranscribeAPIOpenAIWhisper = "openai/whisper"
)

func (p ModelSize) IsValid() bool {
	switch p {
	case ModelSizeTiny, ModelSizeBase, ModelSizeSmall, ModelSizeMedium, ModelSizeLarge:
		return true
	default:
		return false
	}
}

func (a TranscribeAPI) IsValid() bool {
	switch a {
	case TranscribeAPIWhisperCPP, TranscribeAPIAzure, TranscribeAPIOpenAIWhisper:
		return true
	default:
		return false
	}
}

func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatVTT, OutputFormatText, OutputFormatMarkdown, OutputFormatJSON:
		return true
	default:
		return false
	}
}

type AzureConfig struct {
	SpeechKey    string `yaml:"speech_key"`
	SpeechRegion string `yaml:"speech_region"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type CaptionsConfig struct {
	Enabled   bool `yaml:"enabled"`
	EnableVAD bool `yaml:"enable_vad"`
}

type DiarizerConfig struct {
	URL string `yaml:"url"`
	// Readiness polling: fixed interval, fixed number of attempts.
	ReadyAttempts   int `yaml:"ready_attempts"`
	ReadyIntervalMs int `yaml:"ready_interval_ms"`
}

type EnhanceConfig struct {
	FillerWords []string          `yaml:"filler_words"`
	Snippets    map[string]string `yaml:"snippets"`
	Summarize   bool              `yaml:"summarize"`
	Model       string            `yaml:"model"`
}

type RecorderConfig struct {
	DataDir   string `yaml:"data_dir"`
	ModelsDir string `yaml:"models_dir"`

	TranscribeAPI TranscribeAPI `yaml:"transcribe_api"`
	ModelSize     ModelSize     `yaml:"model_size"`
	NumThreads    int           `yaml:"num_threads"`
	Language      string        `yaml:"language"`

	Azure    AzureConfig    `yaml:"azure"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Captions CaptionsConfig `yaml:"captions"`
	Diarizer DiarizerConfig `yaml:"diarizer"`
	Enhance  EnhanceConfig  `yaml:"enhance"`

	OutputFormats []OutputFormat `yaml:"output_formats"`
}

func (cfg RecorderConfig) IsValid() error {
	if cfg.DataDir == "" {
		return fmt.Errorf("DataDir cannot be empty")
	}

	if cfg.ModelsDir == "" {
		return fmt.Errorf("ModelsDir cannot be empty")
	}

	if !cfg.TranscribeAPI.IsValid() {
		return fmt.Errorf("TranscribeAPI value is not valid")
	}

	if !cfg.ModelSize.IsValid() {
		return fmt.Errorf("ModelSize value is not valid")
	}

	if numCPU := runtime.NumCPU(); cfg.NumThreads < 1 || cfg.NumThreads > numCPU {
		return fmt.Errorf("NumThreads should be in the range [1, %d]", numCPU)
	}

	if cfg.TranscribeAPI == TranscribeAPIAzure {
		if cfg.Azure.SpeechKey == "" {
			return fmt.Errorf("Azure.SpeechKey cannot be empty")
		}
		if cfg.Azure.SpeechRegion == "" {
			return fmt.Errorf("Azure.SpeechRegion cannot be empty")
		}
	}

	if cfg.TranscribeAPI == TranscribeAPIOpenAIWhisper && cfg.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI.APIKey cannot be empty")
	}

	if u, err := url.Parse(cfg.Diarizer.URL); err != nil {
		return fmt.Errorf("Diarizer.URL parsing failed: %w", err)
	} else if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("Diarizer.URL parsing failed: invalid scheme %q", u.Scheme)
	}

	if cfg.Diarizer.ReadyAttempts < 1 {
		return fmt.Errorf("Diarizer.ReadyAttempts should be at least 1")
	}

	if cfg.Diarizer.ReadyIntervalMs < 1 {
		return fmt.Errorf("Diarizer.ReadyIntervalMs should be at least 1")
	}

	if len(cfg.OutputFormats) == 0 {
		return fmt.Errorf("OutputFormats cannot be empty")
	}
	for _, f := range cfg.OutputFormats {
		if !f.IsValid() {
			return fmt.Errorf("OutputFormats value %q is not valid", string(f))
		}
	}

	return nil
}

func (cfg *RecorderConfig) SetDefaults() {
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Join(dataHome(), "meeting-recorder")
	}

	if cfg.ModelsDir == "" {
		cfg.ModelsDir = filepath.Join(cfg.DataDir, "models")
	}

	if cfg.TranscribeAPI == "" {
		cfg.TranscribeAPI = TranscribeAPIDefault
	}

	if cfg.ModelSize == "" {
		cfg.ModelSize = ModelSizeDefault
	}

	if cfg.NumThreads == 0 {
		cfg.NumThreads = max(1, runtime.NumCPU()/2)
	}

	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = defaultOpenAIURL
	}

	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = defaultOpenAIModel
	}

	if cfg.Diarizer.URL == "" {
		cfg.Diarizer.URL = defaultDiarizerURL
	}

	if cfg.Diarizer.ReadyAttempts == 0 {
		cfg.Diarizer.ReadyAttempts = 30
	}

	if cfg.Diarizer.ReadyIntervalMs == 0 {
		cfg.Diarizer.ReadyIntervalMs = 2000
	}

	if cfg.Enhance.Model == "" {
		cfg.Enhance.Model = defaultSummarizerModel
	}

	if len(cfg.OutputFormats) == 0 {
		cfg.OutputFormats = []OutputFormat{OutputFormatVTT}
	}
}

// Load reads the YAML config file at path on top of the given config.
// A missing file is not an error, the config is simply left untouched.
func (cfg *RecorderConfig) Load(path string) error {
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.ModelsDir = expandHome(cfg.ModelsDir)

	return nil
}

// FromEnv overrides config values from environment variables. Env always
// wins over the config file.
func (cfg *RecorderConfig) FromEnv() {
	if val := os.Getenv("DATA_DIR"); val != "" {
		cfg.DataDir = val
	}

	if val := os.Getenv("MODELS_DIR"); val != "" {
		cfg.ModelsDir = val
	}

	if val := os.Getenv("TRANSCRIBE_API"); val != "" {
		cfg.TranscribeAPI = TranscribeAPI(val)
	}

	if val := os.Getenv("MODEL_SIZE"); val != "" {
		cfg.ModelSize = ModelSize(val)
	}

	if val := os.Getenv("NUM_THREADS"); val != "" {
		cfg.NumThreads, _ = strconv.Atoi(val)
	}

	if val := os.Getenv("LANGUAGE"); val != "" {
		cfg.Language = val
	}

	if val := os.Getenv("AZURE_SPEECH_KEY"); val != "" {
		cfg.Azure.SpeechKey = val
	}

	if val := os.Getenv("AZURE_SPEECH_REGION"); val != "" {
		cfg.Azure.SpeechRegion = val
	}

	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		cfg.OpenAI.APIKey = val
	}

	if val := os.Getenv("OPENAI_BASE_URL"); val != "" {
		cfg.OpenAI.BaseURL = val
	}

	if val := os.Getenv("DIARIZER_URL"); val != "" {
		cfg.Diarizer.URL = val
	}

	if val := os.Getenv("OUTPUT_FORMATS"); val != "" {
		cfg.OutputFormats = nil
		for _, f := range strings.Split(val, ",") {
			cfg.OutputFormats = append(cfg.OutputFormats, OutputFormat(strings.TrimSpace(f)))
		}
	}
}

func dataHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
