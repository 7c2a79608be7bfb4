package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigIsValid(t *testing.T) {
	tcs := []struct {
		name          string
		cfg           RecorderConfig
		expectedError string
	}{
		{
			name:          "empty config",
			cfg:           RecorderConfig{},
			expectedError: "DataDir cannot be empty",
		},
		{
			name: "missing models dir",
			cfg: RecorderConfig{
				DataDir: "/tmp/recorder",
			},
			expectedError: "ModelsDir cannot be empty",
		},
		{
			name: "invalid transcribe API",
			cfg: RecorderConfig{
				DataDir:       "/tmp/recorder",
				ModelsDir:     "/tmp/recorder/models",
				TranscribeAPI: "invalid",
			},
			expectedError: "TranscribeAPI value is not valid",
		},
		{
			name: "invalid model size",
			cfg: RecorderConfig{
				DataDir:       "/tmp/recorder",
				ModelsDir:     "/tmp/recorder/models",
				TranscribeAPI: TranscribeAPIWhisperCPP,
				ModelSize:     "huge",
			},
			expectedError: "ModelSize value is not valid",
		},
		{
			name: "missing azure key",
			cfg: RecorderConfig{
				DataDir:       "/tmp/recorder",
				ModelsDir:     "/tmp/recorder/models",
				TranscribeAPI: TranscribeAPIAzure,
				ModelSize:     ModelSizeBase,
				NumThreads:    1,
			},
			expectedError: "Azure.SpeechKey cannot be empty",
		},
		{
			name: "invalid diarizer URL scheme",
			cfg: RecorderConfig{
				DataDir:       "/tmp/recorder",
				ModelsDir:     "/tmp/recorder/models",
				TranscribeAPI: TranscribeAPIWhisperCPP,
				ModelSize:     ModelSizeBase,
				NumThreads:    1,
				Diarizer: DiarizerConfig{
					URL:             "ftp://localhost:8388",
					ReadyAttempts:   30,
					ReadyIntervalMs: 2000,
				},
			},
			expectedError: "Diarizer.URL parsing failed: invalid scheme \"ftp\"",
		},
		{
			name: "invalid output format",
			cfg: RecorderConfig{
				DataDir:       "/tmp/recorder",
				ModelsDir:     "/tmp/recorder/models",
				TranscribeAPI: TranscribeAPIWhisperCPP,
				ModelSize:     ModelSizeBase,
				NumThreads:    1,
				Diarizer: DiarizerConfig{
					URL:             "http://localhost:8388",
					ReadyAttempts:   30,
					ReadyIntervalMs: 2000,
				},
				OutputFormats: []OutputFormat{"xml"},
			},
			expectedError: "OutputFormats value \"xml\" is not valid",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.IsValid()
			if tc.expectedError != "" {
				require.EqualError(t, err, tc.expectedError)
			} else {
				require.NoError(t, err)
			}
		})
	}

	t.Run("defaults are valid", func(t *testing.T) {
		var cfg RecorderConfig
		cfg.SetDefaults()
		require.NoError(t, cfg.IsValid())
	})
}

func TestConfigSetDefaults(t *testing.T) {
	var cfg RecorderConfig
	cfg.SetDefaults()

	require.NotEmpty(t, cfg.DataDir)
	require.Equal(t, filepath.Join(cfg.DataDir, "models"), cfg.ModelsDir)
	require.Equal(t, TranscribeAPI(TranscribeAPIWhisperCPP), cfg.TranscribeAPI)
	require.Equal(t, ModelSize(ModelSizeBase), cfg.ModelSize)
	require.GreaterOrEqual(t, cfg.NumThreads, 1)
	require.LessOrEqual(t, cfg.NumThreads, runtime.NumCPU())
	require.Equal(t, "http://localhost:8388", cfg.Diarizer.URL)
	require.Equal(t, 30, cfg.Diarizer.ReadyAttempts)
	require.Equal(t, []OutputFormat{OutputFormatVTT}, cfg.OutputFormats)
}

func TestConfigLoad(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		var cfg RecorderConfig
		cfg.SetDefaults()
		require.NoError(t, cfg.Load(filepath.Join(t.TempDir(), "missing.yaml")))
		require.NoError(t, cfg.IsValid())
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		data := `
transcribe_api: "openai/whisper"
model_size: "small"
openai:
  api_key: "test-key"
captions:
  enabled: true
  enable_vad: true
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0600))

		var cfg RecorderConfig
		cfg.SetDefaults()
		require.NoError(t, cfg.Load(path))

		require.Equal(t, TranscribeAPI(TranscribeAPIOpenAIWhisper), cfg.TranscribeAPI)
		require.Equal(t, ModelSize(ModelSizeSmall), cfg.ModelSize)
		require.Equal(t, "test-key", cfg.OpenAI.APIKey)
		require.True(t, cfg.Captions.Enabled)
		require.True(t, cfg.Captions.EnableVAD)
		require.NoError(t, cfg.IsValid())
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("data_dir: [\n"), 0600))

		var cfg RecorderConfig
		require.ErrorContains(t, cfg.Load(path), "failed to parse config file")
	})
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TRANSCRIBE_API", "azure")
	t.Setenv("AZURE_SPEECH_KEY", "key")
	t.Setenv("AZURE_SPEECH_REGION", "westus")
	t.Setenv("OUTPUT_FORMATS", "vtt, markdown")

	var cfg RecorderConfig
	cfg.SetDefaults()
	cfg.FromEnv()

	require.Equal(t, TranscribeAPI(TranscribeAPIAzure), cfg.TranscribeAPI)
	require.Equal(t, "key", cfg.Azure.SpeechKey)
	require.Equal(t, "westus", cfg.Azure.SpeechRegion)
	require.Equal(t, []OutputFormat{OutputFormatVTT, OutputFormatMarkdown}, cfg.OutputFormats)
	require.NoError(t, cfg.IsValid())
}
