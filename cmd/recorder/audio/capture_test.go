package audio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

type fakeStream struct {
	rate     int
	channels int
	stopped  bool
}

func (s *fakeStream) SampleRate() int { return s.rate }
func (s *fakeStream) Channels() int   { return s.channels }
func (s *fakeStream) Stop() error {
	s.stopped = true
	return nil
}

type fakeBackend struct {
	rate     int
	channels int
	openErr  error
	cb       DataFunc
	stream   *fakeStream
}

func (b *fakeBackend) Open(_ DeviceType, cfg StreamConfig, cb DataFunc) (Stream, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	rate := b.rate
	if rate == 0 {
		rate = cfg.SampleRate
	}
	channels := b.channels
	if channels == 0 {
		channels = cfg.Channels
	}
	b.cb = cb
	b.stream = &fakeStream{rate: rate, channels: channels}
	return b.stream, nil
}

func (b *fakeBackend) Close() error { return nil }

func TestSystemCapture(t *testing.T) {
	t.Run("start twice fails", func(t *testing.T) {
		c := NewSystemCapture(&fakeBackend{})
		path := filepath.Join(t.TempDir(), "system.wav")

		require.NoError(t, c.StartCapture(path))
		require.ErrorIs(t, c.StartCapture(path), ErrAlreadyCapturing)

		_, err := c.StopCapture()
		require.NoError(t, err)
	})

	t.Run("open failure removes file", func(t *testing.T) {
		c := NewSystemCapture(&fakeBackend{openErr: ErrNoPermission})
		path := filepath.Join(t.TempDir(), "system.wav")

		require.ErrorIs(t, c.StartCapture(path), ErrNoPermission)
		require.NoFileExists(t, path)
	})

	t.Run("stop when idle is a no-op", func(t *testing.T) {
		c := NewSystemCapture(&fakeBackend{})
		path, err := c.StopCapture()
		require.NoError(t, err)
		require.Empty(t, path)
	})

	t.Run("stereo 48k gets downmixed and resampled", func(t *testing.T) {
		backend := &fakeBackend{}
		c := NewSystemCapture(backend)
		path := filepath.Join(t.TempDir(), "system.wav")
		require.NoError(t, c.StartCapture(path))

		// One second of full-scale stereo at 48KHz.
		frames := make([]float32, systemCaptureRate*systemCaptureChannels)
		for i := range frames {
			frames[i] = 0.5
		}
		backend.cb(frames)

		avg, peak := c.Levels()
		require.Greater(t, avg, MeterFloor)
		require.Greater(t, peak, MeterFloor)

		outPath, err := c.StopCapture()
		require.NoError(t, err)
		require.Equal(t, path, outPath)
		require.True(t, backend.stream.stopped)

		// Meters reset on stop.
		avg, peak = c.Levels()
		require.Equal(t, MeterFloor, avg)
		require.Equal(t, MeterFloor, peak)

		samples, err := wav.ReadFile(path)
		require.NoError(t, err)
		// 48 source samples per 16 output samples, linear tail retained.
		require.InDelta(t, wav.SampleRate, len(samples), 2)
		require.Equal(t, int16(16384), samples[0])
	})
}

func TestMicCapture(t *testing.T) {
	t.Run("native rate is respected", func(t *testing.T) {
		backend := &fakeBackend{rate: 44100}
		c := NewMicCapture(backend)
		path := filepath.Join(t.TempDir(), "mic.wav")
		require.NoError(t, c.StartCapture(path))

		backend.cb(make([]float32, 44100))

		require.InDelta(t, 1.0, c.Duration(), 0.01)

		_, err := c.StopCapture()
		require.NoError(t, err)

		samples, err := wav.ReadFile(path)
		require.NoError(t, err)
		require.InDelta(t, wav.SampleRate, len(samples), 2)
	})

	t.Run("sample hook receives converted frames", func(t *testing.T) {
		backend := &fakeBackend{rate: 16000}
		c := NewMicCapture(backend)

		var got []float32
		c.SetSampleFunc(func(samples []float32) {
			got = append(got, samples...)
		})

		path := filepath.Join(t.TempDir(), "mic.wav")
		require.NoError(t, c.StartCapture(path))

		backend.cb([]float32{0.1, 0.2, 0.3, 0.4})

		_, err := c.StopCapture()
		require.NoError(t, err)

		require.Len(t, got, 4)
		require.Equal(t, float32(0.1), got[0])
	})
}
