package audio

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/soundbench/meeting-recorder/cmd/recorder/wav"
)

const (
	systemCaptureRate     = 48000
	systemCaptureChannels = 2
)

// capture drives a backend stream into a canonical WAV file: meter the raw
// buffer, downmix to mono, resample to 16KHz, clip to int16, write.
type capture struct {
	backend  Backend
	device   DeviceType
	cfg      StreamConfig
	meter    *Meter
	onPCM    func([]float32)
	mut      sync.Mutex
	stream   Stream
	writer   *wav.Writer
	path     string
	res      *Resampler
	channels int
	mono     []float32
	pcm      []int16
}

func (c *capture) startCapture(path string) error {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.stream != nil {
		return ErrAlreadyCapturing
	}

	w, err := wav.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}

	stream, err := c.backend.Open(c.device, c.cfg, c.onData)
	if err != nil {
		if cErr := w.Close(); cErr != nil {
			slog.Error("failed to close writer", slog.String("err", cErr.Error()))
		}
		if rErr := os.Remove(path); rErr != nil {
			slog.Error("failed to remove file", slog.String("err", rErr.Error()))
		}
		return err
	}

	c.stream = stream
	c.writer = w
	c.path = path
	c.channels = stream.Channels()
	c.res = NewResampler(stream.SampleRate(), wav.SampleRate)

	slog.Debug("capture started", slog.String("device", string(c.device)),
		slog.String("path", path), slog.Int("rate", stream.SampleRate()),
		slog.Int("channels", c.channels))

	return nil
}

// onData runs on the backend's capture goroutine.
func (c *capture) onData(samples []float32) {
	c.meter.Process(samples)

	c.mut.Lock()
	defer c.mut.Unlock()

	if c.writer == nil {
		return
	}

	c.mono = Downmix(c.mono[:0], samples, c.channels)
	out := c.res.Resample(c.mono)

	if cap(c.pcm) < len(out) {
		c.pcm = make([]int16, len(out))
	}
	pcm := c.pcm[:len(out)]
	for i, s := range out {
		pcm[i] = wav.ClipInt16(s * 32768.0)
	}

	if err := c.writer.WriteSamples(pcm); err != nil {
		slog.Error("failed to write samples", slog.String("err", err.Error()))
		return
	}

	if c.onPCM != nil {
		c.onPCM(out)
	}
}

// stopCapture is idempotent: when not capturing it returns an empty path
// and no error.
func (c *capture) stopCapture() (string, error) {
	c.mut.Lock()
	defer c.mut.Unlock()

	if c.stream == nil {
		return "", nil
	}

	if err := c.stream.Stop(); err != nil {
		slog.Error("failed to stop stream", slog.String("err", err.Error()))
	}
	c.stream = nil

	err := c.writer.Close()
	c.writer = nil

	path := c.path
	c.path = ""
	c.meter.Reset()

	if err != nil {
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	slog.Debug("capture stopped", slog.String("device", string(c.device)), slog.String("path", path))

	return path, nil
}

func (c *capture) duration() float64 {
	c.mut.Lock()
	defer c.mut.Unlock()
	if c.writer == nil {
		return 0
	}
	return float64(c.writer.Samples()) / wav.SampleRate
}

// SystemCapture records all audible system output through a loopback
// stream at 48KHz stereo, normalized down to the canonical format.
type SystemCapture struct {
	capture
}

func NewSystemCapture(backend Backend) *SystemCapture {
	return &SystemCapture{
		capture: capture{
			backend: backend,
			device:  DeviceLoopback,
			cfg: StreamConfig{
				SampleRate: systemCaptureRate,
				Channels:   systemCaptureChannels,
			},
			meter: NewMeter(),
		},
	}
}

func (c *SystemCapture) StartCapture(path string) error {
	return c.startCapture(path)
}

func (c *SystemCapture) StopCapture() (string, error) {
	return c.stopCapture()
}

func (c *SystemCapture) Levels() (avg, peak float64) {
	return c.meter.Levels()
}

func (c *SystemCapture) Duration() float64 {
	return c.duration()
}

// MicCapture records the default microphone at its native rate, resampled
// to the canonical format. An optional sample hook receives the converted
// 16KHz mono frames, which is how live captioning taps the stream.
type MicCapture struct {
	capture
}

func NewMicCapture(backend Backend) *MicCapture {
	return &MicCapture{
		capture: capture{
			backend: backend,
			device:  DeviceMic,
			cfg: StreamConfig{
				// Device native rate.
				SampleRate: 0,
				Channels:   1,
			},
			meter: NewMeter(),
		},
	}
}

// SetSampleFunc registers a hook for converted frames. It must be set
// before StartCapture.
func (c *MicCapture) SetSampleFunc(f func([]float32)) {
	c.mut.Lock()
	c.onPCM = f
	c.mut.Unlock()
}

func (c *MicCapture) StartCapture(path string) error {
	return c.startCapture(path)
}

func (c *MicCapture) StopCapture() (string, error) {
	return c.stopCapture()
}

func (c *MicCapture) Levels() (avg, peak float64) {
	return c.meter.Levels()
}

func (c *MicCapture) Duration() float64 {
	return c.duration()
}
