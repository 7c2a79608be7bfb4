// Package audio implements microphone and system (loopback) capture on top
// of pluggable device backends, normalizing everything to the canonical
// 16KHz mono PCM format.
package audio

import (
	"errors"
)

var (
	ErrNoPermission     = errors.New("audio capture permission denied")
	ErrNoDevice         = errors.New("no capture device found")
	ErrStreamCreation   = errors.New("failed to create capture stream")
	ErrAlreadyCapturing = errors.New("already capturing")
)

// DeviceType selects which capture source a backend should open.
type DeviceType string

const (
	// DeviceMic is the default microphone input.
	DeviceMic DeviceType = "mic"
	// DeviceLoopback taps the OS playback mix (system audio).
	DeviceLoopback DeviceType = "loopback"
)

// StreamConfig is the requested stream format. A zero SampleRate asks for
// the device native rate; the negotiated rate is reported by the stream.
type StreamConfig struct {
	SampleRate int
	Channels   int
}

// DataFunc receives interleaved float32 frames. It's invoked on the
// backend's own capture goroutine, so implementations must stay fast and
// allocation light.
type DataFunc func(samples []float32)

// Stream is an open capture stream.
type Stream interface {
	// SampleRate returns the negotiated rate.
	SampleRate() int
	// Channels returns the negotiated channel count.
	Channels() int
	Stop() error
}

// Backend abstracts the OS capture layer so captures can be driven by real
// devices (malgo), an RTP receiver, or a fake in tests.
type Backend interface {
	Open(dt DeviceType, cfg StreamConfig, cb DataFunc) (Stream, error)
	Close() error
}
