package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gen2brain/malgo"
)

// MalgoBackend opens real OS capture devices through miniaudio.
type MalgoBackend struct {
	ctx *malgo.AllocatedContext
}

func NewMalgoBackend() (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStreamCreation, err.Error())
	}

	return &MalgoBackend{
		ctx: ctx,
	}, nil
}

func (b *MalgoBackend) Open(dt DeviceType, cfg StreamConfig, cb DataFunc) (Stream, error) {
	if b.ctx == nil {
		return nil, fmt.Errorf("backend is not initialized")
	}

	var deviceCfg malgo.DeviceConfig
	switch dt {
	case DeviceMic:
		deviceCfg = malgo.DefaultDeviceConfig(malgo.Capture)
	case DeviceLoopback:
		deviceCfg = malgo.DefaultDeviceConfig(malgo.Loopback)
	default:
		return nil, fmt.Errorf("unsupported device type %q", string(dt))
	}
	deviceCfg.Capture.Format = malgo.FormatF32
	deviceCfg.Capture.Channels = uint32(cfg.Channels)
	deviceCfg.SampleRate = uint32(cfg.SampleRate)

	// A missing device is not a permission or stream problem; surface it
	// as its own failure mode.
	if devices, err := b.ctx.Devices(deviceKind(dt)); err == nil && len(devices) == 0 {
		return nil, fmt.Errorf("%w: no %s devices available", ErrNoDevice, string(dt))
	}

	s := &malgoStream{
		channels: cfg.Channels,
	}

	onData := func(_, data []byte, frameCount uint32) {
		n := int(frameCount) * s.channels
		if cap(s.scratch) < n {
			s.scratch = make([]float32, n)
		}
		buf := s.scratch[:n]
		for i := range buf {
			buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		cb(buf)
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceCfg, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		if dt == DeviceLoopback {
			return nil, fmt.Errorf("%w: %s", ErrNoPermission, err.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrStreamCreation, err.Error())
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("%w: %s", ErrStreamCreation, err.Error())
	}

	s.device = device
	s.rate = int(device.SampleRate())
	if s.rate == 0 {
		s.rate = cfg.SampleRate
	}

	return s, nil
}

func (b *MalgoBackend) Close() error {
	if b.ctx == nil {
		return fmt.Errorf("backend is not initialized")
	}
	err := b.ctx.Uninit()
	b.ctx.Free()
	b.ctx = nil
	if err != nil {
		return fmt.Errorf("failed to uninit context: %w", err)
	}
	return nil
}

// deviceKind maps a capture source to the malgo device class backing it.
// Loopback taps a playback device.
func deviceKind(dt DeviceType) malgo.DeviceType {
	if dt == DeviceLoopback {
		return malgo.Playback
	}
	return malgo.Capture
}

type malgoStream struct {
	device   *malgo.Device
	rate     int
	channels int
	scratch  []float32
}

func (s *malgoStream) SampleRate() int {
	return s.rate
}

func (s *malgoStream) Channels() int {
	return s.channels
}

func (s *malgoStream) Stop() error {
	if s.device == nil {
		return fmt.Errorf("stream is not initialized")
	}
	s.device.Uninit()
	s.device = nil
	return nil
}
