// Package wav implements the canonical PCM WAV format shared by every
// capture, mixing and processing path: 16-bit little-endian, mono, 16KHz,
// with a plain 44-byte RIFF header.
package wav

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"
)

const (
	SampleRate  = 16000
	NumChannels = 1
	BitDepth    = 16

	headerLen  = 44
	blockAlign = (BitDepth * NumChannels) / 8
	byteRate   = SampleRate * blockAlign
)

func putHeader(buf []byte, dataLen int) {
	buf[0] = 'R'
	buf[1] = 'I'
	buf[2] = 'F'
	buf[3] = 'F'
	binary.LittleEndian.PutUint32(buf[4:], uint32(headerLen-8+dataLen))
	buf[8] = 'W'
	buf[9] = 'A'
	buf[10] = 'V'
	buf[11] = 'E'
	buf[12] = 'f'
	buf[13] = 'm'
	buf[14] = 't'
	buf[15] = ' '
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], NumChannels)
	binary.LittleEndian.PutUint32(buf[24:], SampleRate)
	binary.LittleEndian.PutUint32(buf[28:], byteRate)
	binary.LittleEndian.PutUint16(buf[32:], blockAlign)
	binary.LittleEndian.PutUint16(buf[34:], BitDepth)
	buf[36] = 'd'
	buf[37] = 'a'
	buf[38] = 't'
	buf[39] = 'a'
	binary.LittleEndian.PutUint32(buf[40:], uint32(dataLen))
}

// Encode wraps int16 PCM samples in a complete canonical WAV buffer.
func Encode(samples []int16) []byte {
	buf := make([]byte, headerLen+len(samples)*2)
	putHeader(buf, len(samples)*2)
	pcm := buf[headerLen:]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return buf
}

// Decode parses a canonical WAV buffer into int16 PCM samples. Unknown
// chunks ahead of the data chunk are skipped, but any format other than
// 16-bit mono 16KHz PCM is rejected.
func Decode(data []byte) ([]int16, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("data too short to be a valid WAV file")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("missing RIFF/WAVE header")
	}

	var sawFmt bool
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("truncated %q chunk", id)
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too short")
			}
			if f := binary.LittleEndian.Uint16(data[body:]); f != 1 {
				return nil, fmt.Errorf("unsupported audio format %d, expected PCM", f)
			}
			if ch := binary.LittleEndian.Uint16(data[body+2:]); ch != NumChannels {
				return nil, fmt.Errorf("unsupported channels count %d, expected mono", ch)
			}
			if rate := binary.LittleEndian.Uint32(data[body+4:]); rate != SampleRate {
				return nil, fmt.Errorf("unsupported sample rate %d, expected %d", rate, SampleRate)
			}
			if bits := binary.LittleEndian.Uint16(data[body+14:]); bits != BitDepth {
				return nil, fmt.Errorf("unsupported bit depth %d, expected %d", bits, BitDepth)
			}
			sawFmt = true
		case "data":
			if !sawFmt {
				return nil, fmt.Errorf("data chunk precedes fmt chunk")
			}
			if size%2 != 0 {
				return nil, fmt.Errorf("invalid WAV data length (not divisible by 2)")
			}
			samples := make([]int16, size/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(data[body+i*2:]))
			}
			return samples, nil
		}

		// Chunks are word aligned.
		off = body + size + size%2
	}

	return nil, fmt.Errorf("missing data chunk")
}

// ReadFile loads and decodes the canonical WAV file at path.
func ReadFile(path string) ([]int16, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Decode(data)
}

// WriteFile writes samples to path as a complete canonical WAV file.
func WriteFile(path string, samples []int16) error {
	if err := os.WriteFile(path, Encode(samples), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Duration returns the playback length of n samples.
func Duration(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}

// FileDuration returns the playback length of the canonical WAV file at
// path.
func FileDuration(path string) (time.Duration, error) {
	samples, err := ReadFile(path)
	if err != nil {
		return 0, err
	}
	return Duration(len(samples)), nil
}

// ClipInt16 clamps v to the representable int16 range.
func ClipInt16(v float32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// FromFloat32 converts normalized float32 samples to int16 PCM, clipping
// anything outside the representable range.
func FromFloat32(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = ClipInt16(s * 32768.0)
	}
	return out
}

// ToFloat32 converts int16 PCM samples to normalized float32.
func ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}
