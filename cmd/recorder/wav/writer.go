package wav

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Writer streams int16 PCM samples to a canonical WAV file. It owns the
// file at path from NewWriter until Close, when the RIFF and data sizes
// get patched to match the written samples.
type Writer struct {
	f       *os.File
	scratch []byte
	written int
	closed  bool
}

func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	var hdr [headerLen]byte
	putHeader(hdr[:], 0)
	if _, err := f.Write(hdr[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	return &Writer{f: f}, nil
}

// WriteSamples appends samples to the file. It's meant to be called from a
// single goroutine at capture callback cadence so the conversion buffer is
// reused across calls.
func (w *Writer) WriteSamples(samples []int16) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}

	n := len(samples) * 2
	if cap(w.scratch) < n {
		w.scratch = make([]byte, n)
	}
	buf := w.scratch[:n]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}

	if _, err := w.f.Write(buf); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	w.written += n

	return nil
}

// Samples returns the number of samples written so far.
func (w *Writer) Samples() int {
	return w.written / 2
}

// Close patches the header sizes and closes the underlying file. It's a
// no-op when called again.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var hdr [headerLen]byte
	putHeader(hdr[:], w.written)
	if _, err := w.f.WriteAt(hdr[:], 0); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to patch header: %w", err)
	}

	if err := w.f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}

	return nil
}
